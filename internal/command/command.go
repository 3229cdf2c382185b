// Package command turns raw chat commands into typed values so handlers never
// see unvalidated arguments.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Armin-kho/fsub-video-bot/internal/payload"
)

const (
	NameSetup          = "setup"
	NameStart          = "start"
	NameHelp           = "help"
	NameMyID           = "myid"
	NameAddFsubChannel = "addfsubchannel"
	NameDelFsubChannel = "delfsubchannel"
	NameListFsub       = "listfsub"
	NameAddFsubButton  = "addfsubbutton"
	NameDelFsubButton  = "delfsubbutton"
	NameSetWelcome     = "setwelcome"
	NameGetProfil      = "getprofil"
	NameAddVideo       = "addvideo"
	NameDelVideo       = "delvideo"
	NameListVideos     = "listvideos"
	NameBroadcast      = "broadcast"
	NameAddButton      = "addbutton"
	NameStats          = "stats"
	NameBackup         = "backup"
)

var ErrUnknownCommand = errors.New("unknown command")

// UsageError is returned when a command's arguments or replied-to message
// don't fit. Usage is shown to the admin as is.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("/%s: %s", e.Command, e.Usage)
}

func usage(name, text string) error {
	return &UsageError{Command: name, Usage: text}
}

type Command interface {
	Name() string
}

type (
	Setup struct{}
	Start struct{ Param string }
	Help  struct{}
	MyID  struct{}

	AddFsubChannel struct{ ChannelID int64 }
	DelFsubChannel struct{ ChannelID int64 }
	ListFsub       struct{}
	AddFsubButton  struct{ Text, URL string }
	DelFsubButton  struct{ Text string }

	SetWelcome struct{ Text string }
	GetProfil  struct{ PhotoID string }

	AddVideo   struct{ Key, FileID string }
	DelVideo   struct{ Key string }
	ListVideos struct{}

	Broadcast struct{ Payload payload.Payload }
	AddButton struct {
		Text    string
		URL     string
		Payload payload.Payload
	}

	Stats  struct{}
	Backup struct{}
)

func (Setup) Name() string          { return NameSetup }
func (Start) Name() string          { return NameStart }
func (Help) Name() string           { return NameHelp }
func (MyID) Name() string           { return NameMyID }
func (AddFsubChannel) Name() string { return NameAddFsubChannel }
func (DelFsubChannel) Name() string { return NameDelFsubChannel }
func (ListFsub) Name() string       { return NameListFsub }
func (AddFsubButton) Name() string  { return NameAddFsubButton }
func (DelFsubButton) Name() string  { return NameDelFsubButton }
func (SetWelcome) Name() string     { return NameSetWelcome }
func (GetProfil) Name() string      { return NameGetProfil }
func (AddVideo) Name() string       { return NameAddVideo }
func (DelVideo) Name() string       { return NameDelVideo }
func (ListVideos) Name() string     { return NameListVideos }
func (Broadcast) Name() string      { return NameBroadcast }
func (AddButton) Name() string      { return NameAddButton }
func (Stats) Name() string          { return NameStats }
func (Backup) Name() string         { return NameBackup }

var public = map[string]bool{
	NameSetup: true,
	NameStart: true,
	NameHelp:  true,
	NameMyID:  true,
}

// Known reports whether name is a command this bot handles.
func Known(name string) bool {
	_, ok := parsers[strings.ToLower(name)]
	return ok
}

// AdminOnly reports whether name may only be run by an admin. Authorization is
// checked before arguments are validated.
func AdminOnly(name string) bool {
	name = strings.ToLower(name)
	return Known(name) && !public[name]
}

// Input is a command as received: its name without the slash, the raw
// argument string and the message it replied to, if any.
type Input struct {
	Name  string
	Args  string
	Reply *payload.Payload
}

func (in Input) fields() []string {
	return strings.Fields(in.Args)
}

type parser func(Input) (Command, error)

var parsers map[string]parser

func init() {
	parsers = map[string]parser{
		NameSetup:          func(Input) (Command, error) { return Setup{}, nil },
		NameStart:          parseStart,
		NameHelp:           func(Input) (Command, error) { return Help{}, nil },
		NameMyID:           func(Input) (Command, error) { return MyID{}, nil },
		NameAddFsubChannel: parseAddFsubChannel,
		NameDelFsubChannel: parseDelFsubChannel,
		NameListFsub:       func(Input) (Command, error) { return ListFsub{}, nil },
		NameAddFsubButton:  parseAddFsubButton,
		NameDelFsubButton:  parseDelFsubButton,
		NameSetWelcome:     parseSetWelcome,
		NameGetProfil:      parseGetProfil,
		NameAddVideo:       parseAddVideo,
		NameDelVideo:       parseDelVideo,
		NameListVideos:     func(Input) (Command, error) { return ListVideos{}, nil },
		NameBroadcast:      parseBroadcast,
		NameAddButton:      parseAddButton,
		NameStats:          func(Input) (Command, error) { return Stats{}, nil },
		NameBackup:         func(Input) (Command, error) { return Backup{}, nil },
	}
}

// Parse validates in and returns the typed command. Validation failures are
// *UsageError; unknown names are ErrUnknownCommand.
func Parse(in Input) (Command, error) {
	p, ok := parsers[strings.ToLower(in.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: /%s", ErrUnknownCommand, in.Name)
	}
	return p(in)
}

func parseStart(in Input) (Command, error) {
	f := in.fields()
	if len(f) == 0 {
		return Start{}, nil
	}
	return Start{Param: f[0]}, nil
}

func parseChannelID(in Input, name string) (int64, error) {
	f := in.fields()
	if len(f) == 0 {
		return 0, usage(name, fmt.Sprintf("Please include the channel ID. Example:\n/%s -100123456789", name))
	}
	id, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return 0, usage(name, "Invalid channel ID. Make sure it is a number.")
	}
	return id, nil
}

func parseAddFsubChannel(in Input) (Command, error) {
	id, err := parseChannelID(in, NameAddFsubChannel)
	if err != nil {
		return nil, err
	}
	return AddFsubChannel{ChannelID: id}, nil
}

func parseDelFsubChannel(in Input) (Command, error) {
	id, err := parseChannelID(in, NameDelFsubChannel)
	if err != nil {
		return nil, err
	}
	return DelFsubChannel{ChannelID: id}, nil
}

// splitLabelURL treats the last field as the URL and the rest as the label.
func splitLabelURL(in Input) (string, string, bool) {
	f := in.fields()
	if len(f) < 2 {
		return "", "", false
	}
	return strings.Join(f[:len(f)-1], " "), f[len(f)-1], true
}

func parseAddFsubButton(in Input) (Command, error) {
	text, url, ok := splitLabelURL(in)
	if !ok {
		return nil, usage(NameAddFsubButton, "Please include the button text and URL. Example:\n/addfsubbutton Join Channel https://t.me/examplechannel")
	}
	return AddFsubButton{Text: text, URL: url}, nil
}

func parseDelFsubButton(in Input) (Command, error) {
	f := in.fields()
	if len(f) == 0 {
		return nil, usage(NameDelFsubButton, "Please include the text of the button to delete. Example:\n/delfsubbutton Join Channel")
	}
	return DelFsubButton{Text: strings.Join(f, " ")}, nil
}

func parseSetWelcome(in Input) (Command, error) {
	if in.Reply == nil || !in.Reply.IsText() || in.Reply.Text == "" {
		return nil, usage(NameSetWelcome, "Please reply to the text message you want to use as the welcome message.")
	}
	return SetWelcome{Text: in.Reply.Text}, nil
}

func parseGetProfil(in Input) (Command, error) {
	if in.Reply == nil || !in.Reply.IsPhoto() {
		return nil, usage(NameGetProfil, "Please reply to a picture with /getprofil to set the welcome picture.")
	}
	return GetProfil{PhotoID: in.Reply.FileID}, nil
}

func parseAddVideo(in Input) (Command, error) {
	if in.Reply == nil || !in.Reply.IsVideo() {
		return nil, usage(NameAddVideo, "Please reply to a video with /addvideo <video_name>.")
	}
	f := in.fields()
	if len(f) == 0 {
		return nil, usage(NameAddVideo, "Please give this video a name. Example: /addvideo main_video")
	}
	return AddVideo{Key: f[0], FileID: in.Reply.FileID}, nil
}

func parseDelVideo(in Input) (Command, error) {
	f := in.fields()
	if len(f) == 0 {
		return nil, usage(NameDelVideo, "Please include the video name. Example: /delvideo main_video")
	}
	return DelVideo{Key: f[0]}, nil
}

func parseBroadcast(in Input) (Command, error) {
	if in.Reply == nil {
		return nil, usage(NameBroadcast, "Please reply to the message you want to broadcast.")
	}
	return Broadcast{Payload: *in.Reply}, nil
}

func parseAddButton(in Input) (Command, error) {
	if in.Reply == nil {
		return nil, usage(NameAddButton, "Please reply to the message you want to add a button to.")
	}
	text, url, ok := splitLabelURL(in)
	if !ok {
		return nil, usage(NameAddButton, "Please include the button text and URL. Example:\n/addbutton Visit Website https://google.com")
	}
	return AddButton{Text: text, URL: url, Payload: *in.Reply}, nil
}
