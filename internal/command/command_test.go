package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armin-kho/fsub-video-bot/internal/payload"
)

func reply(p payload.Payload) *payload.Payload { return &p }

func TestParse_Valid(t *testing.T) {
	video := payload.NewVideo("vid-1", "")
	text := payload.NewText("hello <b>")
	photo := payload.NewPhoto("ph-1", "cap")

	tests := []struct {
		name string
		in   Input
		want Command
	}{
		{"start no param", Input{Name: "start"}, Start{}},
		{"start param", Input{Name: "start", Args: "Ep1"}, Start{Param: "Ep1"}},
		{"add channel", Input{Name: "addfsubchannel", Args: "-100123"}, AddFsubChannel{ChannelID: -100123}},
		{"del channel", Input{Name: "delfsubchannel", Args: " -5 "}, DelFsubChannel{ChannelID: -5}},
		{"add fsub button", Input{Name: "addfsubbutton", Args: "Join Now https://t.me/x"}, AddFsubButton{Text: "Join Now", URL: "https://t.me/x"}},
		{"del fsub button", Input{Name: "delfsubbutton", Args: "Join  Now"}, DelFsubButton{Text: "Join Now"}},
		{"set welcome", Input{Name: "setwelcome", Reply: reply(text)}, SetWelcome{Text: "hello <b>"}},
		{"get profil", Input{Name: "getprofil", Reply: reply(photo)}, GetProfil{PhotoID: "ph-1"}},
		{"add video", Input{Name: "addvideo", Args: "Ep1 extra", Reply: reply(video)}, AddVideo{Key: "Ep1", FileID: "vid-1"}},
		{"del video", Input{Name: "delvideo", Args: "Ep1"}, DelVideo{Key: "Ep1"}},
		{"broadcast", Input{Name: "broadcast", Reply: reply(photo)}, Broadcast{Payload: photo}},
		{"add button", Input{Name: "addbutton", Args: "Visit https://google.com", Reply: reply(video)}, AddButton{Text: "Visit", URL: "https://google.com", Payload: video}},
		{"upper case name", Input{Name: "LISTFSUB"}, ListFsub{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UsageErrors(t *testing.T) {
	text := payload.NewText("hi")

	tests := []struct {
		name string
		in   Input
	}{
		{"channel missing", Input{Name: "addfsubchannel"}},
		{"channel not a number", Input{Name: "addfsubchannel", Args: "abc"}},
		{"del channel not a number", Input{Name: "delfsubchannel", Args: "@chan"}},
		{"fsub button without url", Input{Name: "addfsubbutton", Args: "Join"}},
		{"del fsub button empty", Input{Name: "delfsubbutton"}},
		{"welcome without reply", Input{Name: "setwelcome"}},
		{"welcome reply to photo", Input{Name: "setwelcome", Reply: reply(payload.NewPhoto("p", ""))}},
		{"profil reply to text", Input{Name: "getprofil", Reply: reply(text)}},
		{"video without reply", Input{Name: "addvideo", Args: "Ep1"}},
		{"video without key", Input{Name: "addvideo", Reply: reply(payload.NewVideo("v", ""))}},
		{"del video empty", Input{Name: "delvideo"}},
		{"broadcast without reply", Input{Name: "broadcast"}},
		{"button without reply", Input{Name: "addbutton", Args: "Go https://x"}},
		{"button without url", Input{Name: "addbutton", Args: "Go", Reply: reply(text)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			var ue *UsageError
			require.True(t, errors.As(err, &ue), "got %v", err)
			assert.Equal(t, tt.in.Name, ue.Command)
			assert.NotEmpty(t, ue.Usage)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse(Input{Name: "nope"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.False(t, Known("nope"))
}

func TestAdminOnly(t *testing.T) {
	for _, name := range []string{NameSetup, NameStart, NameHelp, NameMyID} {
		assert.False(t, AdminOnly(name), name)
	}
	for _, name := range []string{NameAddFsubChannel, NameBroadcast, NameAddVideo, NameBackup, NameStats} {
		assert.True(t, AdminOnly(name), name)
	}
	assert.False(t, AdminOnly("nope"))
}
