package store

import (
	"errors"
	"slices"
)

// DefaultWelcome is shown to users who have not joined every gate channel yet.
const DefaultWelcome = "❌ You have not joined our channel yet.\n\nPlease join the channels below to use this bot."

var (
	ErrAlreadySetUp    = errors.New("bot already has an admin")
	ErrChannelExists   = errors.New("channel already in the fsub list")
	ErrChannelNotFound = errors.New("channel not in the fsub list")
	ErrButtonNotFound  = errors.New("fsub button not found")
	ErrVideoNotFound   = errors.New("video not found")
)

type Button struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url" yaml:"url"`
}

// Document is the whole persisted bot state. It is always loaded, mutated and
// written back as one unit.
type Document struct {
	AdminIDs       []int64           `json:"admin_ids"`
	FsubChannels   []int64           `json:"fsub_channels"`
	FsubButtons    []Button          `json:"fsub_buttons"`
	WelcomeMessage string            `json:"welcome_message"`
	PhotoID        *string           `json:"photo_id"`
	Videos         map[string]string `json:"videos"`
	UserIDs        []int64           `json:"user_ids"`
}

func Default() Document {
	return Document{
		AdminIDs:       []int64{},
		FsubChannels:   []int64{},
		FsubButtons:    []Button{},
		WelcomeMessage: DefaultWelcome,
		Videos:         map[string]string{},
		UserIDs:        []int64{},
	}
}

// normalize fills nil collections so a partially written document behaves
// like the default one.
func (d *Document) normalize() {
	if d.AdminIDs == nil {
		d.AdminIDs = []int64{}
	}
	if d.FsubChannels == nil {
		d.FsubChannels = []int64{}
	}
	if d.FsubButtons == nil {
		d.FsubButtons = []Button{}
	}
	if d.Videos == nil {
		d.Videos = map[string]string{}
	}
	if d.UserIDs == nil {
		d.UserIDs = []int64{}
	}
	if d.WelcomeMessage == "" {
		d.WelcomeMessage = DefaultWelcome
	}
}

func (d Document) IsAdmin(userID int64) bool {
	return slices.Contains(d.AdminIDs, userID)
}

func (d Document) HasAdmins() bool {
	return len(d.AdminIDs) > 0
}

// ClaimAdmin is the one-shot setup latch: it succeeds only while no admin exists.
func (d *Document) ClaimAdmin(userIDs ...int64) error {
	if d.HasAdmins() {
		return ErrAlreadySetUp
	}
	for _, id := range userIDs {
		if !slices.Contains(d.AdminIDs, id) {
			d.AdminIDs = append(d.AdminIDs, id)
		}
	}
	return nil
}

func (d *Document) AddChannel(channelID int64) error {
	if slices.Contains(d.FsubChannels, channelID) {
		return ErrChannelExists
	}
	d.FsubChannels = append(d.FsubChannels, channelID)
	return nil
}

func (d *Document) RemoveChannel(channelID int64) error {
	i := slices.Index(d.FsubChannels, channelID)
	if i < 0 {
		return ErrChannelNotFound
	}
	d.FsubChannels = slices.Delete(d.FsubChannels, i, i+1)
	return nil
}

func (d *Document) AddButton(text, url string) {
	d.FsubButtons = append(d.FsubButtons, Button{Text: text, URL: url})
}

// RemoveButton drops every button labelled text.
func (d *Document) RemoveButton(text string) error {
	before := len(d.FsubButtons)
	d.FsubButtons = slices.DeleteFunc(d.FsubButtons, func(b Button) bool { return b.Text == text })
	if len(d.FsubButtons) == before {
		return ErrButtonNotFound
	}
	return nil
}

func (d *Document) SetWelcome(text string) {
	d.WelcomeMessage = text
}

func (d *Document) SetPhoto(fileID string) {
	d.PhotoID = &fileID
}

func (d Document) Photo() (string, bool) {
	if d.PhotoID == nil || *d.PhotoID == "" {
		return "", false
	}
	return *d.PhotoID, true
}

// PutVideo stores key -> fileID, overwriting an existing entry.
func (d *Document) PutVideo(key, fileID string) {
	if d.Videos == nil {
		d.Videos = map[string]string{}
	}
	d.Videos[key] = fileID
}

func (d *Document) DeleteVideo(key string) error {
	if _, ok := d.Videos[key]; !ok {
		return ErrVideoNotFound
	}
	delete(d.Videos, key)
	return nil
}

// TrackUser adds userID to the known users and reports whether it was new.
func (d *Document) TrackUser(userID int64) bool {
	if slices.Contains(d.UserIDs, userID) {
		return false
	}
	d.UserIDs = append(d.UserIDs, userID)
	return true
}

// ForgetUsers removes ids from the known users and returns how many were removed.
func (d *Document) ForgetUsers(ids []int64) int {
	if len(ids) == 0 {
		return 0
	}
	before := len(d.UserIDs)
	d.UserIDs = slices.DeleteFunc(d.UserIDs, func(id int64) bool { return slices.Contains(ids, id) })
	return before - len(d.UserIDs)
}

// Clone returns a deep copy so callers can't mutate shared state.
func (d Document) Clone() Document {
	out := d
	out.AdminIDs = slices.Clone(d.AdminIDs)
	out.FsubChannels = slices.Clone(d.FsubChannels)
	out.FsubButtons = slices.Clone(d.FsubButtons)
	out.UserIDs = slices.Clone(d.UserIDs)
	if d.PhotoID != nil {
		p := *d.PhotoID
		out.PhotoID = &p
	}
	out.Videos = make(map[string]string, len(d.Videos))
	for k, v := range d.Videos {
		out.Videos[k] = v
	}
	out.normalize()
	return out
}

// VideoKeys returns the catalog keys in sorted order.
func (d Document) VideoKeys() []string {
	keys := make([]string, 0, len(d.Videos))
	for k := range d.Videos {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
