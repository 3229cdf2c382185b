// Package payload describes the content of a message an admin replied to,
// decoded once at the transport boundary.
package payload

type Kind int

const (
	Unsupported Kind = iota
	Text
	Photo
	Video
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Photo:
		return "photo"
	case Video:
		return "video"
	default:
		return "unsupported"
	}
}

// Payload is a tagged union: Text carries Text, Photo and Video carry FileID
// and an optional Caption.
type Payload struct {
	Kind    Kind
	Text    string
	FileID  string
	Caption string
}

func NewText(text string) Payload {
	return Payload{Kind: Text, Text: text}
}

func NewPhoto(fileID, caption string) Payload {
	return Payload{Kind: Photo, FileID: fileID, Caption: caption}
}

func NewVideo(fileID, caption string) Payload {
	return Payload{Kind: Video, FileID: fileID, Caption: caption}
}

func (p Payload) IsText() bool  { return p.Kind == Text }
func (p Payload) IsPhoto() bool { return p.Kind == Photo }
func (p Payload) IsVideo() bool { return p.Kind == Video }

// Deliverable reports whether the payload can be re-sent to users.
func (p Payload) Deliverable() bool {
	switch p.Kind {
	case Text:
		return p.Text != ""
	case Photo, Video:
		return p.FileID != ""
	default:
		return false
	}
}
