
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Armin-kho/fsub-video-bot/internal/broadcast"
	"github.com/Armin-kho/fsub-video-bot/internal/payload"
)

// botAPI is the part of *tgbotapi.BotAPI the handlers use.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// memberOracle answers gate membership queries with getChatMember.
type memberOracle struct {
	api botAPI
}

func (o memberOracle) MemberStatus(_ context.Context, channelID, userID int64) (string, error) {
	m, err := o.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: channelID, UserID: userID},
	})
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// payloadSender delivers broadcast payloads and marks permanent rejections.
type payloadSender struct {
	api botAPI
}

func (s payloadSender) Send(_ context.Context, userID int64, p payload.Payload) error {
	c, err := chattableFor(userID, p, nil)
	if err != nil {
		return err
	}
	if _, err := s.api.Send(c); err != nil {
		if isRecipientGone(err) {
			return fmt.Errorf("%w: %v", broadcast.ErrRecipientGone, err)
		}
		return err
	}
	return nil
}

// chattableFor builds the outgoing message for p, optionally with an inline keyboard.
func chattableFor(chatID int64, p payload.Payload, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Chattable, error) {
	switch p.Kind {
	case payload.Text:
		msg := tgbotapi.NewMessage(chatID, p.Text)
		if kb != nil {
			msg.ReplyMarkup = *kb
		}
		return msg, nil
	case payload.Photo:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(p.FileID))
		photo.Caption = p.Caption
		if kb != nil {
			photo.ReplyMarkup = *kb
		}
		return photo, nil
	case payload.Video:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(p.FileID))
		video.Caption = p.Caption
		if kb != nil {
			video.ReplyMarkup = *kb
		}
		return video, nil
	default:
		return nil, broadcast.ErrUnsupportedPayload
	}
}

// payloadFromMessage decodes the replied-to message once at the boundary.
func payloadFromMessage(m *tgbotapi.Message) payload.Payload {
	switch {
	case m == nil:
		return payload.Payload{}
	case m.Text != "":
		return payload.NewText(m.Text)
	case len(m.Photo) > 0:
		// Sizes are ascending; the last one is the largest.
		return payload.NewPhoto(m.Photo[len(m.Photo)-1].FileID, m.Caption)
	case m.Video != nil:
		return payload.NewVideo(m.Video.FileID, m.Caption)
	default:
		return payload.Payload{}
	}
}

func apiError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

// isRecipientGone reports whether err means the user can never be reached:
// the bot was blocked, the account is deactivated, or the chat doesn't exist.
func isRecipientGone(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := apiError(err); ok {
		if e.Code == http.StatusForbidden {
			return true
		}
		return e.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "chat not found")
	}
	msg := strings.ToLower(err.Error())
	return strings.HasPrefix(msg, "forbidden:") || strings.Contains(msg, "chat not found")
}

// errorDescription is the text shown to admins for a failed API call.
func errorDescription(err error) string {
	if e, ok := apiError(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
