
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Armin-kho/fsub-video-bot/internal/command"
)

const (
	cbHelpUser  = "help_menu_user"
	cbHelpAdmin = "help_menu_admin"
	cbHelpMain  = "help_main_menu"
	cbHelpDesc  = "help_desc_"

	helpTypeUser  = "user"
	helpTypeAdmin = "admin"
)

var userCommands = []string{command.NameStart, command.NameHelp, command.NameMyID}

var adminCommands = []string{
	command.NameAddFsubChannel, command.NameDelFsubChannel, command.NameListFsub,
	command.NameAddFsubButton, command.NameDelFsubButton, command.NameSetWelcome,
	command.NameGetProfil, command.NameAddVideo, command.NameDelVideo,
	command.NameListVideos, command.NameBroadcast, command.NameAddButton,
	command.NameStats, command.NameBackup, command.NameSetup,
}

var commandDescriptions = map[string]string{
	command.NameStart:          "Starts the bot and checks your channel subscriptions.",
	command.NameHelp:           "Shows the help menu and the list of commands.",
	command.NameMyID:           "Shows your Telegram user ID.",
	command.NameAddFsubChannel: "Adds a channel to the forced subscription (FSub) list. Format: /addfsubchannel -100123456789",
	command.NameDelFsubChannel: "Removes a channel from the FSub list. Format: /delfsubchannel -100123456789",
	command.NameListFsub:       "Shows every FSub channel and button.",
	command.NameAddFsubButton:  "Adds a button to the FSub message. Format: /addfsubbutton Join Channel https://t.me/examplechannel",
	command.NameDelFsubButton:  "Deletes FSub buttons by their text. Format: /delfsubbutton Join Channel",
	command.NameSetWelcome:     "Sets the message shown to users who have not joined. Reply to the text you want to use.",
	command.NameGetProfil:      "Sets the picture shown to users who have not joined. Reply to the picture you want to use.",
	command.NameAddVideo:       "Saves a video and creates a share link. Reply to the video with /addvideo video_name",
	command.NameDelVideo:       "Deletes a saved video. Format: /delvideo video_name",
	command.NameListVideos:     "Lists saved videos with their share links.",
	command.NameBroadcast:      "Sends a message to every bot user. Reply to the text or media you want to broadcast.",
	command.NameAddButton:      "Re-sends a message with an inline button. Reply to it with /addbutton ButtonText https://t.me/examplechannel",
	command.NameStats:          "Shows user, channel, video and broadcast counts.",
	command.NameBackup:         "Sends you a snapshot of the bot configuration.",
	command.NameSetup:          "Makes you the bot admin. Works only once.",
}

const (
	helpMainText  = "<blockquote><b>Hi!</b> Here is the list of commands you can use:</blockquote>"
	helpUserText  = "<blockquote>Commands available to users:</blockquote>"
	helpAdminText = "<blockquote>Commands available to admins:</blockquote>"
	helpBack      = "⬅️ Back"
)

func helpMainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👤 User commands", cbHelpUser)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛡 Admin commands", cbHelpAdmin)),
	)
}

// commandKeyboard lays commands out three per row, followed by a back button.
func commandKeyboard(helpType string, cmds []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range cmds {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("/"+c, cbHelpDesc+helpType+"_"+c))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(helpBack, cbHelpMain)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (a *App) sendHelpMain(chatID int64, msgID int) {
	a.editOrSendMenu(chatID, msgID, helpMainText, helpMainKeyboard())
}

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Always answer to remove the spinner.
	if _, err := a.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		a.log.Debugw("answer callback failed", "err", err)
	}
	if q.Message == nil || q.From == nil {
		return
	}
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	switch {
	case q.Data == cbHelpMain:
		a.sendHelpMain(chatID, msgID)
	case q.Data == cbHelpUser:
		a.editOrSendMenu(chatID, msgID, helpUserText, commandKeyboard(helpTypeUser, userCommands))
	case q.Data == cbHelpAdmin:
		if !a.store.Load(ctx).IsAdmin(q.From.ID) {
			a.editOrSendMenu(chatID, msgID, txtAdminOnly, tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(helpBack, cbHelpMain)),
			))
			return
		}
		a.editOrSendMenu(chatID, msgID, helpAdminText, commandKeyboard(helpTypeAdmin, adminCommands))
	case strings.HasPrefix(q.Data, cbHelpDesc):
		a.sendCommandDescription(chatID, msgID, strings.TrimPrefix(q.Data, cbHelpDesc))
	}
}

// sendCommandDescription handles "<type>_<command>" from a help_desc_ callback.
func (a *App) sendCommandDescription(chatID int64, msgID int, rest string) {
	helpType, name, ok := strings.Cut(rest, "_")
	if !ok || (helpType != helpTypeUser && helpType != helpTypeAdmin) {
		return
	}
	desc, found := commandDescriptions[name]
	if !found {
		desc = "Description not found."
	}
	text := fmt.Sprintf("<b>Command: /%s</b>\n%s", esc(name), quote(esc(desc)))
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(helpBack, "help_menu_"+helpType)),
	)
	a.editOrSendMenu(chatID, msgID, text, kb)
}
