
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Armin-kho/fsub-video-bot/internal/broadcast"
	"github.com/Armin-kho/fsub-video-bot/internal/command"
	"github.com/Armin-kho/fsub-video-bot/internal/content"
	"github.com/Armin-kho/fsub-video-bot/internal/store"
	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

var (
	errNotAdmin      = errors.New("admin only")
	errNotConfigured = errors.New("bot has no admin yet")
	// errNoChange aborts a store update that would write the same document.
	errNoChange = errors.New("no change")
)

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return
	}
	if !m.IsCommand() {
		return
	}
	name := strings.ToLower(m.Command())
	if !command.Known(name) {
		return
	}

	if err := a.authorize(ctx, name, m.From.ID); err != nil {
		a.replyHTML(m, txtAdminOnly)
		return
	}

	in := command.Input{Name: name, Args: m.CommandArguments()}
	if m.ReplyToMessage != nil {
		p := payloadFromMessage(m.ReplyToMessage)
		in.Reply = &p
	}
	cmd, err := command.Parse(in)
	if err != nil {
		var ue *command.UsageError
		if errors.As(err, &ue) {
			a.replyHTML(m, usageText(ue.Usage))
			return
		}
		a.log.Warnw("parse command failed", "command", name, "err", err)
		return
	}
	a.dispatch(ctx, m, cmd)
}

func (a *App) authorize(ctx context.Context, name string, userID int64) error {
	if !command.AdminOnly(name) {
		return nil
	}
	if !a.store.Load(ctx).IsAdmin(userID) {
		return errNotAdmin
	}
	return nil
}

func (a *App) dispatch(ctx context.Context, m *tgbotapi.Message, cmd command.Command) {
	switch c := cmd.(type) {
	case command.Setup:
		a.handleSetup(ctx, m)
	case command.Start:
		a.handleStart(ctx, m, c)
	case command.Help:
		a.sendHelpMain(m.Chat.ID, 0)
	case command.MyID:
		a.replyHTML(m, quote(fmt.Sprintf("🆔 Your user ID: <code>%d</code>", m.From.ID)))
	case command.AddFsubChannel:
		a.handleAddFsubChannel(ctx, m, c)
	case command.DelFsubChannel:
		a.handleDelFsubChannel(ctx, m, c)
	case command.ListFsub:
		a.replyHTML(m, listFsubText(a.store.Load(ctx)))
	case command.AddFsubButton:
		a.handleAddFsubButton(ctx, m, c)
	case command.DelFsubButton:
		a.handleDelFsubButton(ctx, m, c)
	case command.SetWelcome:
		a.handleSetWelcome(ctx, m, c)
	case command.GetProfil:
		a.handleGetProfil(ctx, m, c)
	case command.AddVideo:
		a.handleAddVideo(ctx, m, c)
	case command.DelVideo:
		a.handleDelVideo(ctx, m, c)
	case command.ListVideos:
		a.handleListVideos(ctx, m)
	case command.Broadcast:
		a.handleBroadcast(ctx, m, c)
	case command.AddButton:
		a.handleAddButton(m, c)
	case command.Stats:
		a.handleStats(ctx, m)
	case command.Backup:
		a.handleBackup(ctx, m)
	default:
		a.log.Warnw("unhandled command", "command", cmd.Name())
	}
}

func (a *App) replyErr(m *tgbotapi.Message, err error) {
	a.log.Errorw("command failed", "chat", m.Chat.ID, "err", err)
	a.replyHTML(m, quote("❌ "+esc(err.Error())))
}

func (a *App) handleSetup(ctx context.Context, m *tgbotapi.Message) {
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.ClaimAdmin(m.From.ID) })
	switch {
	case errors.Is(err, store.ErrAlreadySetUp):
		a.replyHTML(m, txtAlreadySetUp)
	case err != nil:
		a.replyErr(m, err)
	default:
		a.log.Infow("admin claimed via setup", "user", m.From.ID)
		a.replyHTML(m, txtSetupDone)
	}
}

func (a *App) handleStart(ctx context.Context, m *tgbotapi.Message, c command.Start) {
	userID := m.From.ID
	doc, err := a.store.Update(ctx, func(d *store.Document) error {
		if !d.HasAdmins() {
			return errNotConfigured
		}
		if !d.TrackUser(userID) {
			return errNoChange
		}
		return nil
	})
	switch {
	case errors.Is(err, errNotConfigured):
		a.replyHTML(m, txtNotConfigured)
		return
	case errors.Is(err, errNoChange):
	case err != nil:
		// Registration is best effort; still serve the user.
		a.log.Warnw("register user failed", "user", userID, "err", err)
	default:
		a.metrics.KnownUsers(len(doc.UserIDs))
	}

	decision := a.gate.Evaluate(ctx, userID, doc.FsubChannels)
	a.metrics.Admission(decision.Admitted)
	if !decision.Admitted {
		a.sendJoinPrompt(m.Chat.ID, doc, c.Param)
		return
	}

	res := content.Resolve(c.Param, doc.Videos)
	a.metrics.Lookup(res.Kind.String())
	if res.Kind != content.Found {
		a.replyHTML(m, txtJoinedNoLink)
		return
	}

	video := tgbotapi.NewVideo(m.Chat.ID, tgbotapi.FileID(res.FileID))
	video.Caption = txtVideoCaption
	if _, err := a.api.Send(video); err != nil {
		a.log.Warnw("send video failed", "key", res.Key, "user", userID, "err", err)
		a.replyHTML(m, quote("❌ An error occurred while sending the video: "+esc(errorDescription(err))))
	}
}

// sendJoinPrompt shows the welcome content with the gate buttons and a retry
// link that repeats the same start parameter.
func (a *App) sendJoinPrompt(chatID int64, doc store.Document, param string) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(doc.FsubButtons)+1)
	for _, btn := range doc.FsubButtons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(txtTryAgain, content.DeepLink(a.username, param)),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	text := welcomeText(doc.WelcomeMessage)

	if photoID, ok := doc.Photo(); ok {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		_, err := a.api.Send(photo)
		if err == nil {
			return
		}
		a.log.Warnw("send welcome photo failed, falling back to text", "chat", chatID, "err", err)
	}
	a.sendHTML(chatID, text, &kb)
}

func (a *App) handleAddFsubChannel(ctx context.Context, m *tgbotapi.Message, c command.AddFsubChannel) {
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.AddChannel(c.ChannelID) })
	switch {
	case errors.Is(err, store.ErrChannelExists):
		a.replyHTML(m, txtChannelExists)
	case err != nil:
		a.replyErr(m, err)
	default:
		a.replyHTML(m, quote(fmt.Sprintf("✅ Channel with ID %d was added to the FSub list.", c.ChannelID)))
	}
}

func (a *App) handleDelFsubChannel(ctx context.Context, m *tgbotapi.Message, c command.DelFsubChannel) {
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.RemoveChannel(c.ChannelID) })
	switch {
	case errors.Is(err, store.ErrChannelNotFound):
		a.replyHTML(m, txtChannelNotFound)
	case err != nil:
		a.replyErr(m, err)
	default:
		a.replyHTML(m, quote(fmt.Sprintf("✅ Channel with ID %d was removed from the FSub list.", c.ChannelID)))
	}
}

func (a *App) handleAddFsubButton(ctx context.Context, m *tgbotapi.Message, c command.AddFsubButton) {
	_, err := a.store.Update(ctx, func(d *store.Document) error {
		d.AddButton(c.Text, c.URL)
		return nil
	})
	if err != nil {
		a.replyErr(m, err)
		return
	}
	a.replyHTML(m, quote(fmt.Sprintf("✅ FSub button '%s' was added.", esc(c.Text))))
}

func (a *App) handleDelFsubButton(ctx context.Context, m *tgbotapi.Message, c command.DelFsubButton) {
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.RemoveButton(c.Text) })
	switch {
	case errors.Is(err, store.ErrButtonNotFound):
		a.replyHTML(m, quote(fmt.Sprintf("❌ FSub button '%s' was not found.", esc(c.Text))))
	case err != nil:
		a.replyErr(m, err)
	default:
		a.replyHTML(m, quote(fmt.Sprintf("✅ FSub button '%s' was deleted.", esc(c.Text))))
	}
}

func (a *App) handleSetWelcome(ctx context.Context, m *tgbotapi.Message, c command.SetWelcome) {
	_, err := a.store.Update(ctx, func(d *store.Document) error {
		d.SetWelcome(c.Text)
		return nil
	})
	if err != nil {
		a.replyErr(m, err)
		return
	}
	a.replyHTML(m, quote("✅ Welcome message changed to:\n\n"+esc(c.Text)))
}

func (a *App) handleGetProfil(ctx context.Context, m *tgbotapi.Message, c command.GetProfil) {
	_, err := a.store.Update(ctx, func(d *store.Document) error {
		d.SetPhoto(c.PhotoID)
		return nil
	})
	if err != nil {
		a.replyErr(m, err)
		return
	}
	photo := tgbotapi.NewPhoto(m.Chat.ID, tgbotapi.FileID(c.PhotoID))
	photo.Caption = quote("✅ Welcome picture set!")
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := a.api.Send(photo); err != nil {
		a.replyHTML(m, quote("❌ "+esc(errorDescription(err))))
	}
}

func (a *App) handleAddVideo(ctx context.Context, m *tgbotapi.Message, c command.AddVideo) {
	_, err := a.store.Update(ctx, func(d *store.Document) error {
		d.PutVideo(c.Key, c.FileID)
		return nil
	})
	if err != nil {
		a.replyErr(m, err)
		return
	}
	link := content.DeepLink(a.username, c.Key)
	a.replyHTML(m, quote(fmt.Sprintf("✅ Video <code>%s</code> has been saved!\nShare it with this link: <code>%s</code>", esc(c.Key), esc(link))))
}

func (a *App) handleDelVideo(ctx context.Context, m *tgbotapi.Message, c command.DelVideo) {
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.DeleteVideo(c.Key) })
	switch {
	case errors.Is(err, store.ErrVideoNotFound):
		a.replyHTML(m, quote(fmt.Sprintf("❌ Video <code>%s</code> was not found.", esc(c.Key))))
	case err != nil:
		a.replyErr(m, err)
	default:
		a.replyHTML(m, quote(fmt.Sprintf("✅ Video <code>%s</code> was deleted.", esc(c.Key))))
	}
}

func (a *App) handleListVideos(ctx context.Context, m *tgbotapi.Message) {
	doc := a.store.Load(ctx)
	keys := doc.VideoKeys()
	if len(keys) == 0 {
		a.replyHTML(m, txtNoVideos)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🎬 Videos (%d):</b>\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "• <code>%s</code> | %s\n", esc(k), esc(content.DeepLink(a.username, k)))
	}
	a.replyHTML(m, quote(strings.TrimRight(b.String(), "\n")))
}

func (a *App) handleBroadcast(ctx context.Context, m *tgbotapi.Message, c command.Broadcast) {
	if !a.broadcastMu.TryLock() {
		a.replyHTML(m, txtBroadcastBusy)
		return
	}
	defer a.broadcastMu.Unlock()

	out, err := a.engine.Broadcast(ctx, c.Payload)
	if errors.Is(err, broadcast.ErrUnsupportedPayload) {
		a.replyHTML(m, txtUnsupported)
		return
	}
	if err != nil {
		a.replyErr(m, err)
		return
	}
	a.setLastBroadcast(out)
	a.metrics.Broadcast(out.Delivered, out.Blocked, out.Failed, out.Remaining)
	a.replyHTML(m, quote(fmt.Sprintf(
		"✅ Broadcast finished!\n\n📢 Messages delivered: %s\n💣 Users who blocked the bot: %s\n⚠️ Failed: %s\n\n👤 Active users now: %s",
		utils.FormatCount(out.Delivered),
		utils.FormatCount(out.Blocked),
		utils.FormatCount(out.Failed),
		utils.FormatCount(out.Remaining),
	)))
}

func (a *App) handleAddButton(m *tgbotapi.Message, c command.AddButton) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(c.Text, c.URL)),
	)
	msg, err := chattableFor(m.Chat.ID, c.Payload, &kb)
	if err != nil {
		a.replyHTML(m, txtUnsupported)
		return
	}
	if _, err := a.api.Send(msg); err != nil {
		a.log.Warnw("send message with button failed", "chat", m.Chat.ID, "err", err)
		a.replyHTML(m, quote("❌ "+esc(errorDescription(err))))
	}
}

func (a *App) handleStats(ctx context.Context, m *tgbotapi.Message) {
	doc := a.store.Load(ctx)
	var b strings.Builder
	b.WriteString("<b>📊 Bot stats</b>\n\n")
	fmt.Fprintf(&b, "👤 Known users: %s\n", utils.FormatCount(len(doc.UserIDs)))
	fmt.Fprintf(&b, "🛡 Admins: %d\n", len(doc.AdminIDs))
	fmt.Fprintf(&b, "🔊 FSub channels: %d\n", len(doc.FsubChannels))
	fmt.Fprintf(&b, "🔘 FSub buttons: %d\n", len(doc.FsubButtons))
	fmt.Fprintf(&b, "🎬 Videos: %d\n", len(doc.Videos))
	if out, ok := a.getLastBroadcast(); ok {
		fmt.Fprintf(&b, "\n📢 Last broadcast (%s): %s delivered, %s blocked, %s failed",
			a.clock.Format(out.Finished),
			utils.FormatCount(out.Delivered),
			utils.FormatCount(out.Blocked),
			utils.FormatCount(out.Failed))
	} else {
		b.WriteString("\n📢 No broadcast since start.")
	}
	a.replyHTML(m, quote(b.String()))
}

func (a *App) handleBackup(ctx context.Context, m *tgbotapi.Message) {
	if a.backups == nil {
		a.replyHTML(m, txtBackupDisabled)
		return
	}
	path, err := a.backups.Create(ctx)
	if err != nil {
		a.replyErr(m, err)
		return
	}
	doc := tgbotapi.NewDocument(m.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = "📦 Backup " + a.clock.Format(a.now())
	if _, err := a.api.Send(doc); err != nil {
		a.replyHTML(m, quote("❌ "+esc(errorDescription(err))))
	}
}
