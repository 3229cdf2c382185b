package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armin-kho/fsub-video-bot/internal/config"
	"github.com/Armin-kho/fsub-video-bot/internal/store"
	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	statuses map[int64]string
	memErrs  map[int64]error
	sendErr  func(c tgbotapi.Chattable) error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{statuses: map[int64]string{}, memErrs: map[int64]error{}}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		if err := f.sendErr(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	if err := f.memErrs[cfg.ChatID]; err != nil {
		return tgbotapi.ChatMember{}, err
	}
	status, ok := f.statuses[cfg.ChatID]
	if !ok {
		status = "left"
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (f *fakeAPI) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	switch v := f.last().(type) {
	case tgbotapi.MessageConfig:
		return v.Text
	case tgbotapi.PhotoConfig:
		return v.Caption
	case tgbotapi.VideoConfig:
		return v.Caption
	default:
		t.Fatalf("unexpected last message %T", v)
		return ""
	}
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

func newTestApp(t *testing.T) (*App, *fakeAPI, *store.Store) {
	t.Helper()
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "bot_config.json"))
	require.NoError(t, err)
	st := store.New(backend, nil)
	clock, err := utils.NewClock("", "UTC")
	require.NoError(t, err)

	api := newFakeAPI()
	app := newApp(config.Config{}, api, "testbot", Deps{Store: st, Clock: clock})
	return app, api, st
}

func cmdMsg(userID int64, text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func replyTo(m *tgbotapi.Message, replied *tgbotapi.Message) *tgbotapi.Message {
	m.ReplyToMessage = replied
	return m
}

func send(app *App, m *tgbotapi.Message) {
	app.handleUpdate(context.Background(), tgbotapi.Update{Message: m})
}

func setupAdmin(t *testing.T, app *App, st *store.Store, adminID int64) {
	t.Helper()
	send(app, cmdMsg(adminID, "/setup"))
	require.Equal(t, []int64{adminID}, st.Load(context.Background()).AdminIDs)
}

func TestSetup_OneShotLatch(t *testing.T) {
	app, api, st := newTestApp(t)
	ctx := context.Background()

	send(app, cmdMsg(1, "/setup"))
	assert.Equal(t, txtSetupDone, api.lastText(t))

	send(app, cmdMsg(2, "/setup"))
	assert.Equal(t, txtAlreadySetUp, api.lastText(t))
	send(app, cmdMsg(1, "/setup"))

	assert.Equal(t, []int64{1}, st.Load(ctx).AdminIDs)
}

func TestSeedAdmins_UsesLatch(t *testing.T) {
	app, _, st := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.SeedAdmins(ctx, []int64{5, 6}))
	require.NoError(t, app.SeedAdmins(ctx, []int64{7}))
	assert.Equal(t, []int64{5, 6}, st.Load(ctx).AdminIDs)
}

func TestStart_BeforeSetup(t *testing.T) {
	app, api, st := newTestApp(t)

	send(app, cmdMsg(9, "/start Ep1"))
	assert.Equal(t, txtNotConfigured, api.lastText(t))
	assert.Empty(t, st.Load(context.Background()).UserIDs)
}

func TestStart_DeniedShowsJoinPromptWithRetryLink(t *testing.T) {
	app, api, st := newTestApp(t)
	ctx := context.Background()
	setupAdmin(t, app, st, 1)
	_, err := st.Update(ctx, func(d *store.Document) error {
		d.AddButton("Join Now", "https://t.me/chan")
		d.SetWelcome("Join <first>")
		return d.AddChannel(-100)
	})
	require.NoError(t, err)
	api.statuses[-100] = "left"

	send(app, cmdMsg(42, "/start Ep1"))

	msg, ok := api.last().(tgbotapi.MessageConfig)
	require.True(t, ok, "got %T", api.last())
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Join &lt;first&gt;")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Join Now", kb.InlineKeyboard[0][0].Text)
	require.NotNil(t, kb.InlineKeyboard[1][0].URL)
	assert.Equal(t, "https://t.me/testbot?start=Ep1", *kb.InlineKeyboard[1][0].URL)

	assert.Equal(t, []int64{42}, st.Load(ctx).UserIDs)
}

func TestStart_DeniedUsesWelcomePhoto(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)
	_, err := st.Update(context.Background(), func(d *store.Document) error {
		d.SetPhoto("photo-1")
		return d.AddChannel(-100)
	})
	require.NoError(t, err)
	api.memErrs[-100] = errors.New("Bad Request: chat not found")

	send(app, cmdMsg(42, "/start"))

	photo, ok := api.last().(tgbotapi.PhotoConfig)
	require.True(t, ok, "got %T", api.last())
	assert.Equal(t, tgbotapi.FileID("photo-1"), photo.File)
	kb := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "https://t.me/testbot?start=", *kb.InlineKeyboard[0][0].URL)
}

func TestStart_AdmittedDeliversVideo(t *testing.T) {
	app, api, st := newTestApp(t)
	ctx := context.Background()
	setupAdmin(t, app, st, 1)
	_, err := st.Update(ctx, func(d *store.Document) error {
		d.PutVideo("Ep1", "vid-1")
		return d.AddChannel(-100)
	})
	require.NoError(t, err)
	api.statuses[-100] = "member"

	send(app, cmdMsg(42, "/start Ep1"))
	video, ok := api.last().(tgbotapi.VideoConfig)
	require.True(t, ok, "got %T", api.last())
	assert.Equal(t, tgbotapi.FileID("vid-1"), video.File)
	assert.Equal(t, int64(42), video.ChatID)

	send(app, cmdMsg(42, "/start ep1"))
	assert.Equal(t, txtJoinedNoLink, api.lastText(t))

	send(app, cmdMsg(42, "/start"))
	assert.Equal(t, txtJoinedNoLink, api.lastText(t))

	assert.Equal(t, []int64{42}, st.Load(ctx).UserIDs)
}

func TestAdminCommand_RejectsNonAdmin(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(2, "/addfsubchannel -100"))
	assert.Equal(t, txtAdminOnly, api.lastText(t))

	// Authorization comes before argument validation.
	send(app, cmdMsg(2, "/addfsubchannel"))
	assert.Equal(t, txtAdminOnly, api.lastText(t))

	assert.Empty(t, st.Load(context.Background()).FsubChannels)
}

func TestAddFsubChannel_ReAddIsIdempotent(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/addfsubchannel -100"))
	assert.Contains(t, api.lastText(t), "was added")
	send(app, cmdMsg(1, "/addfsubchannel -100"))
	assert.Equal(t, txtChannelExists, api.lastText(t))

	assert.Equal(t, []int64{-100}, st.Load(context.Background()).FsubChannels)
}

func TestAddFsubChannel_InvalidID(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/addfsubchannel abc"))
	assert.Contains(t, api.lastText(t), "Invalid channel ID")
	assert.Empty(t, st.Load(context.Background()).FsubChannels)
}

func TestFsubButtons_AddListDelete(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/addfsubbutton Join Now https://t.me/x"))
	send(app, cmdMsg(1, "/listfsub"))
	assert.Contains(t, api.lastText(t), "Join Now | <code>https://t.me/x</code>")

	send(app, cmdMsg(1, "/delfsubbutton Join Now"))
	assert.Contains(t, api.lastText(t), "was deleted")
	send(app, cmdMsg(1, "/delfsubbutton Join Now"))
	assert.Contains(t, api.lastText(t), "was not found")
	assert.Empty(t, st.Load(context.Background()).FsubButtons)
}

func TestSetWelcome_RequiresTextReply(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/setwelcome"))
	assert.Contains(t, api.lastText(t), "reply to the text message")

	send(app, replyTo(cmdMsg(1, "/setwelcome"), &tgbotapi.Message{Text: "Hello <you>"}))
	assert.Contains(t, api.lastText(t), "Hello &lt;you&gt;")
	assert.Equal(t, "Hello <you>", st.Load(context.Background()).WelcomeMessage)
}

func TestGetProfil_StoresLargestSize(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	photo := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}}
	send(app, replyTo(cmdMsg(1, "/getprofil"), photo))

	id, ok := st.Load(context.Background()).Photo()
	require.True(t, ok)
	assert.Equal(t, "large", id)
	_, isPhoto := api.last().(tgbotapi.PhotoConfig)
	assert.True(t, isPhoto)
}

func TestAddVideo_RepliesWithDeepLink(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/addvideo Ep1"))
	assert.Contains(t, api.lastText(t), "reply to a video")

	send(app, replyTo(cmdMsg(1, "/addvideo Ep1"), &tgbotapi.Message{Video: &tgbotapi.Video{FileID: "vid"}}))
	assert.Contains(t, api.lastText(t), "https://t.me/testbot?start=Ep1")
	assert.Equal(t, "vid", st.Load(context.Background()).Videos["Ep1"])

	send(app, cmdMsg(1, "/listvideos"))
	assert.Contains(t, api.lastText(t), "<code>Ep1</code>")

	send(app, cmdMsg(1, "/delvideo Ep1"))
	assert.Empty(t, st.Load(context.Background()).Videos)
}

func TestBroadcast_RemovesBlockedUsers(t *testing.T) {
	app, api, st := newTestApp(t)
	ctx := context.Background()
	setupAdmin(t, app, st, 1)
	_, err := st.Update(ctx, func(d *store.Document) error {
		d.UserIDs = []int64{1, 2, 3}
		return nil
	})
	require.NoError(t, err)

	api.sendErr = func(c tgbotapi.Chattable) error {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == 2 {
			return &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
		}
		return nil
	}

	send(app, replyTo(cmdMsg(1, "/broadcast"), &tgbotapi.Message{Text: "news"}))

	report := api.lastText(t)
	assert.Contains(t, report, "Messages delivered: 2")
	assert.Contains(t, report, "blocked the bot: 1")
	assert.Contains(t, report, "Active users now: 2")
	assert.Equal(t, []int64{1, 3}, st.Load(ctx).UserIDs)

	out, ok := app.getLastBroadcast()
	require.True(t, ok)
	assert.Equal(t, 2, out.Delivered)
}

func TestBroadcast_UnsupportedPayload(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, replyTo(cmdMsg(1, "/broadcast"), &tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "s"}}))
	assert.Equal(t, txtUnsupported, api.lastText(t))
}

func TestAddButton_ResendsWithButton(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, replyTo(cmdMsg(1, "/addbutton Visit Site https://example.com"),
		&tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v"}, Caption: "cap"}))

	video, ok := api.last().(tgbotapi.VideoConfig)
	require.True(t, ok, "got %T", api.last())
	assert.Equal(t, "cap", video.Caption)
	kb := video.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "Visit Site", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://example.com", *kb.InlineKeyboard[0][0].URL)

	// Nothing is persisted.
	assert.Empty(t, st.Load(context.Background()).FsubButtons)
}

func TestStats(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/stats"))
	text := api.lastText(t)
	assert.Contains(t, text, "Admins: 1")
	assert.Contains(t, text, "No broadcast since start.")
}

func TestBackup_DisabledWithoutBackups(t *testing.T) {
	app, api, st := newTestApp(t)
	setupAdmin(t, app, st, 1)

	send(app, cmdMsg(1, "/backup"))
	assert.Equal(t, txtBackupDisabled, api.lastText(t))
}

func TestIgnoresGroupsAndPlainText(t *testing.T) {
	app, api, _ := newTestApp(t)

	group := cmdMsg(1, "/setup")
	group.Chat = &tgbotapi.Chat{ID: -5, Type: "supergroup"}
	send(app, group)
	send(app, &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1, Type: "private"}, Text: "hi"})
	send(app, cmdMsg(1, "/unknown"))

	assert.Nil(t, api.last())
}
