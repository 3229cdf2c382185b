
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Armin-kho/fsub-video-bot/internal/broadcast"
	"github.com/Armin-kho/fsub-video-bot/internal/config"
	"github.com/Armin-kho/fsub-video-bot/internal/gate"
	"github.com/Armin-kho/fsub-video-bot/internal/metrics"
	"github.com/Armin-kho/fsub-video-bot/internal/scheduler"
	"github.com/Armin-kho/fsub-video-bot/internal/store"
	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

// Deps are the long-lived components the bot is built from.
type Deps struct {
	Store   *store.Store
	Metrics *metrics.Metrics
	Backups *scheduler.Backups
	Clock   utils.Clock
	Log     *zap.SugaredLogger
}

type App struct {
	cfg config.Config

	tg       *tgbotapi.BotAPI
	api      botAPI
	username string

	store   *store.Store
	gate    *gate.Gate
	engine  *broadcast.Engine
	metrics *metrics.Metrics
	backups *scheduler.Backups
	clock   utils.Clock
	log     *zap.SugaredLogger

	// one broadcast at a time
	broadcastMu sync.Mutex

	lastMu        sync.Mutex
	lastBroadcast *broadcast.Outcome

	wg sync.WaitGroup
}

// New connects to the Bot API with cfg.BotToken.
func New(cfg config.Config, deps Deps) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	b.Debug = cfg.Debug

	app := newApp(cfg, b, b.Self.UserName, deps)
	app.tg = b
	return app, nil
}

func newApp(cfg config.Config, api botAPI, username string, deps Deps) *App {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		cfg:      cfg,
		api:      api,
		username: username,
		store:    deps.Store,
		gate:     gate.New(memberOracle{api: api}, log),
		engine: broadcast.New(payloadSender{api: api}, deps.Store,
			broadcast.WithRate(cfg.BroadcastRate),
			broadcast.WithLogger(log)),
		metrics: deps.Metrics,
		backups: deps.Backups,
		clock:   deps.Clock,
		log:     log.Named("bot"),
	}
}

// SeedAdmins claims the setup latch for ids when no admin exists yet.
func (a *App) SeedAdmins(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := a.store.Update(ctx, func(d *store.Document) error { return d.ClaimAdmin(ids...) })
	if errors.Is(err, store.ErrAlreadySetUp) {
		return nil
	}
	if err != nil {
		return err
	}
	a.log.Infow("admins seeded from config", "admins", ids)
	return nil
}

// Run consumes updates until ctx is cancelled, then waits for in-flight handlers.
func (a *App) Run(ctx context.Context) error {
	if a.tg == nil {
		return errors.New("bot: no Bot API connection")
	}
	a.log.Infow("bot authorized", "username", a.username)
	a.metrics.KnownUsers(len(a.store.KnownUsers(ctx)))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := a.tg.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.tg.StopReceivingUpdates()
			a.wg.Wait()
			a.log.Infow("bot stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				a.wg.Wait()
				return nil
			}
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.handleUpdate(ctx, upd)
			}()
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorw("handler panic", "update", upd.UpdateID, "panic", r)
		}
	}()
	switch {
	case upd.Message != nil:
		a.metrics.Update("message")
		a.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		a.metrics.Update("callback")
		a.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (a *App) setLastBroadcast(out broadcast.Outcome) {
	a.lastMu.Lock()
	defer a.lastMu.Unlock()
	a.lastBroadcast = &out
}

func (a *App) getLastBroadcast() (broadcast.Outcome, bool) {
	a.lastMu.Lock()
	defer a.lastMu.Unlock()
	if a.lastBroadcast == nil {
		return broadcast.Outcome{}, false
	}
	return *a.lastBroadcast, true
}

func (a *App) sendHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := a.api.Send(msg); err != nil {
		a.log.Warnw("send failed", "chat", chatID, "err", err)
	}
}

func (a *App) replyHTML(m *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = m.MessageID
	if _, err := a.api.Send(msg); err != nil {
		a.log.Warnw("reply failed", "chat", m.Chat.ID, "err", err)
	}
}

func (a *App) editOrSendMenu(chatID int64, msgID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if msgID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, kb)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		if _, err := a.api.Request(edit); err == nil {
			return
		}
	}
	a.sendHTML(chatID, text, &kb)
}

func (a *App) now() time.Time {
	return time.Now()
}
