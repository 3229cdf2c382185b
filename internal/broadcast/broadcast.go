package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Armin-kho/fsub-video-bot/internal/payload"
)

// DefaultRate is the per-second send rate, under the Bot API's global limit.
const DefaultRate = 25

var (
	// ErrRecipientGone marks a delivery the platform rejected for good
	// (bot blocked, user deactivated, chat not found).
	ErrRecipientGone      = errors.New("recipient unreachable")
	ErrUnsupportedPayload = errors.New("unsupported payload")
)

type Sender interface {
	Send(ctx context.Context, userID int64, p payload.Payload) error
}

// Audience is the population a broadcast is sent to.
type Audience interface {
	KnownUsers(ctx context.Context) []int64
	Forget(ctx context.Context, ids []int64) (int, error)
}

type Outcome struct {
	RunID     string
	Delivered int
	Blocked   int
	Failed    int
	Remaining int
	Started   time.Time
	Finished  time.Time
}

type Engine struct {
	sender   Sender
	audience Audience
	limiter  *rate.Limiter
	log      *zap.SugaredLogger
}

type Option func(*Engine)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log.Named("broadcast")
		}
	}
}

// WithRate paces sends to perSecond messages per second. Zero or less disables pacing.
func WithRate(perSecond float64) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func New(sender Sender, audience Audience, opts ...Option) *Engine {
	e := &Engine{
		sender:   sender,
		audience: audience,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRate), 1),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Broadcast sends p to every known user, one at a time. Users whose delivery
// failed permanently are removed from the audience in a single write after the
// pass. If ctx is cancelled mid-pass nothing is removed.
func (e *Engine) Broadcast(ctx context.Context, p payload.Payload) (Outcome, error) {
	if !p.Deliverable() {
		return Outcome{}, ErrUnsupportedPayload
	}

	out := Outcome{RunID: uuid.NewString(), Started: time.Now()}
	log := e.log.With("run", out.RunID, "kind", p.Kind.String())

	users := e.audience.KnownUsers(ctx)
	log.Infow("broadcast started", "recipients", len(users))

	var gone []int64
	for _, uid := range users {
		if err := e.limiter.Wait(ctx); err != nil {
			log.Warnw("broadcast aborted", "err", err, "delivered", out.Delivered)
			return out, fmt.Errorf("broadcast aborted: %w", err)
		}
		err := e.sender.Send(ctx, uid, p)
		switch {
		case err == nil:
			out.Delivered++
		case errors.Is(err, ErrRecipientGone):
			out.Blocked++
			gone = append(gone, uid)
		case ctx.Err() != nil:
			log.Warnw("broadcast aborted", "err", ctx.Err(), "delivered", out.Delivered)
			return out, fmt.Errorf("broadcast aborted: %w", ctx.Err())
		default:
			out.Failed++
			log.Warnw("delivery failed", "user", uid, "err", err)
		}
	}

	remaining, err := e.audience.Forget(ctx, gone)
	if err != nil {
		return out, fmt.Errorf("forget unreachable users: %w", err)
	}
	out.Remaining = remaining
	out.Finished = time.Now()

	log.Infow("broadcast finished",
		"delivered", out.Delivered,
		"blocked", out.Blocked,
		"failed", out.Failed,
		"remaining", out.Remaining,
		"took", out.Finished.Sub(out.Started))
	return out, nil
}
