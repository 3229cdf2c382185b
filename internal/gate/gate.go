package gate

import (
	"context"

	"go.uber.org/zap"
)

// Membership statuses reported by the chat platform.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// Oracle answers "what is user U's status in channel C".
type Oracle interface {
	MemberStatus(ctx context.Context, channelID, userID int64) (string, error)
}

type Decision struct {
	Admitted    bool
	Unsatisfied []int64
}

// Gate decides admission against the configured gate channels. It holds no
// state and never caches membership.
type Gate struct {
	oracle Oracle
	log    *zap.SugaredLogger
}

func New(oracle Oracle, log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{oracle: oracle, log: log.Named("gate")}
}

// Satisfies reports whether status counts as joined.
func Satisfies(status string) bool {
	switch status {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	}
	return false
}

// Evaluate checks every channel in order, even after the first failure, so the
// user can be shown all of them. A lookup error counts as not joined.
func (g *Gate) Evaluate(ctx context.Context, userID int64, channels []int64) Decision {
	unsatisfied := []int64{}
	for _, ch := range channels {
		status, err := g.oracle.MemberStatus(ctx, ch, userID)
		if err != nil {
			g.log.Warnw("membership check failed", "channel", ch, "user", userID, "err", err)
			unsatisfied = append(unsatisfied, ch)
			continue
		}
		if !Satisfies(status) {
			unsatisfied = append(unsatisfied, ch)
		}
	}
	return Decision{Admitted: len(unsatisfied) == 0, Unsatisfied: unsatisfied}
}
