// Package gate decides whether a user may reach the workflows, based on an external
// membership oracle.
//
// The gate fails open: an oracle error or an unknown answer authorizes the user, so an
// outage of the oracle never locks everyone out. Only a definite not-member answer denies.
package gate

import (
	"context"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status is an oracle answer.
type Status int

const (
	StatusUnknown Status = iota
	StatusMember
	StatusNotMember
)

func (s Status) String() string {
	switch s {
	case StatusMember:
		return "member"
	case StatusNotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// Oracle reports a user's membership.
type Oracle interface {
	Check(ctx context.Context, userID int64) (Status, error)
}

// Gate wraps an Oracle with the fail-open policy.
type Gate struct {
	oracle  Oracle
	timeout time.Duration
	logger  zerolog.Logger
}

// New returns a gate over oracle. A nil oracle disables the gate.
func New(oracle Oracle, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		oracle:  oracle,
		timeout: timeout,
		logger:  log.Logger.With().Str("component", "gate").Logger(),
	}
}

// Enabled reports whether an oracle is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.oracle != nil
}

// IsAuthorized asks the oracle about userID and applies the fail-open policy.
func (g *Gate) IsAuthorized(ctx context.Context, userID int64) bool {
	if !g.Enabled() {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	status, err := g.oracle.Check(checkCtx, userID)
	observability.RecordAdapterCall("membership", time.Since(start), err == nil)

	logger := tracing.LoggerFromContext(ctx, g.logger)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("Membership check failed, allowing")
		status = StatusUnknown
	}
	observability.RecordGateDecision(status.String())

	if status == StatusNotMember {
		observability.RecordGateAudit(ctx, userID, "denied", nil)
		logger.Info().Int64("user_id", userID).Msg("Access denied, not a member")
		return false
	}
	return true
}
