package fsm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoHandler reports that an event matched no route and was dropped.
var ErrNoHandler = errors.New("no handler for event")

// Dispatch outcomes, as recorded in metrics.
const (
	OutcomeHandled = "handled"
	OutcomeDropped = "dropped"
	OutcomeBlocked = "blocked"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

// SessionStore is the subset of session.Store the router needs.
type SessionStore interface {
	Get(userID int64) *session.Session
	Put(sess *session.Session) error
	Reset(userID int64) *session.Session
}

// Authorizer decides whether a user may use the workflows.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID int64) bool
}

// Screens presents the router-owned views.
type Screens interface {
	// Welcome greets a restarted user and asks for a language.
	Welcome(ctx context.Context, sess *session.Session) error
	// MainMenu shows the workflow menu.
	MainMenu(ctx context.Context, sess *session.Session) error
	// Blocked shows the subscription prompt with a re-check action.
	Blocked(ctx context.Context, sess *session.Session) error
}

// Router dispatches events through the gate and the table.
type Router struct {
	table   *Table
	store   SessionStore
	gate    Authorizer
	screens Screens
	logger  zerolog.Logger
}

// NewRouter freezes table and returns a router over it.
func NewRouter(table *Table, store SessionStore, gate Authorizer, screens Screens) *Router {
	table.Freeze()
	observability.EnsureRegistered()
	return &Router{
		table:   table,
		store:   store,
		gate:    gate,
		screens: screens,
		logger:  log.Logger.With().Str("component", "router").Logger(),
	}
}

// Dispatch processes one event for ev.UserID. Calls for the same user must not overlap.
// ErrNoHandler is returned for dropped events; other errors come from handlers or the store.
func (r *Router) Dispatch(ctx context.Context, ev *Event) error {
	ctx, span := tracing.StartSpan(
		ctx,
		"yordamchi.fsm",
		"fsm.dispatch",
		attribute.Int64("user_id", ev.UserID),
		attribute.String("event.kind", string(ev.Kind)),
		attribute.String("event.tag", string(ev.Tag)),
	)
	defer span.End()

	sess := r.store.Get(ev.UserID)
	from := sess.State
	logger := tracing.LoggerFromContext(ctx, r.logger).With().
		Str("state", string(from)).
		Str("kind", string(ev.Kind)).
		Str("tag", string(ev.Tag)).
		Logger()

	outcome, err := r.route(ctx, sess, ev)

	observability.RecordEvent(string(from.Workflow()), string(ev.Kind), outcome)
	switch {
	case err == nil:
		logger.Debug().Str("outcome", outcome).Msg("Event dispatched")
	case errors.Is(err, ErrNoHandler):
		logger.Debug().Msg("Event dropped")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Event handling failed")
	}
	return err
}

func (r *Router) route(ctx context.Context, sess *session.Session, ev *Event) (string, error) {
	if ev.Tag == TagStart {
		return r.restart(ctx, ev)
	}

	if sess.State == session.StateAwaitingLanguage {
		switch ev.Tag {
		case TagBack, TagMenu, TagGateRecheck:
			return OutcomeIgnored, nil
		}
		return r.invoke(ctx, sess, ev)
	}

	if ev.Tag == TagGateRecheck {
		return r.recheck(ctx, sess)
	}

	if !r.gate.IsAuthorized(ctx, sess.UserID) {
		if err := r.screens.Blocked(ctx, sess); err != nil {
			return OutcomeError, fmt.Errorf("show blocked prompt: %w", err)
		}
		return OutcomeBlocked, nil
	}

	switch ev.Tag {
	case TagBack, TagMenu:
		return r.toMainMenu(ctx, sess)
	}

	if _, ok := ev.Tag.Workflow(); ok && sess.State != session.StateMainMenu {
		if ev.Kind == KindText {
			// Typed menu labels navigate only from the main menu; inside a
			// workflow they are ordinary input.
			ev.Tag = TagNone
		} else {
			// Opening another workflow passes through the main menu.
			sess.LeaveWorkflow()
		}
	}

	return r.invoke(ctx, sess, ev)
}

func (r *Router) invoke(ctx context.Context, sess *session.Session, ev *Event) (string, error) {
	h, ok := r.table.Lookup(sess.State, ev.Kind, ev.Tag)
	if !ok {
		return OutcomeDropped, ErrNoHandler
	}

	from := sess.State
	if err := h(tracing.WithWorkflow(ctx, string(from.Workflow())), sess, ev); err != nil {
		return OutcomeError, err
	}
	if err := r.commit(sess, from); err != nil {
		return OutcomeError, err
	}
	return OutcomeHandled, nil
}

func (r *Router) restart(ctx context.Context, ev *Event) (string, error) {
	sess := r.store.Reset(ev.UserID)
	observability.RecordSessionAudit(ctx, ev.UserID, "session_reset", nil)
	if err := r.screens.Welcome(ctx, sess); err != nil {
		return OutcomeError, fmt.Errorf("show welcome: %w", err)
	}
	return OutcomeHandled, nil
}

func (r *Router) recheck(ctx context.Context, sess *session.Session) (string, error) {
	if !r.gate.IsAuthorized(ctx, sess.UserID) {
		if err := r.screens.Blocked(ctx, sess); err != nil {
			return OutcomeError, fmt.Errorf("show blocked prompt: %w", err)
		}
		return OutcomeBlocked, nil
	}
	return r.toMainMenu(ctx, sess)
}

func (r *Router) toMainMenu(ctx context.Context, sess *session.Session) (string, error) {
	from := sess.State
	sess.LeaveWorkflow()
	if err := r.commit(sess, from); err != nil {
		return OutcomeError, err
	}
	if err := r.screens.MainMenu(ctx, sess); err != nil {
		return OutcomeError, fmt.Errorf("show main menu: %w", err)
	}
	return OutcomeHandled, nil
}

func (r *Router) commit(sess *session.Session, from session.State) error {
	if err := r.store.Put(sess); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	observability.RecordTransition(string(from), string(sess.State))
	return nil
}
