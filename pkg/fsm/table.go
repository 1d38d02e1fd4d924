package fsm

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/harun/yordamchi/pkg/session"
)

// Handler processes one event against the user's session. It may mutate sess; the
// router stores the result only when Handler returns nil.
type Handler func(ctx context.Context, sess *session.Session, ev *Event) error

type routeKey struct {
	state session.State
	kind  Kind
	tag   Tag
}

// Table is the static (state, kind, tag) -> Handler registry.
type Table struct {
	routes    map[routeKey]Handler
	fallbacks map[session.State]Handler
	frozen    atomic.Bool
}

// NewTable creates an empty, writable table.
func NewTable() *Table {
	return &Table{
		routes:    make(map[routeKey]Handler),
		fallbacks: make(map[session.State]Handler),
	}
}

// Register binds a handler to (state, kind, tag). TagNone matches any tag of that kind
// that has no more specific registration.
func (t *Table) Register(state session.State, kind Kind, tag Tag, h Handler) {
	t.mustBeWritable()
	if !state.Valid() {
		panic(fmt.Sprintf("fsm: register on unknown state %q", state))
	}
	if h == nil {
		panic("fsm: nil handler")
	}
	key := routeKey{state: state, kind: kind, tag: tag}
	if _, exists := t.routes[key]; exists {
		panic(fmt.Sprintf("fsm: duplicate route %s/%s/%s", state, kind, tag))
	}
	t.routes[key] = h
}

// Fallback sets the catch-all handler for a state.
func (t *Table) Fallback(state session.State, h Handler) {
	t.mustBeWritable()
	if !state.Valid() {
		panic(fmt.Sprintf("fsm: fallback on unknown state %q", state))
	}
	if h == nil {
		panic("fsm: nil handler")
	}
	t.fallbacks[state] = h
}

// Freeze makes the table read-only. Later registrations panic.
func (t *Table) Freeze() {
	t.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// Lookup returns the most specific handler for the triple.
func (t *Table) Lookup(state session.State, kind Kind, tag Tag) (Handler, bool) {
	if h, ok := t.routes[routeKey{state: state, kind: kind, tag: tag}]; ok {
		return h, true
	}
	if tag != TagNone {
		if h, ok := t.routes[routeKey{state: state, kind: kind, tag: TagNone}]; ok {
			return h, true
		}
	}
	if h, ok := t.fallbacks[state]; ok {
		return h, true
	}
	return nil, false
}

// Len returns the number of explicit routes plus fallbacks.
func (t *Table) Len() int {
	return len(t.routes) + len(t.fallbacks)
}

func (t *Table) mustBeWritable() {
	if t.frozen.Load() {
		panic("fsm: table is frozen")
	}
}
