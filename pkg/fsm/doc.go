// Package fsm routes classified chat events to workflow handlers based on the
// user's session state.
//
// Invariants:
// - The dispatch table is built once at startup and frozen before the first event.
// - Lookup tries (state, kind, tag), then (state, kind), then the state's fallback; unmatched events are dropped.
// - Every state except awaiting_language is behind the access gate. A denied check leaves the session untouched.
// - "back" and "menu" leave any workflow for the main menu, clearing workflow data. Both are ignored while awaiting a language.
// - A session is stored only after its handler returns nil, so a failed handler leaves no partial update.
//
// Events for one user must be dispatched sequentially; the caller provides that ordering
// (the daemon uses a commandqueue lane per user).
package fsm
