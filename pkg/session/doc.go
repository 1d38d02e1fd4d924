// Package session holds per-user conversation state for the bot.
//
// Invariants:
// - Exactly one Session exists per user id; Put overwrites it wholesale.
// - Handlers work on a copy returned by Get and publish it with Put.
// - History never exceeds MaxHistoryTurns turns.
// - The document buffer is empty whenever the state is not StateDocumentAssembly.
//
// Usage:
//
//	store := session.NewStore()
//	sess := store.Get(42)
//	sess.State = session.StateMainMenu
//	_ = store.Put(sess)
package session
