// Package commandqueue runs tasks in named lanes, one task at a time per lane.
//
// The bot gives every user a lane ("user:<id>"), so one user's updates are handled
// strictly in arrival order while different users proceed in parallel. Housekeeping
// jobs share the "maintenance" lane.
//
// Submit appends to the lane before returning, so submission order is execution order.
// A lane holds at most Config.MaxLaneDepth waiting tasks; past that Submit fails with
// ErrLaneFull and the caller drops the update. MarkSeen gives callers a bounded,
// time-limited set for dropping redelivered updates.
//
// Usage:
//
//	queue := commandqueue.New()
//	defer queue.Close()
//	queue.Submit(ctx, commandqueue.UserLane(42), func(ctx context.Context) (interface{}, error) {
//		return nil, handle(ctx, update)
//	})
package commandqueue
