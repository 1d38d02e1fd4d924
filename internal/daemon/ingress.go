package daemon

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/harun/yordamchi/pkg/commandqueue"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/registry"
)

// handleUpdate classifies one update and queues it on its user's lane. It runs on the
// poll loop and never blocks on workflow work.
func (d *Daemon) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, profile, ok := d.classifier.Classify(update)
	if !ok {
		d.logger.Debug().Int("update_id", update.UpdateID).Msg("Update ignored")
		return
	}

	if d.queue.MarkSeen("update:" + strconv.Itoa(update.UpdateID)) {
		observability.RecordDuplicateUpdate()
		d.logger.Debug().Int("update_id", update.UpdateID).Msg("Duplicate update skipped")
		return
	}

	// Queued work outlives the poll loop so shutdown can drain it.
	taskCtx := tracing.Detach(tracing.NewUpdateContext(ctx, ev.UpdateID, ev.UserID))
	_, err := d.queue.Submit(taskCtx, commandqueue.UserLane(ev.UserID), func(ctx context.Context) (interface{}, error) {
		return nil, d.process(ctx, ev, profile)
	})
	if err != nil {
		// The lane is flooded or shutting down; the update is dropped.
		d.logger.Warn().Err(err).Int64("user_id", ev.UserID).Int("update_id", update.UpdateID).Msg("Update dropped")
	}
}

// process runs one event to completion. Calls for one user are serialized by the lane.
func (d *Daemon) process(ctx context.Context, ev *fsm.Event, profile registry.Profile) error {
	logger := tracing.LoggerFromContext(ctx, d.logger.GetZerolog())

	if err := d.registry.Touch(ctx, profile); err != nil {
		logger.Warn().Err(err).Int64("user_id", profile.UserID).Msg("Failed to record user")
	}

	err := d.router.Dispatch(ctx, ev)

	if ev.CallbackID != "" {
		if aerr := d.presenter.AnswerCallback(ev.CallbackID); aerr != nil {
			logger.Debug().Err(aerr).Msg("Failed to answer callback")
		}
	}

	if errors.Is(err, fsm.ErrNoHandler) {
		return nil
	}
	return err
}
