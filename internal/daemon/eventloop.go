package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/yordamchi/internal/config"
	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/pkg/commandqueue"
	"github.com/robfig/cron/v3"
)

// EventLoop runs the periodic maintenance jobs on the maintenance lane.
type EventLoop struct {
	daemon *Daemon
	cron   *cron.Cron
}

// NewEventLoop schedules the maintenance jobs named in the config. An empty
// schedule disables its job.
func NewEventLoop(d *Daemon) (*EventLoop, error) {
	e := &EventLoop{
		daemon: d,
		cron:   cron.New(),
	}

	m := d.config.Maintenance
	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{"registry_flush", m.RegistryFlush, e.flushRegistry},
		{"session_snapshot", m.SessionSnapshot, e.snapshotSessions},
		{"queue_prune", m.QueuePrune, e.pruneQueue},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		job := job
		if _, err := e.cron.AddFunc(job.schedule, func() { e.submit(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.schedule, err)
		}
	}

	return e, nil
}

// Start begins firing jobs.
func (e *EventLoop) Start() {
	e.daemon.logger.Info().Int("jobs", len(e.cron.Entries())).Msg("Event loop started")
	e.cron.Start()
}

// Stop stops scheduling and waits for a running cron callback to return.
func (e *EventLoop) Stop() {
	<-e.cron.Stop().Done()
	e.daemon.logger.Info().Msg("Event loop stopping")
}

// submit queues job on the maintenance lane so jobs never overlap each other.
func (e *EventLoop) submit(name string, job func(ctx context.Context) error) {
	_, err := e.daemon.queue.Submit(e.daemon.ctx, commandqueue.LaneMaintenance, func(ctx context.Context) (interface{}, error) {
		if err := job(ctx); err != nil {
			e.daemon.logger.Warn().Err(err).Str("job", name).Msg("Maintenance job failed")
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		e.daemon.logger.Warn().Err(err).Str("job", name).Msg("Maintenance job skipped")
	}
}

func (e *EventLoop) flushRegistry(ctx context.Context) error {
	reg := e.daemon.registry
	if err := reg.Flush(ctx); err != nil {
		return fmt.Errorf("flush registry: %w", err)
	}
	n, err := reg.Count(ctx)
	if err != nil {
		return fmt.Errorf("count registry: %w", err)
	}
	observability.SetRegisteredUsers(n)
	return nil
}

func (e *EventLoop) snapshotSessions(ctx context.Context) error {
	start := time.Now()
	if err := e.daemon.sessions.SaveSnapshot(e.daemon.config.Session.SnapshotPath); err != nil {
		return err
	}
	observability.RecordSnapshot(time.Since(start))
	observability.SetActiveSessions(e.daemon.sessions.Len())
	return nil
}

func (e *EventLoop) pruneQueue(ctx context.Context) error {
	q := e.daemon.queue
	pruned := q.PruneIdle(time.Duration(e.daemon.config.Maintenance.IdleLaneMinutes) * time.Minute)

	st := q.GetStats()
	e.daemon.logger.Debug().
		Int("pruned", pruned).
		Int("lanes", st.Lanes).
		Int("busy", st.Busy).
		Int("queued", st.Queued).
		Str("deepest", st.Deepest).
		Int("max_wait", st.MaxWait).
		Msg("Queue stats")
	return nil
}

// HandleShutdown waits for queued user work to finish.
func (e *EventLoop) HandleShutdown() {
	e.daemon.logger.Info().Msg("Handling graceful shutdown")

	wait := config.Duration(e.daemon.config.Telegram.ShutdownWaitSeconds)
	if wait <= 0 {
		wait = 5 * time.Second
	}
	e.daemon.queue.WaitForActive(wait)
}
