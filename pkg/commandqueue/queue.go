package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// LaneMain is the default lane for work not tied to a user.
	LaneMain = "main"
	// LaneMaintenance runs scheduled housekeeping jobs.
	LaneMaintenance = "maintenance"

	// DefaultMaxLaneDepth caps how many tasks one lane may hold waiting.
	DefaultMaxLaneDepth = 32
)

var (
	// ErrLaneFull is returned when a lane already holds its maximum of waiting tasks.
	ErrLaneFull = errors.New("lane full")
	// ErrClosed is returned for tasks submitted to, or still waiting in, a closed queue.
	ErrClosed = errors.New("queue closed")
)

// Task represents an asynchronous operation to be executed
type Task func(ctx context.Context) (interface{}, error)

// Config tunes a queue. Zero values take defaults.
type Config struct {
	// DedupTTL is how long MarkSeen remembers a key.
	DedupTTL time.Duration
	// MaxLaneDepth bounds waiting tasks per lane; the running task does not count.
	MaxLaneDepth int
}

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// lane runs its tasks one at a time in submission order.
type lane struct {
	name       string
	pending    []*taskRecord
	busy       bool
	lastActive time.Time
}

// CommandQueue serializes tasks per lane while lanes run in parallel.
type CommandQueue struct {
	mu       sync.Mutex
	lanes    map[string]*lane
	seq      uint64
	queued   int
	maxDepth int
	closed   bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	seen   *seenSet
}

// UserLane returns the lane that serializes one user's events.
func UserLane(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// New creates a queue with default settings.
func New() *CommandQueue {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a queue with the fixed lanes already present.
func NewWithConfig(cfg Config) *CommandQueue {
	observability.EnsureRegistered()

	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	if cfg.MaxLaneDepth <= 0 {
		cfg.MaxLaneDepth = DefaultMaxLaneDepth
	}

	ctx, cancel := context.WithCancel(context.Background())
	cq := &CommandQueue{
		lanes:    make(map[string]*lane),
		maxDepth: cfg.MaxLaneDepth,
		ctx:      ctx,
		cancel:   cancel,
		seen:     newSeenSet(cfg.DedupTTL, 0),
	}

	cq.mu.Lock()
	cq.laneLocked(LaneMain)
	cq.laneLocked(LaneMaintenance)
	cq.mu.Unlock()

	return cq
}

// laneLocked returns the named lane, creating it. mu must be held.
func (cq *CommandQueue) laneLocked(name string) *lane {
	l, ok := cq.lanes[name]
	if !ok {
		l = &lane{name: name, lastActive: time.Now()}
		cq.lanes[name] = l
		observability.SetQueueLanes(len(cq.lanes))
	}
	return l
}

// MarkSeen records key and reports whether it was already recorded within the dedup window.
// The bot uses it with platform update ids so redelivered updates are handled once.
func (cq *CommandQueue) MarkSeen(key string) bool {
	return cq.seen.CheckAndMark(key)
}

// Enqueue adds a task to the lane and waits for its result.
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"yordamchi.commandqueue",
		"commandqueue.enqueue",
		attribute.String("lane", lane),
	)
	defer span.End()

	record, err := cq.push(ctx, lane, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := <-record.result
	if result.err != nil {
		span.RecordError(result.err)
		span.SetStatus(codes.Error, result.err.Error())
	}
	return result.value, result.err
}

// Submit appends a task to the lane and returns its id without waiting.
// The task runs after everything submitted to the lane before it.
func (cq *CommandQueue) Submit(ctx context.Context, lane string, task Task) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	record, err := cq.push(ctx, lane, task)
	if err != nil {
		return "", err
	}
	return record.id, nil
}

func (cq *CommandQueue) push(ctx context.Context, name string, task Task) (*taskRecord, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		observability.RecordQueueRejected(name, "closed")
		return nil, ErrClosed
	}

	l := cq.laneLocked(name)
	if len(l.pending) >= cq.maxDepth {
		depth := len(l.pending)
		cq.mu.Unlock()
		observability.RecordQueueRejected(name, "full")
		logger.Warn().Str("lane", name).Int("depth", depth).Msg("Lane full, task rejected")
		return nil, fmt.Errorf("%w: %s holds %d tasks", ErrLaneFull, name, depth)
	}

	cq.seq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", name, cq.seq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}
	l.pending = append(l.pending, record)
	l.lastActive = record.enqueuedAt
	cq.queued++
	depth, queued := len(l.pending), cq.queued

	if !l.busy {
		l.busy = true
		cq.wg.Add(1)
		go cq.drain(l)
	}
	cq.mu.Unlock()

	logger.Debug().
		Str("lane", name).
		Str("taskId", record.id).
		Int("depth", depth).
		Msg("Task enqueued")
	observability.RecordQueueEnqueue(name, queued)

	return record, nil
}

// drain runs the lane's tasks until it is empty. At most one drain runs per lane.
func (cq *CommandQueue) drain(l *lane) {
	defer cq.wg.Done()

	for {
		cq.mu.Lock()
		if len(l.pending) == 0 {
			l.busy = false
			l.lastActive = time.Now()
			cq.mu.Unlock()
			return
		}
		record := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		cq.queued--
		closed := cq.closed
		cq.mu.Unlock()

		if closed {
			record.result <- taskResult{err: ErrClosed}
			continue
		}
		cq.execute(l.name, record)
	}
}

func (cq *CommandQueue) execute(name string, record *taskRecord) {
	taskCtx, span := tracing.StartSpan(
		record.ctx,
		"yordamchi.commandqueue",
		"commandqueue.execute_task",
		attribute.String("lane", name),
		attribute.String("task_id", record.id),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(taskCtx, log.Logger)

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	wait := time.Since(record.enqueuedAt)
	start := time.Now()
	value, err := cq.runTask(runCtx, record)
	duration := time.Since(start)

	record.result <- taskResult{value: value, err: err}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().
			Str("lane", name).
			Str("taskId", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", name).
			Str("taskId", record.id).
			Dur("wait", wait).
			Dur("duration", duration).
			Msg("Task completed")
	}

	cq.mu.Lock()
	queued := cq.queued
	cq.mu.Unlock()
	observability.RecordQueueCompletion(name, duration, err == nil, queued)
}

// runTask converts a panicking task into an error so the lane keeps draining.
func (cq *CommandQueue) runTask(ctx context.Context, record *taskRecord) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", record.id, r)
		}
	}()
	return record.task(ctx)
}

// Stats summarizes the queue.
type Stats struct {
	Lanes   int
	Busy    int
	Queued  int
	Deepest string // lane with the most waiting tasks, empty when nothing waits
	MaxWait int
}

// GetStats returns a snapshot across all lanes.
func (cq *CommandQueue) GetStats() Stats {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	st := Stats{Lanes: len(cq.lanes), Queued: cq.queued}
	for name, l := range cq.lanes {
		if l.busy {
			st.Busy++
		}
		if len(l.pending) > st.MaxWait {
			st.MaxWait = len(l.pending)
			st.Deepest = name
		}
	}
	return st
}

// Depth returns the number of waiting tasks in a lane.
func (cq *CommandQueue) Depth(name string) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	if l, ok := cq.lanes[name]; ok {
		return len(l.pending)
	}
	return 0
}

// LaneCount returns the number of live lanes.
func (cq *CommandQueue) LaneCount() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return len(cq.lanes)
}

// PruneIdle drops lanes with nothing queued or running that have been idle longer than idleFor.
// The fixed lanes are never pruned.
func (cq *CommandQueue) PruneIdle(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	cq.mu.Lock()
	pruned := 0
	for name, l := range cq.lanes {
		if name == LaneMain || name == LaneMaintenance {
			continue
		}
		if !l.busy && len(l.pending) == 0 && l.lastActive.Before(cutoff) {
			delete(cq.lanes, name)
			pruned++
		}
	}
	lanes := len(cq.lanes)
	cq.mu.Unlock()

	observability.SetQueueLanes(lanes)
	if pruned > 0 {
		log.Debug().Int("pruned", pruned).Int("lanes", lanes).Msg("Idle lanes pruned")
	}
	return pruned
}

// WaitForActive waits until every lane is idle, or the timeout passes.
func (cq *CommandQueue) WaitForActive(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cq.idle() {
			log.Info().Msg("All active tasks completed")
			return true
		}
		if time.Now().After(deadline) {
			log.Warn().Dur("timeout", timeout).Int("queued", cq.GetStats().Queued).Msg("Timeout waiting for active tasks")
			return false
		}
		<-ticker.C
	}
}

func (cq *CommandQueue) idle() bool {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	for _, l := range cq.lanes {
		if l.busy || len(l.pending) > 0 {
			return false
		}
	}
	return true
}

// Close refuses new tasks, cancels running ones and fails those still waiting with ErrClosed.
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil
	}
	cq.closed = true
	cq.mu.Unlock()

	cq.cancel()
	cq.wg.Wait()
	observability.SetQueued(0)
	return nil
}
