package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/dreamteam-ai/dispatch/pkg/delegation"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/team"
)

// Store is the subset of schedule persistence the processor needs.
type Store interface {
	Enabled(ctx context.Context) ([]*Schedule, error)
	MarkRun(ctx context.Context, id string, at time.Time) error
}

// Delegator runs a delegation; both executors satisfy it.
type Delegator interface {
	Execute(ctx context.Context, snap *team.Snapshot, in delegation.Input, sess delegation.Session) delegation.Result
}

// SnapshotFunc supplies the current team snapshot at fire time.
type SnapshotFunc func() *team.Snapshot

// Processor due-checks enabled schedules on a fixed tick and fires each due
// schedule as an independent delegation. A schedule that is still running
// is not fired again until it finishes.
type Processor struct {
	store    Store
	delegate Delegator
	snapshot SnapshotFunc
	tick     time.Duration
	cron     *gronx.Gronx

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewProcessor(store Store, delegate Delegator, snapshot SnapshotFunc, tick time.Duration) *Processor {
	if tick <= 0 {
		tick = 30 * time.Second
	}
	return &Processor{
		store:    store,
		delegate: delegate,
		snapshot: snapshot,
		tick:     tick,
		cron:     gronx.New(),
		inflight: make(map[string]struct{}),
	}
}

// Run blocks until the context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	logger.InfoCF("schedule", "Schedule processor started",
		map[string]any{"tick": p.tick.String()})

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("schedule", "Schedule processor stopped")
			return
		case now := <-ticker.C:
			p.processTick(ctx, now)
		}
	}
}

func (p *Processor) processTick(ctx context.Context, now time.Time) {
	schedules, err := p.store.Enabled(ctx)
	if err != nil {
		logger.ErrorCF("schedule", "Failed to load schedules",
			map[string]any{"error": err.Error()})
		return
	}

	for _, sched := range schedules {
		if !p.isDue(sched, now) {
			continue
		}
		if !p.tryAcquire(sched.ID) {
			continue
		}
		if err := p.store.MarkRun(ctx, sched.ID, now); err != nil {
			logger.WarnCF("schedule", "Failed to record run time",
				map[string]any{"schedule": sched.ID, "error": err.Error()})
		}
		go p.fire(ctx, sched)
	}
}

func (p *Processor) isDue(sched *Schedule, now time.Time) bool {
	// Cron granularity is one minute; a schedule already run this minute is
	// not due again.
	if !sched.LastRun.IsZero() && sched.LastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
		return false
	}
	due, err := p.cron.IsDue(sched.CronExpr, now)
	if err != nil {
		logger.WarnCF("schedule", "Invalid cron expression",
			map[string]any{"schedule": sched.ID, "expr": sched.CronExpr, "error": err.Error()})
		return false
	}
	return due
}

func (p *Processor) tryAcquire(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, running := p.inflight[id]; running {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Processor) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}

func (p *Processor) fire(ctx context.Context, sched *Schedule) {
	defer p.release(sched.ID)

	snap := p.snapshot()
	if snap == nil {
		logger.ErrorCF("schedule", "No team snapshot available",
			map[string]any{"schedule": sched.ID})
		return
	}

	result := p.delegate.Execute(ctx, snap,
		delegation.Input{
			AgentSlug: sched.AgentSlug,
			Task:      sched.Task,
			Context:   sched.Context,
		},
		delegation.Session{
			WorkspaceID:   sched.WorkspaceID,
			HeadAgentSlug: sched.HeadAgentSlug,
		})

	if result.Success {
		logger.InfoCF("schedule", "Scheduled delegation completed",
			map[string]any{
				"schedule":     sched.ID,
				"agent":        sched.AgentSlug,
				"response_len": len(result.Response),
			})
	} else {
		logger.WarnCF("schedule", "Scheduled delegation failed",
			map[string]any{
				"schedule": sched.ID,
				"agent":    sched.AgentSlug,
				"error":    result.Error,
			})
	}
}
