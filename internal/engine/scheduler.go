package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollTask runs one poll cycle; it must refuse to overlap itself
type PollTask interface {
	Tick(ctx context.Context) error
}

// LivenessTask runs one heartbeat round over all subscribers
type LivenessTask interface {
	CheckLiveness()
}

// Scheduler drives the poll and liveness tasks on independent periods
// under a single cancellable scope.
type Scheduler struct {
	poll           PollTask
	liveness       LivenessTask
	pollEvery      time.Duration
	heartbeatEvery time.Duration

	wg sync.WaitGroup
}

func NewScheduler(poll PollTask, liveness LivenessTask, pollEvery, heartbeatEvery time.Duration) *Scheduler {
	return &Scheduler{
		poll:           poll,
		liveness:       liveness,
		pollEvery:      pollEvery,
		heartbeatEvery: heartbeatEvery,
	}
}

// Run blocks until ctx is cancelled, then waits for any in-flight poll cycle.
// Poll cycles run on their own goroutine so a slow feed never delays heartbeats.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Scheduler started",
		slog.Duration("poll_interval", s.pollEvery),
		slog.Duration("heartbeat_interval", s.heartbeatEvery),
	)
	defer s.wg.Wait()

	pollTicker := time.NewTicker(s.pollEvery)
	defer pollTicker.Stop()
	heartbeatTicker := time.NewTicker(s.heartbeatEvery)
	defer heartbeatTicker.Stop()

	// Fetch immediately on start
	s.spawnPoll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopping...")
			return
		case <-pollTicker.C:
			s.spawnPoll(ctx)
		case <-heartbeatTicker.C:
			s.liveness.CheckLiveness()
		}
	}
}

func (s *Scheduler) spawnPoll(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Errors are logged by the task; ErrPollBusy just drops this tick.
		_ = s.poll.Tick(ctx)
	}()
}
