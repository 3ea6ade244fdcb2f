package luftmetrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hausgeist/luftmetrics/internal/store"
)

type Looper interface {
	Init()
	Poll(context.Context, store.Client) error
}

// Poller states as reported on the status endpoint. The initial state keeps
// its historical capitalization.
const (
	StateInitialized = "Initialized"
	StateDisabled    = "disabled"
	StateError       = "error"
	StateParsing     = "parsing"
	StateDone        = "done"
)

// Status is a point-in-time snapshot of one runner.
type Status struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	Enabled  bool      `json:"enabled"`
	LastErr  string    `json:"last_error,omitempty"`
	LastPoll time.Time `json:"last_poll,omitempty"`
	NextPoll time.Time `json:"next_poll,omitempty"`
	Cycle    string    `json:"cycle,omitempty"`
}

// LoopRunner drives one looper: an immediate first poll, then a rearming
// timer. A successful cycle schedules the regular frequency and resets the
// retry policy; a failed one schedules the policy's next delay instead.
type LoopRunner struct {
	name   string
	looper Looper
	logger *zerolog.Logger

	pollFreq time.Duration
	enabled  bool
	retry    *RetryPolicy

	mu     sync.Mutex
	status Status
}

func (r *LoopRunner) Run(ctx context.Context, store store.Client) {
	if !r.enabled {
		r.logger.Info().Msg("disabled")
		r.update(func(s *Status) { s.State = StateDisabled })
		return
	}

	r.looper.Init()

	r.logger.Info().Dur("freq", r.pollFreq).Msg("starting")
	timer := time.NewTimer(0)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info().Msg("stopping")
			return

		case <-timer.C:
			timer.Reset(r.poll(ctx, store))
		}
	}
}

// poll runs one cycle and returns the delay until the next one.
func (r *LoopRunner) poll(ctx context.Context, store store.Client) time.Duration {
	cycle := uuid.NewString()
	log := r.logger.With().Str("cycle", cycle).Logger()

	r.update(func(s *Status) {
		s.State = StateParsing
		s.Cycle = cycle
		s.LastPoll = time.Now()
	})

	if err := r.looper.Poll(ctx, store); err != nil {
		delay := r.retry.NextBackOff()
		if errors.Is(err, ErrFailedRequest) {
			log.Info().Dur("retry", delay).Msg("failed request.. sleeping")
		} else {
			log.Error().Err(err).Dur("retry", delay).Msg("poll error")
		}
		r.update(func(s *Status) {
			s.State = StateError
			s.LastErr = err.Error()
			s.NextPoll = time.Now().Add(delay)
		})
		return delay
	}

	r.retry.Reset()
	r.update(func(s *Status) {
		s.State = StateDone
		s.LastErr = ""
		s.NextPoll = time.Now().Add(r.pollFreq)
	})
	return r.pollFreq
}

// Status is safe to call from other goroutines while the runner polls.
func (r *LoopRunner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *LoopRunner) update(f func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.status)
}
