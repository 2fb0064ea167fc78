package generation

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Simulator is a Generator that fakes a long-running job: progress grows by a
// bounded random increment on every poll, is held below the profile ceiling,
// and the canned result is returned once the total duration has elapsed.
type Simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
	now         func() time.Time
	logger      *zap.Logger
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithRand sets the random source used for increments and failure injection.
func WithRand(r *rand.Rand) SimulatorOption {
	return func(s *Simulator) { s.rng = r }
}

// WithFailureRate makes a fraction of executions end in BackendFailure.
func WithFailureRate(rate float64) SimulatorOption {
	return func(s *Simulator) { s.failureRate = min(max(rate, 0), 1) }
}

// WithClock sets the clock used to stamp results.
func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

// WithSimulatorLogger sets the logger.
func WithSimulatorLogger(logger *zap.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = logger }
}

// NewSimulator creates a simulated generator.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("simulator")
	return s
}

// Generate implements Generator.
func (s *Simulator) Generate(ctx context.Context, job Job, onProgress ProgressFunc) (*Result, error) {
	timing := job.Profile.Timing

	ticker := time.NewTicker(timing.PollInterval)
	defer ticker.Stop()

	elapsed := time.NewTimer(timing.TotalDuration)
	defer elapsed.Stop()

	ceiling := float64(min(timing.Ceiling, 99))
	var progress float64

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			progress += s.float64() * timing.MaxIncrement
			if progress > ceiling {
				progress = ceiling
			}
			if onProgress != nil {
				onProgress(int(progress))
			}

		case <-elapsed.C:
			if s.failureRate > 0 && s.float64() < s.failureRate {
				s.logger.Info("injecting simulated failure",
					zap.String("session_id", job.SessionID.String()),
					zap.String("kind", job.Profile.Kind.String()),
				)
				return nil, newError(ErrorBackendFailure, "simulated backend failure")
			}
			return job.Profile.NewResult(job.Request, s.now()), nil
		}
	}
}

func (s *Simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
