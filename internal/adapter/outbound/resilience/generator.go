// Package resilience guards generation backends with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// Settings configures the breaker.
type Settings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	// OnStateChange is called when the breaker opens (true) or leaves the open state (false).
	OnStateChange func(name string, open bool)
}

// BreakerGenerator wraps a Generator with a circuit breaker. While the breaker
// is open, submissions fail fast with BackendFailure. Cancelled executions do
// not count as failures.
type BreakerGenerator struct {
	next    generation.Generator
	breaker *gobreaker.CircuitBreaker[*generation.Result]
	logger  *zap.Logger
}

// NewBreakerGenerator creates a breaker around next.
func NewBreakerGenerator(next generation.Generator, s Settings, logger *zap.Logger) *BreakerGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("breaker")

	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("generation backend breaker changed state",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if s.OnStateChange != nil {
				s.OnStateChange(name, to == gobreaker.StateOpen)
			}
		},
	}

	return &BreakerGenerator{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*generation.Result](settings),
		logger:  logger,
	}
}

// Generate implements generation.Generator.
func (g *BreakerGenerator) Generate(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
	result, err := g.breaker.Execute(func() (*generation.Result, error) {
		return g.next.Generate(ctx, job, onProgress)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &generation.Error{
			Kind:    generation.ErrorBackendFailure,
			Message: "generation backend is unavailable",
			Err:     err,
		}
	}
	return result, err
}

// State returns the breaker state.
func (g *BreakerGenerator) State() gobreaker.State {
	return g.breaker.State()
}

// Compile-time check
var _ generation.Generator = (*BreakerGenerator)(nil)
