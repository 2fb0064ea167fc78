package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

func failing(err error) generation.GeneratorFunc {
	return func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
		return nil, err
	}
}

func TestBreakerGenerator(t *testing.T) {
	job := generation.Job{Request: &generation.Request{Prompt: "x"}}

	t.Run("passes results through", func(t *testing.T) {
		want := &generation.Result{Reference: "ref"}
		g := NewBreakerGenerator(generation.GeneratorFunc(func(ctx context.Context, job generation.Job, onProgress generation.ProgressFunc) (*generation.Result, error) {
			onProgress(10)
			return want, nil
		}), Settings{Name: "test"}, nil)

		var progress int
		got, err := g.Generate(context.Background(), job, func(p int) { progress = p })
		require.NoError(t, err)
		assert.Same(t, want, got)
		assert.Equal(t, 10, progress)
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		var opened []bool
		g := NewBreakerGenerator(failing(errors.New("502")), Settings{
			Name:             "test",
			FailureThreshold: 2,
			Timeout:          time.Minute,
			OnStateChange:    func(name string, open bool) { opened = append(opened, open) },
		}, nil)

		for i := 0; i < 2; i++ {
			_, err := g.Generate(context.Background(), job, nil)
			assert.ErrorContains(t, err, "502")
		}
		assert.Equal(t, gobreaker.StateOpen, g.State())
		assert.Equal(t, []bool{true}, opened)

		_, err := g.Generate(context.Background(), job, nil)
		assert.ErrorIs(t, err, generation.ErrBackendFailure)
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})

	t.Run("cancellation does not trip", func(t *testing.T) {
		g := NewBreakerGenerator(failing(context.Canceled), Settings{Name: "test", FailureThreshold: 1}, nil)

		for i := 0; i < 3; i++ {
			_, err := g.Generate(context.Background(), job, nil)
			assert.ErrorIs(t, err, context.Canceled)
		}
		assert.Equal(t, gobreaker.StateClosed, g.State())
	})
}
