package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

func TestBus_Publish(t *testing.T) {
	t.Run("dispatches to handlers of the event type in order", func(t *testing.T) {
		bus := NewBus(nil)
		var calls []string

		bus.Register(NewHandlerFunc([]string{TypeStatusChanged}, func(ctx context.Context, e Event) error {
			calls = append(calls, "first")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{TypeStatusChanged, TypeSessionClosed}, func(ctx context.Context, e Event) error {
			calls = append(calls, "second")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{TypeSessionOpened}, func(ctx context.Context, e Event) error {
			calls = append(calls, "other")
			return nil
		}))

		bus.Publish(context.Background(), NewStatusChanged(generation.Snapshot{SessionID: uuid.New()}))
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("isolates failing and panicking handlers", func(t *testing.T) {
		bus := NewBus(nil)
		reached := false

		bus.Register(NewHandlerFunc([]string{TypeSessionClosed}, func(ctx context.Context, e Event) error {
			return errors.New("boom")
		}))
		bus.Register(NewHandlerFunc([]string{TypeSessionClosed}, func(ctx context.Context, e Event) error {
			panic("worse")
		}))
		bus.Register(NewHandlerFunc([]string{TypeSessionClosed}, func(ctx context.Context, e Event) error {
			reached = true
			return nil
		}))

		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), NewSessionClosed(uuid.New(), generation.KindTextToImage, "test"))
		})
		assert.True(t, reached)
	})

	t.Run("no handlers is a no-op", func(t *testing.T) {
		bus := NewBus(nil)
		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), NewSessionOpened(uuid.New(), generation.KindFrameToVideo))
		})
	})
}

func TestNewStatusChanged(t *testing.T) {
	id := uuid.New()
	e := NewStatusChanged(generation.Snapshot{SessionID: id, Status: generation.StatusRunning})

	assert.Equal(t, TypeStatusChanged, e.EventType())
	assert.Equal(t, id, e.AggregateID())
	assert.NotEqual(t, uuid.Nil, e.EventID())
	assert.False(t, e.OccurredAt().IsZero())
}
