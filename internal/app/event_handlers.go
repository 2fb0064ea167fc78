package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/events"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
)

// publishTimeout bounds calls to external systems made from event handlers.
const publishTimeout = 2 * time.Second

// StatusBroadcaster forwards session snapshots to a StatusPublisherPort.
// Snapshots of sessions the host closed are dropped. Expired and shut down
// sessions keep theirs until the publisher's TTL, unless the last one still
// reads running.
type StatusBroadcaster struct {
	publisher outbound.StatusPublisherPort
	logger    *zap.Logger
}

// NewStatusBroadcaster creates a new status broadcaster.
func NewStatusBroadcaster(publisher outbound.StatusPublisherPort, logger *zap.Logger) *StatusBroadcaster {
	return &StatusBroadcaster{publisher: publisher, logger: logger.Named("status-broadcaster")}
}

// Handles implements events.Handler.
func (h *StatusBroadcaster) Handles() []string {
	return []string{events.TypeStatusChanged, events.TypeSessionClosed}
}

// Handle implements events.Handler.
func (h *StatusBroadcaster) Handle(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	switch e := event.(type) {
	case *events.StatusChanged:
		return h.publisher.Publish(ctx, e.Snapshot)
	case *events.SessionClosed:
		return h.closed(ctx, e)
	}
	return nil
}

func (h *StatusBroadcaster) closed(ctx context.Context, e *events.SessionClosed) error {
	if e.Reason == session.ReasonClosed {
		return h.publisher.Forget(ctx, e.AggregateID())
	}
	last, err := h.publisher.Last(ctx, e.AggregateID())
	if err != nil {
		return err
	}
	if last != nil && last.Status == generation.StatusRunning {
		h.logger.Debug("dropping stale running snapshot",
			zap.String("session_id", e.AggregateID().String()),
			zap.String("reason", e.Reason),
		)
		return h.publisher.Forget(ctx, e.AggregateID())
	}
	return nil
}

// ExecutionRecorder maintains session and execution metrics from session events.
type ExecutionRecorder struct {
	metrics *metrics.Metrics

	mu      sync.Mutex
	started map[uuid.UUID]executionStart
}

type executionStart struct {
	execution uint64
	at        time.Time
}

// NewExecutionRecorder creates a new execution recorder.
func NewExecutionRecorder(m *metrics.Metrics) *ExecutionRecorder {
	return &ExecutionRecorder{
		metrics: m,
		started: make(map[uuid.UUID]executionStart),
	}
}

// Handles implements events.Handler.
func (r *ExecutionRecorder) Handles() []string {
	return []string{events.TypeSessionOpened, events.TypeStatusChanged, events.TypeSessionClosed}
}

// Handle implements events.Handler.
func (r *ExecutionRecorder) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.SessionOpened:
		r.metrics.ActiveSessions.Inc()
	case *events.SessionClosed:
		r.metrics.ActiveSessions.Dec()
		r.mu.Lock()
		delete(r.started, e.AggregateID())
		r.mu.Unlock()
	case *events.StatusChanged:
		r.observe(e.Snapshot)
	}
	return nil
}

func (r *ExecutionRecorder) observe(snap generation.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case snap.Status == generation.StatusRunning:
		if start, ok := r.started[snap.SessionID]; !ok || start.execution != snap.Execution {
			r.started[snap.SessionID] = executionStart{execution: snap.Execution, at: snap.UpdatedAt}
		}
	case snap.Status.IsTerminal():
		var duration time.Duration
		if start, ok := r.started[snap.SessionID]; ok && start.execution == snap.Execution {
			duration = snap.UpdatedAt.Sub(start.at)
		}
		delete(r.started, snap.SessionID)

		errorKind := ""
		if snap.Error != nil {
			errorKind = string(snap.Error.Kind)
		}
		r.metrics.RecordExecution(snap.Kind.String(), snap.Status.String(), errorKind, duration)
	case snap.Status == generation.StatusIdle:
		// cancelled
		if _, ok := r.started[snap.SessionID]; ok {
			delete(r.started, snap.SessionID)
			r.metrics.RecordExecution(snap.Kind.String(), "cancelled", "", 0)
		}
	}
}
