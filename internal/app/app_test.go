package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/config"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/events"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
)

// MockStatusPublisher is a mock implementation of outbound.StatusPublisherPort.
type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) Publish(ctx context.Context, snap generation.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *MockStatusPublisher) Last(ctx context.Context, sessionID uuid.UUID) (*generation.Snapshot, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.Snapshot), args.Error(1)
}

func (m *MockStatusPublisher) Forget(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STUDIO_SERVER_MODE", "test")
	t.Setenv("STUDIO_LOG_LEVEL", "error")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestApp_Routes(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(application.Stop)

	router := application.Router()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("opens a session", func(t *testing.T) {
		body := bytes.NewBufferString(`{"kind":"text-to-image"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		var snap generation.Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, generation.StatusIdle, snap.Status)
	})

	t.Run("exposes metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "studio_generation_active_sessions 1")
	})
}

func TestStatusBroadcaster(t *testing.T) {
	publisher := new(MockStatusPublisher)
	h := NewStatusBroadcaster(publisher, zap.NewNop())

	id := uuid.New()
	snap := generation.Snapshot{SessionID: id, Status: generation.StatusRunning, Progress: 20}
	publisher.On("Publish", mock.Anything, snap).Return(nil).Once()
	publisher.On("Forget", mock.Anything, id).Return(nil).Once()

	require.NoError(t, h.Handle(context.Background(), events.NewStatusChanged(snap)))
	require.NoError(t, h.Handle(context.Background(), events.NewSessionClosed(id, generation.KindTextToImage, session.ReasonClosed)))

	publisher.AssertExpectations(t)
}

func TestStatusBroadcaster_KeepsExpiredSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("finished session keeps its snapshot", func(t *testing.T) {
		publisher := new(MockStatusPublisher)
		h := NewStatusBroadcaster(publisher, zap.NewNop())
		id := uuid.New()
		last := &generation.Snapshot{SessionID: id, Status: generation.StatusSucceeded, Progress: 100}
		publisher.On("Last", mock.Anything, id).Return(last, nil).Once()

		require.NoError(t, h.Handle(ctx, events.NewSessionClosed(id, generation.KindTextToImage, session.ReasonExpired)))

		publisher.AssertExpectations(t)
		publisher.AssertNotCalled(t, "Forget", mock.Anything, id)
	})

	t.Run("running snapshot is dropped on shutdown", func(t *testing.T) {
		publisher := new(MockStatusPublisher)
		h := NewStatusBroadcaster(publisher, zap.NewNop())
		id := uuid.New()
		last := &generation.Snapshot{SessionID: id, Status: generation.StatusRunning, Progress: 40}
		publisher.On("Last", mock.Anything, id).Return(last, nil).Once()
		publisher.On("Forget", mock.Anything, id).Return(nil).Once()

		require.NoError(t, h.Handle(ctx, events.NewSessionClosed(id, generation.KindTextToVideo, session.ReasonShutdown)))

		publisher.AssertExpectations(t)
	})

	t.Run("lookup errors are returned", func(t *testing.T) {
		publisher := new(MockStatusPublisher)
		h := NewStatusBroadcaster(publisher, zap.NewNop())
		id := uuid.New()
		publisher.On("Last", mock.Anything, id).Return(nil, assert.AnError).Once()

		err := h.Handle(ctx, events.NewSessionClosed(id, generation.KindTextToVideo, session.ReasonExpired))
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestExecutionRecorder(t *testing.T) {
	m := metrics.New("test")
	r := NewExecutionRecorder(m)
	ctx := context.Background()
	id := uuid.New()
	start := time.Now()

	snap := func(status generation.Status, execution uint64, at time.Time) *events.StatusChanged {
		return events.NewStatusChanged(generation.Snapshot{
			SessionID: id,
			Kind:      generation.KindTextToVideo,
			Status:    status,
			Execution: execution,
			UpdatedAt: at,
		})
	}

	require.NoError(t, r.Handle(ctx, events.NewSessionOpened(id, generation.KindTextToVideo)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	require.NoError(t, r.Handle(ctx, snap(generation.StatusRunning, 1, start)))
	require.NoError(t, r.Handle(ctx, snap(generation.StatusRunning, 1, start.Add(time.Second))))
	require.NoError(t, r.Handle(ctx, snap(generation.StatusSucceeded, 1, start.Add(5*time.Second))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("text-to-video", "succeeded", "")))

	require.NoError(t, r.Handle(ctx, snap(generation.StatusRunning, 2, start.Add(6*time.Second))))
	require.NoError(t, r.Handle(ctx, snap(generation.StatusIdle, 2, start.Add(7*time.Second))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("text-to-video", "cancelled", "")))

	require.NoError(t, r.Handle(ctx, events.NewSessionClosed(id, generation.KindTextToVideo, "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
}
