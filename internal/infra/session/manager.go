package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/events"
)

// ErrTooManySessions is returned by Open when the session limit is reached.
var ErrTooManySessions = errors.New("too many open sessions")

// Close reasons reported in SessionClosed events.
const (
	ReasonClosed   = "closed"
	ReasonExpired  = "expired"
	ReasonShutdown = "shutdown"
)

// Config holds session manager configuration.
type Config struct {
	TimeoutGrace  time.Duration `json:"timeout_grace" yaml:"timeout_grace"`
	SessionTTL    time.Duration `json:"session_ttl" yaml:"session_ttl"`
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
	MaxSessions   int           `json:"max_sessions" yaml:"max_sessions"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		TimeoutGrace:  generation.DefaultTimeoutGrace,
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
		MaxSessions:   1000,
	}
}

// Manager owns every session opened by hosts.
type Manager struct {
	repo      Repository
	generator generation.Generator
	describer generation.Describer
	bus       *events.Bus
	logger    *zap.Logger
	config    *Config
	now       func() time.Time

	openMu sync.Mutex
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewManager creates a new session manager. bus may be nil.
func NewManager(
	repo Repository,
	generator generation.Generator,
	describer generation.Describer,
	bus *events.Bus,
	logger *zap.Logger,
	config *Config,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Manager{
		repo:      repo,
		generator: generator,
		describer: describer,
		bus:       bus,
		logger:    logger.Named("session-manager"),
		config:    config,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the idle sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info("starting session manager",
		zap.Duration("session_ttl", m.config.SessionTTL),
		zap.Duration("sweep_interval", m.config.SweepInterval),
		zap.Int("max_sessions", m.config.MaxSessions),
	)
	if m.config.SessionTTL <= 0 || m.config.SweepInterval <= 0 {
		return nil
	}

	m.wg.Add(1)
	go m.sweepLoop()
	return nil
}

// Stop stops the sweeper and closes every session.
func (m *Manager) Stop() {
	m.once.Do(func() {
		m.logger.Info("stopping session manager")
		close(m.stopCh)
		m.wg.Wait()

		ctx := context.Background()
		records, err := m.repo.List(ctx)
		if err != nil {
			m.logger.Error("list sessions on shutdown", zap.Error(err))
			return
		}
		for _, r := range records {
			m.closeRecord(ctx, r.Session.ID(), ReasonShutdown)
		}
		m.logger.Info("session manager stopped", zap.Int("closed", len(records)))
	})
}

// Open creates an idle session of the given kind.
func (m *Manager) Open(ctx context.Context, kind generation.Kind) (generation.Snapshot, error) {
	profile, err := generation.ProfileFor(kind)
	if err != nil {
		return generation.Snapshot{}, err
	}

	m.openMu.Lock()
	defer m.openMu.Unlock()

	if m.config.MaxSessions > 0 {
		count, err := m.repo.Count(ctx)
		if err != nil {
			return generation.Snapshot{}, fmt.Errorf("count sessions: %w", err)
		}
		if count >= m.config.MaxSessions {
			return generation.Snapshot{}, ErrTooManySessions
		}
	}

	s := generation.NewSession(profile, m.generator,
		generation.WithTimeoutGrace(m.config.TimeoutGrace),
		generation.WithLogger(m.logger),
	)
	record := newRecord(s, generation.NewExtractor(m.describer, m.logger), m.now())
	record.unsubscribe = s.Subscribe(func(snap generation.Snapshot) {
		m.publish(context.Background(), events.NewStatusChanged(snap))
	})
	if err := m.repo.Create(ctx, record); err != nil {
		record.unsubscribe()
		s.Close()
		return generation.Snapshot{}, fmt.Errorf("store session: %w", err)
	}

	m.logger.Info("session opened",
		zap.String("session_id", s.ID().String()),
		zap.String("kind", kind.String()),
	)
	m.publish(ctx, events.NewSessionOpened(s.ID(), kind))
	return s.CurrentStatus(), nil
}

// Get returns a managed session.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*generation.Session, error) {
	record, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Session, nil
}

// Submit submits a request to a session.
func (m *Manager) Submit(ctx context.Context, id uuid.UUID, req *generation.Request) error {
	record, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	return record.Session.Submit(req)
}

// Status returns the current status of a session.
func (m *Manager) Status(ctx context.Context, id uuid.UUID) (generation.Snapshot, error) {
	record, err := m.get(ctx, id)
	if err != nil {
		return generation.Snapshot{}, err
	}
	return record.Session.CurrentStatus(), nil
}

// Subscribe registers fn for the status changes of a session. The returned
// function unregisters it.
func (m *Manager) Subscribe(ctx context.Context, id uuid.UUID, fn generation.Observer) (func(), error) {
	record, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Session.Subscribe(fn), nil
}

// Cancel cancels the running generation of a session.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) error {
	record, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	return record.Session.Cancel()
}

// Describe extracts a description of image for an image-to-video session.
// A newer call for the same session supersedes one still in flight.
func (m *Manager) Describe(ctx context.Context, id uuid.UUID, image *generation.ImagePayload) (string, error) {
	record, err := m.get(ctx, id)
	if err != nil {
		return "", err
	}
	if record.Session.Kind() != generation.KindImageToVideo {
		return "", &generation.Error{
			Kind:    generation.ErrorUnsupportedKind,
			Message: fmt.Sprintf("description extraction is not available for %s", record.Session.Kind()),
		}
	}

	start := m.now()
	text, err := record.Extractor.Extract(ctx, image)
	if err != nil {
		return "", err
	}
	m.logger.Debug("description extracted",
		zap.String("session_id", id.String()),
		zap.Duration("elapsed", m.now().Sub(start)),
	)
	return text, nil
}

// List returns snapshots of the sessions matching filter, oldest first.
func (m *Manager) List(ctx context.Context, filter *Filter) ([]generation.Snapshot, error) {
	records, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]generation.Snapshot, 0, len(records))
	for _, r := range records {
		snap := r.Session.CurrentStatus()
		if filter.Matches(snap) {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Close tears a session down, releasing any running execution.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) error {
	return m.closeRecord(ctx, id, ReasonClosed)
}

// Sweep closes sessions that are not running and have neither been used nor
// changed state for longer than the configured TTL. It returns the number of
// closed sessions.
func (m *Manager) Sweep(ctx context.Context) int {
	records, err := m.repo.List(ctx)
	if err != nil {
		m.logger.Error("list sessions for sweep", zap.Error(err))
		return 0
	}

	cutoff := m.now().Add(-m.config.SessionTTL)
	closed := 0
	for _, r := range records {
		if r.Session.CurrentStatus().Status == generation.StatusRunning {
			continue
		}
		active := r.LastSeen()
		if changed := r.Session.UpdatedAt(); changed.After(active) {
			active = changed
		}
		if active.After(cutoff) {
			continue
		}
		if err := m.closeRecord(ctx, r.Session.ID(), ReasonExpired); err == nil {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("expired idle sessions", zap.Int("count", closed))
	}
	return closed
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Sweep(context.Background())
		}
	}
}

func (m *Manager) get(ctx context.Context, id uuid.UUID) (*Record, error) {
	record, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Touch(m.now())
	return record, nil
}

func (m *Manager) closeRecord(ctx context.Context, id uuid.UUID, reason string) error {
	record, err := m.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if record.unsubscribe != nil {
		record.unsubscribe()
	}
	record.Extractor.Cancel()
	record.Session.Close()

	m.logger.Info("session closed",
		zap.String("session_id", id.String()),
		zap.String("reason", reason),
	)
	m.publish(ctx, events.NewSessionClosed(id, record.Session.Kind(), reason))
	return nil
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.bus != nil {
		m.bus.Publish(ctx, event)
	}
}
