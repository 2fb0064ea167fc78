package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeoutGrace is added to a profile's total duration to get the hard
// execution timeout.
const DefaultTimeoutGrace = 5 * time.Second

// maxRunningProgress keeps 100 reserved for the terminal transition.
const maxRunningProgress = 99

// Observer receives a snapshot after every state change. Observers run on the
// goroutine that caused the change and must not call Submit, Cancel or Close.
type Observer func(Snapshot)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionID sets the session ID. A random ID is used otherwise.
func WithSessionID(id uuid.UUID) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithTimeoutGrace sets how long past the expected duration an execution may
// run before it fails with Timeout.
func WithTimeoutGrace(grace time.Duration) SessionOption {
	return func(s *Session) { s.timeoutGrace = grace }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// execution is the handle of one running generation.
type execution struct {
	seq     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
}

// Session drives generation requests of one kind from submission to a
// terminal outcome. At most one execution runs at a time. All state changes
// go through Submit, Cancel, Close and the execution's own callbacks, which
// are ignored once the execution has been cancelled or superseded.
type Session struct {
	id           uuid.UUID
	profile      Profile
	generator    Generator
	timeoutGrace time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	status    Status
	progress  int
	request   *Request
	result    *Result
	err       *Error
	run       *execution
	seq       uint64
	version   uint64
	updatedAt time.Time
	closed    bool
	observers map[uint64]Observer
	nextObs   uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// NewSession creates an idle session for the given profile.
func NewSession(profile Profile, generator Generator, opts ...SessionOption) *Session {
	s := &Session{
		id:           uuid.New(),
		profile:      profile,
		generator:    generator,
		timeoutGrace: DefaultTimeoutGrace,
		status:       StatusIdle,
		updatedAt:    time.Now(),
		observers:    make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("session").With(
		zap.String("session_id", s.id.String()),
		zap.String("kind", profile.Kind.String()),
	)
	return s
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Kind returns the session kind.
func (s *Session) Kind() Kind {
	return s.profile.Kind
}

// Profile returns the session profile.
func (s *Session) Profile() Profile {
	return s.profile
}

// Submit validates req and, if it passes, starts a new execution. A nil
// return means the request was accepted. Rejections are *Error values and
// leave the session state untouched.
func (s *Session) Submit(req *Request) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status == StatusRunning {
		s.mu.Unlock()
		s.logger.Debug("submit rejected while running")
		return newError(ErrorBusy, "a generation is already running")
	}

	previous := s.status
	s.status = StatusValidating
	normalized, err := s.profile.Validate(req)
	if err != nil {
		s.status = previous
		s.mu.Unlock()
		s.logger.Debug("submit rejected", zap.Error(err))
		return err
	}

	s.seq++
	ctx, cancel := context.WithTimeout(context.Background(), s.profile.Timing.TotalDuration+s.timeoutGrace)
	exec := &execution{
		seq:     s.seq,
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	s.run = exec
	s.status = StatusRunning
	s.progress = 0
	s.request = normalized
	s.result = nil
	s.err = nil
	snap := s.touchLocked()
	s.mu.Unlock()

	s.logger.Info("generation started", zap.Uint64("execution", exec.seq))
	go s.execute(ctx, exec, normalized)
	s.publish(snap)
	return nil
}

// Cancel stops the running execution and returns the session to Idle,
// discarding its progress. It returns ErrNothingToCancel when nothing runs.
func (s *Session) Cancel() error {
	s.mu.Lock()
	exec := s.run
	if exec == nil {
		s.mu.Unlock()
		return ErrNothingToCancel
	}
	s.run = nil
	s.status = StatusIdle
	s.progress = 0
	s.result = nil
	s.err = nil
	snap := s.touchLocked()
	s.mu.Unlock()

	exec.cancel()
	s.logger.Info("generation cancelled", zap.Uint64("execution", exec.seq))
	s.publish(snap)
	return nil
}

// CurrentStatus returns a consistent snapshot of the session.
func (s *Session) CurrentStatus() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Session) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Close tears the session down. A running execution is cancelled and Close
// waits for its goroutine to exit. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	exec := s.run
	s.run = nil
	if exec != nil {
		s.status = StatusIdle
		s.progress = 0
		s.touchLocked()
	}
	s.observers = make(map[uint64]Observer)
	s.mu.Unlock()

	if exec != nil {
		exec.cancel()
		<-exec.done
	}
	s.logger.Debug("session closed")
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) execute(ctx context.Context, exec *execution, req *Request) {
	defer close(exec.done)
	defer exec.cancel()

	result, err := s.generate(ctx, exec, req)
	if err == nil && result == nil {
		err = newError(ErrorBackendFailure, "generator returned no result")
	}
	s.finish(exec, result, err)
}

func (s *Session) generate(ctx context.Context, exec *execution, req *Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generator panicked", zap.Any("panic", r))
			result = nil
			err = &Error{Kind: ErrorBackendFailure, Message: "generator panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	job := Job{
		SessionID: s.id,
		Execution: exec.seq,
		Request:   req,
		Profile:   s.profile,
	}
	result, err = s.generator.Generate(ctx, job, func(progress int) {
		s.advance(exec, progress)
	})
	if err == nil && ctx.Err() != nil {
		// A result that arrives after the deadline does not count.
		err = ctx.Err()
	}
	return result, err
}

func (s *Session) advance(exec *execution, progress int) {
	s.mu.Lock()
	if s.run != exec {
		s.mu.Unlock()
		return
	}
	progress = min(progress, maxRunningProgress)
	if progress <= s.progress {
		s.mu.Unlock()
		return
	}
	s.progress = progress
	snap := s.touchLocked()
	s.mu.Unlock()

	s.publish(snap)
}

func (s *Session) finish(exec *execution, result *Result, err error) {
	s.mu.Lock()
	if s.run != exec {
		s.mu.Unlock()
		return
	}
	s.run = nil
	if err != nil {
		s.status = StatusFailed
		s.progress = 0
		s.err = AsError(err)
	} else {
		s.status = StatusSucceeded
		s.progress = 100
		s.result = result
	}
	snap := s.touchLocked()
	s.mu.Unlock()

	elapsed := time.Since(exec.started)
	if snap.Error != nil {
		s.logger.Warn("generation failed",
			zap.Uint64("execution", exec.seq),
			zap.String("error_kind", string(snap.Error.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(snap.Error),
		)
	} else {
		s.logger.Info("generation succeeded",
			zap.Uint64("execution", exec.seq),
			zap.String("reference", snap.Result.Reference),
			zap.Duration("elapsed", elapsed),
		)
	}
	s.publish(snap)
}

func (s *Session) touchLocked() Snapshot {
	s.version++
	s.updatedAt = time.Now()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Kind:      s.profile.Kind,
		Status:    s.status,
		Progress:  s.progress,
		Execution: s.seq,
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
	if s.request != nil {
		snap.Prompt = s.request.Prompt
	}
	if s.status == StatusSucceeded && s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.status == StatusFailed && s.err != nil {
		e := *s.err
		snap.Error = &e
	}
	return snap
}

// publish delivers snap to observers, dropping snapshots older than one
// already delivered so observers see versions in increasing order.
func (s *Session) publish(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version

	s.mu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}
