// Package session manages the lifetime of generation sessions on behalf of
// hosts that address them by ID: creation, lookup, description extraction,
// status fan-out and teardown of abandoned sessions.
package session

import (
	"sync/atomic"
	"time"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// Record is a managed session together with its host-side state.
type Record struct {
	Session   *generation.Session
	Extractor *generation.Extractor
	OpenedAt  time.Time

	lastSeen    atomic.Int64
	unsubscribe func()
}

func newRecord(s *generation.Session, extractor *generation.Extractor, now time.Time) *Record {
	r := &Record{Session: s, Extractor: extractor, OpenedAt: now}
	r.Touch(now)
	return r
}

// Touch records host activity on the session.
func (r *Record) Touch(t time.Time) {
	r.lastSeen.Store(t.UnixNano())
}

// LastSeen returns the last time the host used the session.
func (r *Record) LastSeen() time.Time {
	return time.Unix(0, r.lastSeen.Load())
}

// Filter selects sessions in List.
type Filter struct {
	Kind   *generation.Kind
	Status *generation.Status
}

// Matches reports whether the snapshot passes the filter.
func (f *Filter) Matches(snap generation.Snapshot) bool {
	if f == nil {
		return true
	}
	if f.Kind != nil && snap.Kind != *f.Kind {
		return false
	}
	if f.Status != nil && snap.Status != *f.Status {
		return false
	}
	return true
}
