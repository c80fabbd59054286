// Package state holds the dashboard's single authoritative copy of server
// state and the current session.
package state

import (
	"sync/atomic"

	"github.com/siteops/permitboard/internal/permits"
)

// Store keeps one snapshot and one session. Both are swapped whole; readers
// always get a complete value and must not mutate it.
type Store struct {
	snapshot atomic.Pointer[permits.Snapshot]
	session  atomic.Pointer[permits.Session]
	revision atomic.Uint64
}

// NewStore creates a Store holding an empty snapshot and no session.
func NewStore() *Store {
	s := &Store{}
	s.snapshot.Store(permits.EmptySnapshot())
	return s
}

// Replace swaps in a new snapshot. A nil snapshot is ignored.
func (s *Store) Replace(snap *permits.Snapshot) {
	if snap == nil {
		return
	}
	s.snapshot.Store(snap)
	s.revision.Add(1)
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *permits.Snapshot {
	return s.snapshot.Load()
}

// Revision counts successful replacements.
func (s *Store) Revision() uint64 {
	return s.revision.Load()
}

// SetSession records the signed-in identity; nil clears it.
func (s *Store) SetSession(sess *permits.Session) {
	if sess != nil {
		copied := *sess
		sess = &copied
	}
	s.session.Store(sess)
}

// Session returns the current session or nil.
func (s *Store) Session() *permits.Session {
	return s.session.Load()
}
