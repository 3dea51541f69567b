package document

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// ErrNoPath is returned by Session.Save when the session has never been saved.
var ErrNoPath = errors.New("session has no file path")

// Session is the exclusive owner of a document while it is being edited.
// Writers go through Update; renderers and exporters work on snapshots.
type Session struct {
	mu    sync.RWMutex
	doc   *Document
	path  string
	dirty bool
	// version counts committed edits.
	version uint64
}

// NewSession takes ownership of doc. path may be empty for unsaved documents.
func NewSession(doc *Document, path string) *Session {
	return &Session{doc: doc, path: path}
}

// Open loads a document from path into a new session.
func Open(path string) (*Session, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewSession(doc, path), nil
}

// Snapshot returns a copy of the current grid.
func (s *Session) Snapshot() *mesh.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Grid.Clone()
}

// Document returns a copy of the whole document.
func (s *Session) Document() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Name returns the document name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Name
}

// Subdivisions returns the document's subdivision count.
func (s *Session) Subdivisions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Subdivisions
}

// SetSubdivisions changes the document's subdivision count.
func (s *Session) SetSubdivisions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Subdivisions != n {
		s.doc.Subdivisions = n
		s.touch()
	}
}

// Update applies fn to a working copy of the grid and commits it only if fn
// succeeds and the result still validates.
func (s *Session) Update(fn func(g *mesh.Grid) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.doc.Grid.Clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := work.Validate(); err != nil {
		return err
	}
	if !work.Equal(s.doc.Grid) {
		s.doc.Grid = work
		s.touch()
	}
	return nil
}

// Replace swaps in a new grid, e.g. a committed animation frame.
func (s *Session) Replace(g *mesh.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Grid = g.Clone()
	s.touch()
	return nil
}

// touch marks an edit. Callers hold the write lock.
func (s *Session) touch() {
	s.version++
	s.dirty = true
}

// Dirty reports whether the session has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Path returns the file the session saves to.
func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Save writes the document to the session path.
func (s *Session) Save() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()
	if path == "" {
		return ErrNoPath
	}
	return s.SaveAs(path)
}

// SaveAs writes the document to path and makes it the session path. The
// file is written from a copy without holding the lock; edits committed
// while it is written leave the session dirty.
func (s *Session) SaveAs(path string) error {
	doc, version := s.saveCopy()
	if err := doc.Save(path); err != nil {
		logger.Warn("session save failed", zap.String("path", path), zap.Error(err))
		return err
	}
	s.saved(path, version)
	return nil
}

func (s *Session) saveCopy() (*Document, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), s.version
}

// saved records a finished write of the document at version.
func (s *Session) saved(path string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	if s.version == version {
		s.dirty = false
	}
}
