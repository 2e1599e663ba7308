// Package session holds the state one command invocation shares with the
// next: the last query, persisted in a marker file, and the exclusive lock
// that serializes invocations against the same data directory.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matsen/bibsearch/internal/query"
)

const (
	// MarkerFile holds the last non-empty query.
	MarkerFile = "last_query.yml"
	// LockFile is flocked for the lifetime of a session.
	LockFile = ".lock"
)

// Session is opened at command start and closed at command end.
type Session struct {
	dir     string
	lock    *os.File
	last    query.Query
	changed bool
	closed  bool
}

// Open locks dir and reads the last query marker. It blocks while another
// session on dir is open.
func Open(dir string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, LockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}

	s := &Session{dir: dir, lock: f}
	if err := s.readMarker(); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *Session) readMarker() error {
	data, err := os.ReadFile(filepath.Join(s.dir, MarkerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading last query: %w", err)
	}
	var q query.Query
	if err := yaml.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("parsing %s: %w", MarkerFile, err)
	}
	s.last = q
	return nil
}

// Dir returns the data directory.
func (s *Session) Dir() string {
	return s.dir
}

// LastQuery returns the last non-empty query, if any.
func (s *Session) LastQuery() (query.Query, bool) {
	return s.last, !s.last.IsEmpty()
}

// SetLastQuery records q as the last query. Empty queries are ignored.
func (s *Session) SetLastQuery(q query.Query) {
	if q.IsEmpty() {
		return
	}
	s.last = q
	s.changed = true
}

// Close writes the marker if the last query changed and releases the lock.
// It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	var err error
	if s.changed {
		err = s.writeMarker()
	}
	if rerr := s.release(); err == nil {
		err = rerr
	}
	return err
}

func (s *Session) writeMarker() error {
	data, err := yaml.Marshal(s.last)
	if err != nil {
		return fmt.Errorf("encoding last query: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".last_query-*.yml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing last query: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, MarkerFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("saving last query: %w", err)
	}
	s.changed = false
	return nil
}

func (s *Session) release() error {
	s.closed = true
	uerr := unlockFile(s.lock)
	cerr := s.lock.Close()
	if uerr != nil {
		return fmt.Errorf("unlocking: %w", uerr)
	}
	return cerr
}
