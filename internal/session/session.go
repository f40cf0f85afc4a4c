// Package session holds one uploaded table per user session. Analyses read
// the original upload; a cleaning fix always starts again from it.
package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/clean"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

var (
	// ErrNoTable is returned by operations on a session that has no upload yet.
	ErrNoTable = errors.New("no dataset loaded")
	// ErrNotFound is returned by Store for unknown or evicted session ids.
	ErrNotFound = errors.New("session not found")
)

// Session is safe for concurrent use; operations run one at a time.
type Session struct {
	mu sync.Mutex

	id        string
	opt       table.LoadOptions
	name      string
	original  *table.Table
	processed *table.Table
	lastFix   clean.Fix
	createdAt time.Time
	loadedAt  time.Time
}

// Info is a snapshot of session metadata.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	Fix       clean.Fix `json:"fix,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
}

// New constructs an empty session. Call Load to attach a dataset.
func New(opt table.LoadOptions) *Session {
	return &Session{id: uuid.NewString(), opt: opt, createdAt: time.Now()}
}

func (s *Session) ID() string { return s.id }

// Load parses r as the file called name. The session's table is replaced
// only on success; on failure the previous dataset stays in place.
func (s *Session) Load(name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := table.Load(name, r, s.opt)
	if err != nil {
		return err
	}
	s.attach(name, t)
	return nil
}

// LoadFile is Load for a path on disk.
func (s *Session) LoadFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := table.LoadFile(path, s.opt)
	if err != nil {
		return err
	}
	s.attach(filepath.Base(path), t)
	return nil
}

func (s *Session) attach(name string, t *table.Table) {
	s.name = name
	s.original = t
	s.processed = nil
	s.lastFix = ""
	s.loadedAt = time.Now()
}

// Info returns the session metadata.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := Info{ID: s.id, Name: s.name, Fix: s.lastFix, CreatedAt: s.createdAt, LoadedAt: s.loadedAt}
	if s.original != nil {
		in.Rows, in.Columns = s.original.NumRows(), s.original.NumCols()
	}
	return in
}

// Original returns the uploaded table.
func (s *Session) Original() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil, ErrNoTable
	}
	return s.original, nil
}

// Processed returns the most recently cleaned table, or the original when no
// fix has been applied.
func (s *Session) Processed() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Session) current() (*table.Table, error) {
	if s.original == nil {
		return nil, ErrNoTable
	}
	if s.processed != nil {
		return s.processed, nil
	}
	return s.original, nil
}

// Apply runs one fix against the original upload and keeps the result as the
// processed table, replacing any earlier fix.
func (s *Session) Apply(fix clean.Fix) (clean.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return clean.Summary{}, ErrNoTable
	}
	out, sum, err := clean.Apply(s.original, fix)
	if err != nil {
		return clean.Summary{}, err
	}
	s.processed = out
	s.lastFix = fix
	return sum, nil
}

// Reset discards the processed table.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = nil
	s.lastFix = ""
}

// Export writes the processed table as CSV.
func (s *Session) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.current()
	if err != nil {
		return err
	}
	if err := clean.Export(w, t); err != nil {
		return fmt.Errorf("export %s: %w", s.id, err)
	}
	return nil
}

// withOriginal runs fn on the original table while holding the session lock.
func (s *Session) withOriginal(fn func(t *table.Table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return ErrNoTable
	}
	return fn(s.original)
}

// Profile profiles the original upload.
func (s *Session) Profile() (p *analysis.Profile, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		p = analysis.ProfileTable(t)
		return nil
	})
	return p, err
}

// Outliers runs analysis.DetectOutliers on the original upload.
func (s *Session) Outliers(column string, opt analysis.OutlierOptions) (r *analysis.OutlierReport, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		r, err = analysis.DetectOutliers(t, column, opt)
		return err
	})
	return r, err
}

// Correlations runs analysis.Correlate on the original upload.
func (s *Session) Correlations() (m *analysis.CorrMatrix, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		m, err = analysis.Correlate(t)
		return err
	})
	return m, err
}

// Coordinates runs analysis.LocateCoordinates on the original upload.
func (s *Session) Coordinates() (c *analysis.CoordinatePair, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		c, err = analysis.LocateCoordinates(t)
		return err
	})
	return c, err
}

// Distribution runs analysis.Distribute on the original upload.
func (s *Session) Distribution(column string, bins int) (d *analysis.Distribution, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		d, err = analysis.Distribute(t, column, bins)
		return err
	})
	return d, err
}

// Report builds the full quality report of the original upload.
func (s *Session) Report(opt analysis.ReportOptions) (r *analysis.Report, err error) {
	err = s.withOriginal(func(t *table.Table) error {
		r = analysis.BuildReport(s.name, t, opt)
		return nil
	})
	return r, err
}
