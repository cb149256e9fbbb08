// Package sink persists proof records.
//
// The proof artifact is one line per record:
//
//	head<TAB>body1<TAB>...<TAB>bodyN<TAB>#citation
//
// with no header or footer. Every record is flushed as soon as it is
// written, so an interrupted run leaves every emitted record on disk.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/provex/internal/ir"
)

// ArtifactFile is the conventional proof-artifact name inside a provenance
// directory.
const ArtifactFile = "cons_all.txt"

// Sink receives proof records in emission order.
type Sink interface {
	Emit(rec ir.ProofRecord) error
}

// Format renders one record as an artifact line, newline included.
func Format(rec ir.ProofRecord) string {
	var sb strings.Builder
	sb.WriteString(rec.Head)
	for _, b := range rec.Body {
		sb.WriteByte('\t')
		sb.WriteString(b)
	}
	sb.WriteString("\t#")
	sb.WriteString(rec.Citation)
	sb.WriteByte('\n')
	return sb.String()
}

// Option configures a Writer.
type Option func(*Writer)

// WithFsync makes every Emit also fsync the underlying file when it
// supports it.
func WithFsync() Option {
	return func(w *Writer) {
		w.fsync = true
	}
}

type syncer interface {
	Sync() error
}

// Writer writes the TSV artifact to any io.Writer.
type Writer struct {
	mu    sync.Mutex
	buf   *bufio.Writer
	dst   io.Writer
	fsync bool
	count int
}

// NewWriter wraps w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	sw := &Writer{buf: bufio.NewWriter(w), dst: w}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Emit writes and flushes one record.
func (w *Writer) Emit(rec ir.ProofRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.WriteString(Format(rec)); err != nil {
		return fmt.Errorf("write proof: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush proof: %w", err)
	}
	if w.fsync {
		if s, ok := w.dst.(syncer); ok {
			if err := s.Sync(); err != nil {
				return fmt.Errorf("sync proof: %w", err)
			}
		}
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// File is a Writer that owns its file.
type File struct {
	*Writer
	f    *os.File
	path string
}

// Create truncates or creates the artifact at path, creating parent
// directories as needed.
func Create(path string, opts ...Option) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &File{Writer: NewWriter(f, opts...), f: f, path: path}, nil
}

// Path returns the artifact path.
func (f *File) Path() string {
	return f.path
}

// Close closes the file. Records are already flushed.
func (f *File) Close() error {
	if err := f.f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}

// Multi fans every record out to each sink in order. The first failure
// stops the fan-out and is returned.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Emit(rec ir.ProofRecord) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// Collector keeps records in memory.
type Collector struct {
	mu      sync.Mutex
	records []ir.ProofRecord
}

// Emit appends a copy of rec.
func (c *Collector) Emit(rec ir.ProofRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.Body = append([]string(nil), rec.Body...)
	c.records = append(c.records, rec)
	return nil
}

// Records returns the collected records in emission order.
func (c *Collector) Records() []ir.ProofRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ir.ProofRecord(nil), c.records...)
}

// ErrClosed is returned by Failing once its budget is spent.
var ErrClosed = errors.New("sink closed")

// Failing accepts n records and then fails every Emit with ErrClosed.
// Tests use it to exercise sink I/O failures.
type Failing struct {
	Remaining int
}

// Emit implements Sink.
func (f *Failing) Emit(ir.ProofRecord) error {
	if f.Remaining <= 0 {
		return ErrClosed
	}
	f.Remaining--
	return nil
}
