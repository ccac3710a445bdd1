// Package diag collects parse and resolution warnings.
//
// No warning in luadox is fatal: a full run always produces output, and the
// CLI decides what to do with a non-zero warning count. Warnings are logged
// as they occur and accumulated for the final summary.
package diag

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Kind classifies a warning for the summary and for tests.
type Kind string

const (
	Parse      Kind = "parse"      // malformed tag, unknown tag, truncated block
	Collision  Kind = "collision"  // duplicate qualified name
	Order      Kind = "order"      // @order anchor not found among siblings
	Unresolved Kind = "unresolved" // reference could not be resolved
	Crawl      Kind = "crawl"      // missing file, undiscoverable require()
)

// Warning is a single accumulated diagnostic.
type Warning struct {
	Kind Kind
	File string
	Line int
	Msg  string
}

func (w Warning) String() string {
	if w.File == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
	}
	if w.Line <= 0 {
		return fmt.Sprintf("%s: %s: %s", w.Kind, w.File, w.Msg)
	}
	return fmt.Sprintf("%s: %s:%d: %s", w.Kind, w.File, w.Line, w.Msg)
}

// Sink logs warnings through slog and keeps them for later inspection.
// Safe for use from a single goroutine; the mutex only guards against
// accidental concurrent use from tests.
type Sink struct {
	logger *slog.Logger

	mu       sync.Mutex
	warnings []Warning
}

// NewSink returns a Sink logging through logger. A nil logger discards
// log output but still accumulates warnings.
func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sink{logger: logger}
}

// NewLogger builds the text logger used by the CLI.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Warnf records a warning at file:line. line <= 0 means the location is
// unknown or spans the whole file.
func (s *Sink) Warnf(kind Kind, file string, line int, format string, args ...any) {
	w := Warning{Kind: kind, File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
	s.logger.Warn(w.Msg, "kind", string(kind), "file", file, "line", line)
}

// Infof logs progress without recording a warning.
func (s *Sink) Infof(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// Warnings returns a copy of all accumulated warnings in emission order.
func (s *Sink) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Count returns the number of warnings emitted so far.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warnings)
}

// CountKind returns the number of warnings of the given kind.
func (s *Sink) CountKind(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
