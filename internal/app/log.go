package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"
)

// LevelSuccess sits between Info and Warn and marks a successfully handled item.
const LevelSuccess = slog.Level(2)

// LogFileName is the log file written inside the configured log directory.
const LogFileName = "metafix.log"

// Stream tags, one per JSON line on stdout.
const (
	TagSuccess     = "success"
	TagError       = "error"
	TagWarning     = "warning"
	TagInfo        = "info"
	TagDefault     = "default"
	TagFinalMarker = "final_marker"
)

// CompletionText is the text of the record that ends every stream.
const CompletionText = "PROCESSING_COMPLETE"

func levelName(l slog.Level) string {
	if l == LevelSuccess {
		return "SUCCESS"
	}
	return l.String()
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return TagError
	case l >= slog.LevelWarn:
		return TagWarning
	case l == LevelSuccess:
		return TagSuccess
	case l >= slog.LevelInfo:
		return TagInfo
	default:
		return TagDefault
	}
}

// Stream writes the line-delimited JSON records read by a supervising process.
// Each record is {"text": ..., "tag": ...}. It is safe for concurrent use.
type Stream struct {
	mu       sync.Mutex
	w        io.Writer
	verbose  bool
	complete sync.Once
}

type streamRecord struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// NewStream creates a Stream on w. Debug records are only written when verbose is set.
func NewStream(w io.Writer, verbose bool) *Stream {
	return &Stream{w: w, verbose: verbose}
}

// Emit writes one record and flushes it.
func (s *Stream) Emit(tag, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(streamRecord{Text: text, Tag: tag}); err != nil {
		return err
	}
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Complete writes the final marker. Only the first call writes.
func (s *Stream) Complete() {
	s.complete.Do(func() {
		_ = s.Emit(TagFinalMarker, CompletionText)
	})
}

// Handler returns a slog.Handler writing to the stream. Only the record
// message is written; attributes go to the file log.
func (s *Stream) Handler() slog.Handler {
	return &streamHandler{s: s}
}

type streamHandler struct {
	s *Stream
}

func (h *streamHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= slog.LevelInfo || h.s.verbose
}

func (h *streamHandler) Handle(_ context.Context, r slog.Record) error {
	return h.s.Emit(levelTag(r.Level), r.Message)
}

func (h *streamHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *streamHandler) WithGroup(string) slog.Handler      { return h }

// tabHandler formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
type tabHandler struct {
	w     io.Writer
	opID  string
	min   slog.Level
	attrs []slog.Attr
}

func (h *tabHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.min }

func (h *tabHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, levelName(r.Level), h.opID, r.Message)
	if err != nil {
		return err
	}
	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func (h *tabHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tabHandler{
		w:     h.w,
		opID:  h.opID,
		min:   h.min,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *tabHandler) WithGroup(string) slog.Handler { return h }

// fanoutHandler hands each record to every handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	var kept []slog.Handler
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return kept[0]
	}
	return &fanoutHandler{handlers: kept}
}

func (h *fanoutHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// ConsoleWriter returns f when it is a terminal and nil otherwise, so a
// console log is only attached for interactive use.
func ConsoleWriter(f *os.File) io.Writer {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return f
	}
	return nil
}

// newLogger creates a logger that appends to logDir/metafix.log and also
// writes to stream and console when they are set. It returns the logger and
// the open log file (for cleanup). When the log file cannot be opened the
// logger still writes to stream and console, the file is nil and the error
// says why.
func newLogger(logDir, opID string, stream *Stream, console io.Writer, verbose bool) (*slog.Logger, *os.File, error) {
	var handlers []slog.Handler
	f, fileErr := openLogFile(logDir)
	if f != nil {
		handlers = append(handlers, &tabHandler{w: f, opID: opID, min: slog.LevelDebug})
	}
	if stream != nil {
		handlers = append(handlers, stream.Handler())
	}
	if console != nil {
		min := slog.LevelInfo
		if verbose {
			min = slog.LevelDebug
		}
		handlers = append(handlers, &tabHandler{w: console, opID: opID, min: min})
	}
	return slog.New(newFanoutHandler(handlers...)), f, fileErr
}

func openLogFile(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the fixer.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

func (a *slogAdapter) Success(msg string, args ...any) {
	a.l.Log(context.Background(), LevelSuccess, msg, args...)
}
