package logging

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/copyleftdev/gridsearch/internal/errors"
)

const sinkComponent = "logging.Sink"

// Sink is the shared error-log destination for a group of components. It
// replaces a process-wide logger: owners create one, hand it to the
// components that should share a log file, and each component registers
// itself with Acquire. The file is flushed and closed when the last client
// calls Release.
type Sink struct {
	mu       sync.Mutex
	clients  map[string]struct{}
	file     *os.File
	buf      *bufio.Writer
	path     string
	fallback io.Writer
	level    LogLevel
	format   Format
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithFallback sets the writer used while no log file is configured.
func WithFallback(w io.Writer) SinkOption {
	return func(s *Sink) { s.fallback = w }
}

// WithSinkLevel sets the minimum level of loggers handed out by Acquire.
func WithSinkLevel(level LogLevel) SinkOption {
	return func(s *Sink) { s.level = level }
}

// WithSinkFormat sets the entry format of loggers handed out by Acquire.
func WithSinkFormat(format Format) SinkOption {
	return func(s *Sink) { s.format = format }
}

// NewSink creates a sink without a log file. Entries go to stderr until
// SetLogFile succeeds.
func NewSink(opts ...SinkOption) *Sink {
	s := &Sink{
		clients:  make(map[string]struct{}),
		fallback: os.Stderr,
		level:    ErrorLevel,
		format:   JSONFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogFile opens path in append mode and closes the previous log file, if
// any. The sink is unchanged when path is empty or cannot be opened.
func (s *Sink) SetLogFile(path string) error {
	if path == "" {
		return errors.E(errors.CodeNullPtr, sinkComponent, "SetLogFile").WithMessage("empty path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.E(errors.CodeOpenFile, sinkComponent, "SetLogFile").WithMessage(err.Error())
	}

	if err := s.closeLocked(); err != nil {
		_ = f.Close()
		return err
	}

	s.file = f
	s.buf = bufio.NewWriter(f)
	s.path = path
	return nil
}

// Path returns the current log file path, or "" when none is open.
func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Acquire registers client and returns a logger that writes to the sink.
// Acquiring twice with the same client is a no-op registration.
func (s *Sink) Acquire(client string) *Logger {
	s.mu.Lock()
	s.clients[client] = struct{}{}
	level, format := s.level, s.format
	s.mu.Unlock()

	return New(level, s).WithFormat(format).WithField("client", client)
}

// Clients returns the number of registered clients.
func (s *Sink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Release unregisters client. When the last client leaves, the log file is
// flushed and closed.
func (s *Sink) Release(client string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; !ok {
		return errors.E(errors.CodeElemNotFound, sinkComponent, "Release").WithMessage("unknown client " + client)
	}
	delete(s.clients, client)

	if len(s.clients) == 0 {
		return s.closeLocked()
	}
	return nil
}

// Write implements io.Writer. Each call is one log line.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return s.fallback.Write(p)
	}
	n, err := s.buf.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.buf.Flush()
}

// Sync flushes buffered lines to disk.
func (s *Sink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *Sink) closeLocked() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.buf.Flush()
	closeErr := s.file.Close()
	s.file, s.buf, s.path = nil, nil, ""

	if flushErr != nil {
		return errors.Wrap(flushErr, "flush log file").WithComponent(sinkComponent).WithOperation("close")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "close log file").WithComponent(sinkComponent).WithOperation("close")
	}
	return nil
}
