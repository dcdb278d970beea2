package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SimpleLogger is a minimal rotating io.WriteCloser: once interval has
// elapsed since the current file was opened, the next Write starts a fresh
// timestamped file. Used for
// the binding daemon's optional raw line-protocol traffic capture, where
// structured slog output would be too heavy per line.
type SimpleLogger struct {
	dir      string
	prefix   string
	interval time.Duration

	mu       sync.Mutex
	file     *os.File
	lastOpen time.Time
}

// NewSimpleLogger returns a SimpleLogger writing prefix-named files under
// dir, rotating to a new file whenever interval has elapsed since the
// current file was opened.
func NewSimpleLogger(dir, prefix string, interval time.Duration) *SimpleLogger {
	return &SimpleLogger{dir: dir, prefix: prefix, interval: interval}
}

// Open creates the first rotation file.
func (s *SimpleLogger) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotate()
}

func (s *SimpleLogger) rotate() error {
	if s.file != nil {
		_ = s.file.Close()
	}
	name := fmt.Sprintf("%s%s.log", s.prefix, time.Now().Format("20060102.15:04:05.000"))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("logger: open %s: %w", name, err)
	}
	s.file = f
	s.lastOpen = time.Now()
	return nil
}

// Write rotates to a new file if interval has elapsed since the current
// one was opened, then writes p to it.
func (s *SimpleLogger) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil || time.Since(s.lastOpen) >= s.interval {
		if err := s.rotate(); err != nil {
			return 0, err
		}
	}
	return s.file.Write(p)
}

// Close closes the current rotation file.
func (s *SimpleLogger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
