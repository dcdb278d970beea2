package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFileConfig names a per-request or per-domain log file: used by the
// binding daemon and server to keep an on-disk audit trail alongside
// structured stdout/stderr logging.
type LogFileConfig struct {
	Prefix       string
	LogDir       string
	DomainLogDir string // overrides LogDir/DomainName if set
	DomainName   string
	RequestID    string
}

// OpenLogFile creates (or appends to) the log file named by config,
// creating its containing directory first.
func OpenLogFile(config LogFileConfig) (*os.File, error) {
	dir, err := prepareLogDirectory(config)
	if err != nil {
		return nil, err
	}
	return openFile(filepath.Join(dir, generateLogFilename(config)))
}

func prepareLogDirectory(config LogFileConfig) (string, error) {
	dir := config.DomainLogDir
	if dir == "" {
		dir = filepath.Join(config.LogDir, config.DomainName)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("logger: create log directory %s: %w", dir, err)
	}
	return dir, nil
}

func generateLogFilename(config LogFileConfig) string {
	date := time.Now().Format("20060102")
	return fmt.Sprintf("%s%s.%s.%s.log", config.Prefix, config.DomainName, date, config.RequestID)
}

func openFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return f, nil
}
