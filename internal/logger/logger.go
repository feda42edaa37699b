package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// The server speaks MCP over stdio, so logs go to a file, never to
// stdout or stderr.
const envLogPath = "JIRA_MCP_LOG"

var (
	std           *log.Logger
	logFile       *os.File
	isInitialized bool
)

// InitFromEnv initializes the logger using JIRA_MCP_LOG or a default
// path next to the executable.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "jira-mcp.log")
		} else {
			path = "./jira-mcp.log"
		}
	}
	return Init(path)
}

// Init initializes the logger to write to the provided file path,
// creating parent directories if needed and appending to the file.
func Init(path string) error {
	if isInitialized {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	isInitialized = true
	return nil
}

// Close closes the underlying log file, if open.
func Close() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", format, args...) }

func write(level string, format string, args ...any) {
	if std == nil {
		_ = InitFromEnv()
	}
	if std != nil {
		std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	}
}
