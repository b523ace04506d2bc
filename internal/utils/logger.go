package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// Logger writes timestamped lines to a log file, or stdout when the file
// cannot be opened.
type Logger struct {
	entry     *log.Logger
	writeFile *os.File
}

// writeToDefaultLog writes a single line to stderr when the requested log
// cannot be opened.
func writeToDefaultLog(message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", time.Now().Format(timestampFormat), message)
}

func newBaseLogger(out io.Writer) *log.Logger {
	base := log.New()
	base.SetOutput(out)
	base.SetLevel(log.InfoLevel)
	base.SetFormatter(&log.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  timestampFormat,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})
	return base
}

// NewLogger opens the given log file for appending. An empty path falls back
// to the default layout next to the executable.
func NewLogger(logFile string) *Logger {
	if logFile == "" {
		logFile = DefaultPaths().LogFile()
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		writeToDefaultLog(fmt.Sprintf("Error opening log file (%s): %v", logFile, err))
		return &Logger{entry: newBaseLogger(os.Stdout)}
	}
	return &Logger{entry: newBaseLogger(f), writeFile: f}
}

// NewWriterLogger logs to an arbitrary writer. Tests pass io.Discard or a buffer.
func NewWriterLogger(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{entry: newBaseLogger(w)}
}

// SetLevel parses a logrus level name; unknown names leave the level unchanged.
func (l *Logger) SetLevel(level string) error {
	if l == nil {
		return nil
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.SetLevel(parsed)
	return nil
}

// Write appends an info-level message.
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	l.entry.Info(message)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Errorf(format, args...)
}

// WithFields returns a structured entry for key/value logging.
func (l *Logger) WithFields(fields map[string]any) *log.Entry {
	if l == nil {
		return log.NewEntry(newBaseLogger(io.Discard)).WithFields(log.Fields(fields))
	}
	return l.entry.WithFields(log.Fields(fields))
}

// Close flushes and closes the underlying file handle.
func (l *Logger) Close() {
	if l == nil || l.writeFile == nil {
		return
	}
	_ = l.writeFile.Sync()
	_ = l.writeFile.Close()
	l.writeFile = nil
}

// File returns the underlying write file handle when available.
func (l *Logger) File() *os.File {
	if l == nil {
		return nil
	}
	return l.writeFile
}
