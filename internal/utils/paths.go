// Package utils contains utility types for logging and filesystem path
// management used throughout procmon.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves and manages filesystem locations used by procmon.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// DefaultPaths roots procmon next to the running executable, falling back to
// a directory under the system temp dir.
func DefaultPaths() *Paths {
	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil && resolved != "" {
			exe = resolved
		}
		return NewPaths(filepath.Dir(exe))
	}
	return NewPaths(filepath.Join(os.TempDir(), "procmon"))
}

// LogsDir returns the logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// DataDir returns the directory holding the history database.
func (p *Paths) DataDir() string {
	return filepath.Join(p.RootPath, "data")
}

// LogFile returns the main log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "procmon.log")
}

// HistoryDB returns the path of the SQLite history database.
func (p *Paths) HistoryDB() string {
	return filepath.Join(p.DataDir(), "system_monitor.db")
}

// CheckRoot verifies that core directories exist under the root path.
func (p *Paths) CheckRoot() bool {
	for _, dir := range []string{p.RootPath, p.LogsDir(), p.DataDir()} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// DeployRoot creates the root directory structure (idempotent).
func (p *Paths) DeployRoot(logger *Logger) error {
	for _, dir := range []struct{ path, label string }{
		{p.RootPath, "root"},
		{p.LogsDir(), "logs"},
		{p.DataDir(), "data"},
	} {
		if err := os.MkdirAll(dir.path, 0o755); err != nil {
			return fmt.Errorf("create %s path %s: %w", dir.label, dir.path, err)
		}
		if logger != nil {
			logger.Debugf("Ensured %s path: %s", dir.label, dir.path)
		}
	}
	return nil
}
