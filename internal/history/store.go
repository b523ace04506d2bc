// Package history persists aggregate samples in SQLite and enforces the
// retention policy over them.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	_ "modernc.org/sqlite"

	"procmon/internal/models"
	"procmon/internal/utils"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history store is closed")

// SQLiteStore is the persistent time series of samples.
type SQLiteStore struct {
	db     *sql.DB
	log    *utils.Logger
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore opens (creating when needed) the database at dbPath and
// migrates the schema.
func NewSQLiteStore(dbPath string, logger *utils.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// One writer; keeps in-memory databases on a single connection too.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			logger.Warnf("Failed to set pragma %q: %v", p, err)
		}
	}

	s := &SQLiteStore{db: db, log: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	existing, err := s.columns()
	if err != nil {
		return err
	}
	for _, m := range columnMigrations {
		if existing[m.name] {
			continue
		}
		if _, err := s.db.Exec(m.ddl); err != nil {
			return errors.Wrapf(err, "failed to add column %s", m.name)
		}
		s.log.Infof("History schema: added column %s", m.name)
	}
	return nil
}

func (s *SQLiteStore) columns() (map[string]bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect schema")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, errors.Wrap(err, "failed to read schema")
		}
		out[name] = true
	}
	return out, rows.Err()
}

// Append inserts one sample.
func (s *SQLiteStore) Append(ctx context.Context, sample models.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var gpu sql.NullFloat64
	if sample.GPUPercent != nil {
		gpu = sql.NullFloat64{Float64: *sample.GPUPercent, Valid: true}
	}
	var fan sql.NullInt64
	if sample.FanRPM != nil {
		fan = sql.NullInt64{Int64: int64(*sample.FanRPM), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO system_stats (timestamp, cpu_percent, ram_percent, fan_rpm, gpu_percent) VALUES (?, ?, ?, ?, ?)",
		formatTimestamp(sample.Timestamp), sample.CPUPercent, sample.RAMPercent, fan, gpu)
	if err != nil {
		return errors.Wrap(err, "failed to insert sample")
	}
	return nil
}

// Sweep deletes every record whose age is retentionDays or more, measured
// from now. It returns the number of rows removed.
func (s *SQLiteStore) Sweep(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, "DELETE FROM system_stats WHERE timestamp <= ?", formatTimestamp(cutoff))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired samples")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count expired samples")
	}
	return n, nil
}

// LoadTail returns the most recent n records, oldest first. Records are
// ordered by insertion, which the collection loop keeps chronological even
// where local-time text is not (the repeated hour when DST ends).
func (s *SQLiteStore) LoadTail(ctx context.Context, n int) ([]models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT CAST(timestamp AS TEXT), cpu_percent, ram_percent, fan_rpm, gpu_percent FROM system_stats ORDER BY rowid DESC LIMIT ?", n)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query samples")
	}
	defer rows.Close()

	var out []models.Sample
	for rows.Next() {
		var (
			ts       string
			cpu, ram sql.NullFloat64
			fan      sql.NullInt64
			gpu      sql.NullFloat64
		)
		if err := rows.Scan(&ts, &cpu, &ram, &fan, &gpu); err != nil {
			return nil, errors.Wrap(err, "failed to scan sample")
		}
		sample := models.Sample{
			CPUPercent: cpu.Float64,
			RAMPercent: ram.Float64,
		}
		if parsed, perr := parseTimestamp(ts); perr == nil {
			sample.Timestamp = parsed
		} else {
			s.log.Debugf("History: unparseable timestamp %q: %v", ts, perr)
		}
		if fan.Valid && fan.Int64 >= 0 {
			sample.FanRPM = models.Uint(uint64(fan.Int64))
		}
		if gpu.Valid {
			sample.GPUPercent = models.Float(gpu.Float64)
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate samples")
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM system_stats").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count samples")
	}
	return n, nil
}

// Close releases the database handle. Further calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func formatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(storageLayout)
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(parseLayout, v, time.Local); err == nil {
		return t, nil
	}
	// Rows written through a driver that serialised time.Time.
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unrecognised timestamp %q", v)
	}
	return t.In(time.Local), nil
}
