package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"procmon/internal/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndLoadTailOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

	for i := 0; i < 5; i++ {
		sample := models.Sample{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			CPUPercent: float64(i * 10),
			RAMPercent: 50,
		}
		if err := s.Append(ctx, sample); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	tail, err := s.LoadTail(ctx, 3)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if len(tail) != 3 {
		t.Fatalf("expected 3 records, got %d", len(tail))
	}
	want := []float64{20, 30, 40}
	for i, rec := range tail {
		if rec.CPUPercent != want[i] {
			t.Errorf("record %d cpu = %v, want %v", i, rec.CPUPercent, want[i])
		}
		if i > 0 && !rec.Timestamp.After(tail[i-1].Timestamp) {
			t.Errorf("records not oldest-first at %d", i)
		}
	}
	if !tail[2].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Errorf("last timestamp = %v, want %v", tail[2].Timestamp, base.Add(4*time.Second))
	}
}

func TestLoadTailOrderAcrossDSTFallBack(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	saved := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = saved })

	s := openTestStore(t)
	ctx := context.Background()
	// 01:50 EDT, then 01:10 EST twenty minutes later.
	first := time.Date(2024, 11, 3, 5, 50, 0, 0, time.UTC)
	second := time.Date(2024, 11, 3, 6, 10, 0, 0, time.UTC)
	for i, at := range []time.Time{first, second} {
		if err := s.Append(ctx, models.Sample{Timestamp: at, CPUPercent: float64(i + 1)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	tail, err := s.LoadTail(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if len(tail) != 2 || tail[0].CPUPercent != 1 || tail[1].CPUPercent != 2 {
		t.Fatalf("records out of chronological order: %+v", tail)
	}
}

func TestBusyTimeoutIsApplied(t *testing.T) {
	s := openTestStore(t)
	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestCountTracksAppendAndSweep(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	for _, at := range []time.Time{now.AddDate(0, 0, -30), now.Add(-time.Minute), now} {
		if err := s.Append(ctx, models.Sample{Timestamp: at}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if n, err := s.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}
	if _, err := s.Sweep(ctx, 7, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 2 {
		t.Fatalf("Count after sweep = %d, %v; want 2", n, err)
	}
}

func TestLoadTailFewerThanRequested(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		if err := s.Append(ctx, models.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), CPUPercent: float64(i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	tail, err := s.LoadTail(ctx, 60)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if len(tail) != 7 {
		t.Fatalf("expected 7 records, got %d", len(tail))
	}
	for i, rec := range tail {
		if rec.CPUPercent != float64(i) {
			t.Errorf("record %d cpu = %v, want %d", i, rec.CPUPercent, i)
		}
	}
}

func TestOptionalFieldsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Append(ctx, models.Sample{Timestamp: now, CPUPercent: 1, RAMPercent: 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, models.Sample{
		Timestamp:  now.Add(time.Second),
		CPUPercent: 3,
		RAMPercent: 4,
		GPUPercent: models.Float(55),
		FanRPM:     models.Uint(1200),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tail, err := s.LoadTail(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if tail[0].GPUPercent != nil || tail[0].FanRPM != nil {
		t.Errorf("expected unavailable gpu/fan on first record, got %+v", tail[0])
	}
	if tail[1].GPUPercent == nil || *tail[1].GPUPercent != 55 {
		t.Errorf("gpu = %v, want 55", tail[1].GPUPercent)
	}
	if tail[1].FanRPM == nil || *tail[1].FanRPM != 1200 {
		t.Errorf("fan = %v, want 1200", tail[1].FanRPM)
	}
}

func TestSweepRemovesAgesAtOrBeyondRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.Local)
	const retention = 7

	ages := []int{0, retention - 1, retention, retention + 1}
	for _, age := range ages {
		sample := models.Sample{Timestamp: now.AddDate(0, 0, -age), CPUPercent: float64(age)}
		if err := s.Append(ctx, sample); err != nil {
			t.Fatalf("Append age %d: %v", age, err)
		}
	}

	removed, err := s.Sweep(ctx, retention, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	tail, err := s.LoadTail(ctx, 10)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 remaining records, got %d", len(tail))
	}
	for _, rec := range tail {
		if rec.CPUPercent >= retention {
			t.Errorf("record of age %v survived the sweep", rec.CPUPercent)
		}
	}
}

func TestSweepNonPositiveRetentionIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Append(ctx, models.Sample{Timestamp: time.Now().AddDate(-1, 0, 0)}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	removed, err := s.Sweep(ctx, 0, time.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestLegacySchemaIsMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE system_stats (timestamp DATETIME PRIMARY KEY, cpu_percent REAL, ram_percent REAL)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO system_stats VALUES ('2026-01-02 03:04:05.123456', 12.5, 40)`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	db.Close()

	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore on legacy db: %v", err)
	}
	defer s.Close()

	cols, err := s.columns()
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	for _, name := range []string{"fan_rpm", "gpu_percent"} {
		if !cols[name] {
			t.Errorf("column %s missing after migration", name)
		}
	}

	tail, err := s.LoadTail(context.Background(), 60)
	if err != nil {
		t.Fatalf("LoadTail: %v", err)
	}
	if len(tail) != 1 {
		t.Fatalf("expected legacy row, got %d", len(tail))
	}
	rec := tail[0]
	if rec.CPUPercent != 12.5 || rec.RAMPercent != 40 {
		t.Errorf("unexpected legacy values %+v", rec)
	}
	if rec.GPUPercent != nil {
		t.Errorf("gpu should be unavailable for legacy rows, got %v", *rec.GPUPercent)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.Local)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, want)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Append(context.Background(), models.Sample{Timestamp: time.Now()}); err != ErrClosed {
		t.Fatalf("Append after close = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := NewSQLiteStore("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
