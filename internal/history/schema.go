package history

const tableName = "system_stats"

// Schema creates the sample table. Columns added after the first release are
// also listed in columnMigrations so older databases gain them in place.
const Schema = `
CREATE TABLE IF NOT EXISTS system_stats (
    timestamp TEXT PRIMARY KEY,
    cpu_percent REAL,
    ram_percent REAL,
    fan_rpm INTEGER DEFAULT 0,
    gpu_percent REAL
);
`

// columnMigrations are applied in order when the column is missing. Existing
// rows read NULL (or the default) for new columns.
var columnMigrations = []struct {
	name string
	ddl  string
}{
	{name: "fan_rpm", ddl: "ALTER TABLE system_stats ADD COLUMN fan_rpm INTEGER DEFAULT 0"},
	{name: "gpu_percent", ddl: "ALTER TABLE system_stats ADD COLUMN gpu_percent REAL"},
}

// storageLayout is how timestamps are written: local time, microsecond
// precision, lexically ordered. parseLayout also accepts rows without a
// fractional part.
const (
	storageLayout = "2006-01-02 15:04:05.000000"
	parseLayout   = "2006-01-02 15:04:05.999999999"
)
