package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"rawwatch/internal/config"
	"rawwatch/internal/convert"
	"rawwatch/internal/logging"
)

// ErrDisabled is returned by Open when the configuration turns the ledger off.
var ErrDisabled = errors.New("ledger disabled")

// Entry is one recorded conversion attempt.
type Entry struct {
	ID             int64
	ScanID         string
	RawPath        string
	RawSize        int64
	RawModTime     time.Time
	OutputPath     string
	Status         string
	ErrorKind      string
	ErrorMessage   string
	ProfileVersion string
	Duration       time.Duration
	RecordedAt     time.Time
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Totals counts entries per status.
type Totals struct {
	Converted int
	Skipped   int
	Failed    int
}

// Store persists entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ convert.Recorder = (*Store)(nil)

// Open connects to the ledger database configured in cfg, creating it on
// first use.
func Open(cfg *config.Config) (*Store, error) {
	path := cfg.LedgerPath()
	if path == "" {
		return nil, ErrDisabled
	}
	return OpenPath(path)
}

// OpenPath connects to the ledger database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// The watch loop has a single writer; one connection avoids SQLITE_BUSY
	// between the writer and history readers in the same process.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. RecordedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if entry.RawPath == "" {
		return 0, errors.New("entry raw path is empty")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (
            scan_id, raw_path, raw_size, raw_mtime, output_path, status,
            error_kind, error_message, profile_version, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(entry.ScanID),
		entry.RawPath,
		entry.RawSize,
		nullableTime(entry.RawModTime),
		entry.OutputPath,
		entry.Status,
		nullableString(entry.ErrorKind),
		nullableString(entry.ErrorMessage),
		nullableString(entry.ProfileVersion),
		entry.Duration.Milliseconds(),
		entry.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert conversion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordOutcome stores a conversion outcome under the scan id carried by ctx.
func (s *Store) RecordOutcome(ctx context.Context, outcome convert.Outcome) error {
	scanID, _ := logging.ScanIDFromContext(ctx)
	entry := Entry{
		ScanID:         scanID,
		RawPath:        outcome.RawPath,
		RawSize:        outcome.RawSize,
		RawModTime:     outcome.RawModTime,
		OutputPath:     outcome.OutputPath,
		Status:         outcome.Status.String(),
		ErrorKind:      outcome.ErrorKind(),
		ProfileVersion: outcome.ProfileVersion,
		Duration:       outcome.Duration,
	}
	if outcome.Err != nil {
		entry.ErrorMessage = outcome.Err.Error()
	}
	_, err := s.Record(ctx, entry)
	return err
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status string
	ScanID string
	Limit  int
}

const entryColumns = `id, scan_id, raw_path, raw_size, raw_mtime, output_path, status,
    error_kind, error_message, profile_version, duration_ms, recorded_at`

// List returns entries newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM conversions WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ScanID != "" {
		query += ` AND scan_id = ?`
		args = append(args, filter.ScanID)
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return entries, nil
}

// LastForPath returns the most recent entry for rawPath, or nil.
func (s *Store) LastForPath(ctx context.Context, rawPath string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM conversions WHERE raw_path = ? ORDER BY id DESC LIMIT 1`,
		rawPath,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Totals counts entries by status.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM conversions GROUP BY status`)
	if err != nil {
		return Totals{}, fmt.Errorf("count conversions: %w", err)
	}
	defer rows.Close()

	var totals Totals
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Totals{}, fmt.Errorf("scan totals: %w", err)
		}
		switch status {
		case convert.StatusConverted.String():
			totals.Converted = count
		case convert.StatusSkipped.String():
			totals.Skipped = count
		case convert.StatusFailed.String():
			totals.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Totals{}, fmt.Errorf("iterate totals: %w", err)
	}
	return totals, nil
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversions WHERE recorded_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry      Entry
		scanID     sql.NullString
		rawMTime   sql.NullString
		errKind    sql.NullString
		errMsg     sql.NullString
		profile    sql.NullString
		durationMS int64
		recordedAt string
	)
	if err := row.Scan(
		&entry.ID, &scanID, &entry.RawPath, &entry.RawSize, &rawMTime, &entry.OutputPath,
		&entry.Status, &errKind, &errMsg, &profile, &durationMS, &recordedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan conversion: %w", err)
	}
	entry.ScanID = scanID.String
	entry.ErrorKind = errKind.String
	entry.ErrorMessage = errMsg.String
	entry.ProfileVersion = profile.String
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	entry.RawModTime = parseTime(rawMTime.String)
	entry.RecordedAt = parseTime(recordedAt)
	return entry, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(timeLayout)
}
