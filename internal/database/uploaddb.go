package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/csvupload/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "csvupload.db"

// timestampLayout is fixed-width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("upload record not found")

// UploadDB stores upload history records.
type UploadDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures UploadDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*UploadDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	udb := &UploadDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := udb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return udb, nil
}

// Close closes the database connection.
func (udb *UploadDB) Close() error {
	return udb.db.Close()
}

// Path returns the database file path.
func (udb *UploadDB) Path() string {
	return udb.dbPath
}

func (udb *UploadDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		digest TEXT,
		server TEXT NOT NULL,
		status_code INTEGER,
		status TEXT NOT NULL,
		summary TEXT,
		histogram TEXT,
		heatmap TEXT,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
	CREATE INDEX IF NOT EXISTS idx_uploads_digest ON uploads(digest);
	`

	_, err := udb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveUpload stores a record. An empty ID is replaced by a random UUID and a
// zero CreatedAt by the current time; both are written back to record.
func (udb *UploadDB) SaveUpload(ctx context.Context, record *model.UploadRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO uploads (id, file_name, size, digest, server, status_code, status,
		summary, histogram, heatmap, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := udb.db.ExecContext(ctx, query,
		record.ID,
		record.FileName,
		record.Size,
		record.Digest,
		record.Server,
		record.StatusCode,
		string(record.Status),
		record.Display.Summary,
		record.Display.HistogramPath,
		record.Display.HeatmapPath,
		record.Error,
		record.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save upload record: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, file_name, size, digest, server, status_code, status,
		summary, histogram, heatmap, error, created_at
	FROM uploads
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.UploadRecord, error) {
	var (
		record     model.UploadRecord
		digest     sql.NullString
		statusCode sql.NullInt64
		status     string
		summary    sql.NullString
		histogram  sql.NullString
		heatmap    sql.NullString
		errText    sql.NullString
		createdAt  string
	)

	if err := row.Scan(
		&record.ID, &record.FileName, &record.Size, &digest, &record.Server,
		&statusCode, &status, &summary, &histogram, &heatmap, &errText, &createdAt,
	); err != nil {
		return nil, err
	}

	record.Digest = digest.String
	record.StatusCode = int(statusCode.Int64)
	record.Status = model.UploadStatus(status)
	record.Display = model.Display{
		Summary:       summary.String,
		HistogramPath: histogram.String,
		HeatmapPath:   heatmap.String,
	}
	record.Error = errText.String
	record.CreatedAt = parseTimestamp(createdAt)
	return &record, nil
}

// GetUpload returns the record with the given ID, or ErrNotFound.
func (udb *UploadDB) GetUpload(ctx context.Context, id string) (*model.UploadRecord, error) {
	record, err := scanRecord(udb.db.QueryRowContext(ctx, selectColumns+"WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload record: %w", err)
	}
	return record, nil
}

// ListUploads returns the most recent records first.
// A limit of zero or less returns all records.
func (udb *UploadDB) ListUploads(ctx context.Context, limit int) ([]*model.UploadRecord, error) {
	query := selectColumns + "ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := udb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload records: %w", err)
	}
	defer rows.Close()

	var records []*model.UploadRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteAll removes every record and returns how many were deleted.
func (udb *UploadDB) DeleteAll(ctx context.Context) (int64, error) {
	result, err := udb.db.ExecContext(ctx, "DELETE FROM uploads")
	if err != nil {
		return 0, fmt.Errorf("failed to delete upload records: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
}

// parseTimestamp tries each known format and returns zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
