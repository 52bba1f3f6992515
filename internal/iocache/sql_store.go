package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// analysesTable is the name of the table holding one row per job.
const analysesTable = "codetime_analyses"

// SQLStore keeps analyses in SQLite, MySQL or PostgreSQL. Each row carries
// the whole entry as one compressed payload plus a few columns for listing.
type SQLStore struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &SQLStore{} // Compile-time check

// NewSQLStore opens the database and makes sure the table exists.
func NewSQLStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	driver, err := driverName(backend)
	if err != nil {
		return nil, err
	}

	dsn := connStr
	if backend == schema.SQLiteBackend && dsn == "" {
		dsn = contract.GetCacheDBFilePath()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	if err := createSchema(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLStore{db: db, tableName: analysesTable, backend: backend, connStr: connStr}, nil
}

// createSchema applies the first migration so a fresh database works
// without running the migrate command.
func createSchema(db *sql.DB, backend schema.DatabaseBackend) error {
	ddl, err := migrationsFS.ReadFile(fmt.Sprintf("migrations/%s/000001_create_analyses.up.sql", backend))
	if err != nil {
		return fmt.Errorf("failed to read schema for %s: %w", backend, err)
	}
	for stmt := range strings.SplitSeq(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", analysesTable, err)
		}
	}
	return nil
}

// ph returns the n-th parameter placeholder for the backend.
func (s *SQLStore) ph(n int) string {
	if s.backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// upsertQuery returns the UPSERT query for the backend.
func (s *SQLStore) upsertQuery() string {
	table := quoteTableName(s.tableName, s.backend)
	cols := "repo_id, repo_url, status, total_commits, error_message, payload, created_at, updated_at"
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE repo_url = new.repo_url, status = new.status, total_commits = new.total_commits,
			error_message = new.error_message, payload = new.payload, created_at = new.created_at, updated_at = new.updated_at`, table, cols)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (repo_id) DO UPDATE SET repo_url = EXCLUDED.repo_url, status = EXCLUDED.status,
			total_commits = EXCLUDED.total_commits, error_message = EXCLUDED.error_message, payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`, table, cols)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table, cols)
	}
}

// Put implements the CacheStore interface. The row is replaced in one statement.
func (s *SQLStore) Put(ctx context.Context, repoID string, entry *schema.CacheEntry) error {
	payload, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	summary := entry.Summary()
	_, err = s.db.ExecContext(ctx, s.upsertQuery(),
		repoID, entry.RepoURL, string(entry.Status), summary.TotalCommits, entry.ErrorMessage, payload,
		entry.CreatedAt.Unix(), entry.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store analysis %s: %w", repoID, err)
	}
	return nil
}

// Get implements the CacheStore interface.
func (s *SQLStore) Get(ctx context.Context, repoID string) (*schema.CacheEntry, bool, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE repo_id = %s`, quoteTableName(s.tableName, s.backend), s.ph(1))
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, repoID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read analysis %s: %w", repoID, err)
	}
	entry, err := decodeEntry(payload)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Exists implements the CacheStore interface.
func (s *SQLStore) Exists(ctx context.Context, repoID string) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE repo_id = %s`, quoteTableName(s.tableName, s.backend), s.ph(1))
	var n int
	if err := s.db.QueryRowContext(ctx, query, repoID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check analysis %s: %w", repoID, err)
	}
	return n > 0, nil
}

// List implements the CacheStore interface. Newest entries come first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]schema.EntrySummary, error) {
	if limit <= 0 {
		limit = contract.DefaultListLimit
	}
	query := fmt.Sprintf(`SELECT repo_id, repo_url, status, total_commits, error_message, updated_at
		FROM %s ORDER BY updated_at DESC, repo_id ASC LIMIT %d`, quoteTableName(s.tableName, s.backend), limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []schema.EntrySummary{}
	for rows.Next() {
		var (
			row       schema.EntrySummary
			status    string
			errMsg    sql.NullString
			updatedAt int64
		)
		if err := rows.Scan(&row.RepoID, &row.RepoURL, &status, &row.TotalCommits, &errMsg, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		row.Status = schema.JobStatus(status)
		row.ErrorMessage = errMsg.String
		row.UpdatedAt = time.Unix(updatedAt, 0)
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// Delete implements the CacheStore interface. Deleting a missing id is not an error.
func (s *SQLStore) Delete(ctx context.Context, repoID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE repo_id = %s`, quoteTableName(s.tableName, s.backend), s.ph(1))
	if _, err := s.db.ExecContext(ctx, query, repoID); err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", repoID, err)
	}
	return nil
}

// Cleanup implements the CacheStore interface.
func (s *SQLStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE updated_at < %s`, quoteTableName(s.tableName, s.backend), s.ph(1))
	res, err := s.db.ExecContext(ctx, query, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up analyses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStatus implements the CacheStore interface.
func (s *SQLStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
		ByStatus:  map[schema.JobStatus]int{},
	}
	if s.db == nil {
		return status, nil
	}
	table := quoteTableName(s.tableName, s.backend)

	// --- 1. Count entries per status ---
	rows, err := s.db.Query(fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", table))
	if err != nil {
		return status, fmt.Errorf("failed to count entries: %w", err)
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			_ = rows.Close()
			return status, fmt.Errorf("failed to scan status count: %w", err)
		}
		status.ByStatus[schema.JobStatus(st)] = n
		status.TotalEntries += n
	}
	_ = rows.Close()
	if status.TotalEntries == 0 {
		return status, nil
	}

	// --- 2. Entry time range ---
	var lastTs, oldestTs int64
	row := s.db.QueryRow(fmt.Sprintf("SELECT MAX(updated_at), MIN(updated_at) FROM %s", table))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)
	status.OldestEntryTime = time.Unix(oldestTs, 0)

	// --- 3. Approximate size ---
	status.TableSizeBytes = s.tableSize(int64(status.TotalEntries))
	return status, nil
}

// tableSize asks the backend for the table size and falls back to a rough
// per-row estimate.
func (s *SQLStore) tableSize(entries int64) int64 {
	estimate := entries * 1000
	var size int64
	switch s.backend {
	case schema.SQLiteBackend:
		row := s.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := s.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, s.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.PostgreSQLBackend:
		row := s.db.QueryRow("SELECT pg_total_relation_size($1)", s.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	default:
		return estimate
	}
	return size
}
