package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	"github.com/tidwall/gjson"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/logging"
	"github.com/kyleking/rockset-org-metadata/internal/rockset"
)

// DuckDBCatalog implements the Catalog interface using DuckDB
type DuckDBCatalog struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewDuckDBCatalog opens (or creates) a catalog file
func NewDuckDBCatalog(dbPath string) (*DuckDBCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeFileSystem, "failed to create catalog directory")
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to open catalog")
	}

	// One connection; writes are ordered
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to ping catalog")
	}

	return &DuckDBCatalog{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Path returns the catalog file location
func (c *DuckDBCatalog) Path() string {
	return c.path
}

// Initialize brings the schema up to date
func (c *DuckDBCatalog) Initialize(ctx context.Context) error {
	applied, err := NewMigrationManager(c.db).MigrateUp(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to migrate catalog")
	}

	if applied > 0 {
		logging.WithFields(map[string]interface{}{
			"path":       c.path,
			"migrations": applied,
		}).Info("Catalog schema updated")
	}

	return nil
}

// BeginRun registers a new export run and returns its id
func (c *DuckDBCatalog) BeginRun(ctx context.Context, apiServer string) (string, error) {
	runID := uuid.New().String()

	_, err := c.db.ExecContext(ctx,
		"INSERT INTO export_runs (id, api_server, status, started_at) VALUES (?, ?, ?, ?)",
		runID, apiServer, RunStatusRunning, c.now())
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to record export run")
	}

	return runID, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil
func (c *DuckDBCatalog) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := RunStatusCompleted

	var message sql.NullString

	if runErr != nil {
		status = RunStatusFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}

	result, err := c.db.ExecContext(ctx,
		"UPDATE export_runs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?",
		status, c.now(), message, runID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to finish export run")
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperrors.Newf(apperrors.ErrTypeCatalog, "export run %s not found", runID)
	}

	return nil
}

// StoreDocument records the document written for an endpoint
func (c *DuckDBCatalog) StoreDocument(ctx context.Context, runID, endpoint string, doc json.RawMessage) error {
	if !gjson.ValidBytes(doc) {
		return apperrors.Newf(apperrors.ErrTypeCatalog, "document for %s is not valid JSON", endpoint)
	}

	var position int

	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM endpoint_documents WHERE run_id = ?", runID).Scan(&position)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to count stored documents")
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO endpoint_documents (run_id, endpoint, position, record_count, document)
		VALUES (?, ?, ?, ?, ?)`,
		runID, endpoint, position, RecordCount(doc), string(doc))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrTypeCatalog, "failed to store %s document", endpoint)
	}

	return nil
}

// StoreCollection records a collection and its ordered fields
func (c *DuckDBCatalog) StoreCollection(ctx context.Context, runID, workspace, name string, fields []rockset.Field) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO collections (run_id, workspace, name, field_count) VALUES (?, ?, ?, ?)",
		runID, workspace, name, len(fields))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrTypeCatalog, "failed to store collection %s.%s", workspace, name)
	}

	for i, field := range fields {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collection_fields (run_id, workspace, collection, position, name, type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, workspace, name, i, field.Name, field.Type)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrTypeCatalog,
				"failed to store field %d of %s.%s", i, workspace, name)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to commit collection")
	}

	return nil
}

// Stats summarizes a run; an empty runID selects the most recent one
func (c *DuckDBCatalog) Stats(ctx context.Context, runID string) (*RunStats, error) {
	if runID == "" {
		err := c.db.QueryRowContext(ctx,
			"SELECT id FROM export_runs ORDER BY started_at DESC LIMIT 1").Scan(&runID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrTypeCatalog, "catalog holds no export runs")
		}

		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to find latest run")
		}
	}

	stats := &RunStats{RunID: runID, Endpoints: []string{}}

	var errorMessage sql.NullString

	err := c.db.QueryRowContext(ctx,
		"SELECT api_server, status, started_at, completed_at, error_message FROM export_runs WHERE id = ?",
		runID).Scan(&stats.APIServer, &stats.Status, &stats.StartedAt, &stats.CompletedAt, &errorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrTypeCatalog, "export run %s not found", runID)
	}

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to load export run")
	}

	stats.Error = errorMessage.String

	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), CAST(COALESCE(SUM(record_count), 0) AS BIGINT)
		FROM endpoint_documents WHERE run_id = ?`, runID).Scan(&stats.Documents, &stats.Records)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to count documents")
	}

	err = c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collections WHERE run_id = ?", runID).Scan(&stats.Collections)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to count collections")
	}

	err = c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collection_fields WHERE run_id = ?", runID).Scan(&stats.Fields)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to count fields")
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT endpoint FROM endpoint_documents WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to list endpoints")
	}
	defer rows.Close()

	for rows.Next() {
		var endpoint string
		if err := rows.Scan(&endpoint); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}

		stats.Endpoints = append(stats.Endpoints, endpoint)
	}

	return stats, rows.Err()
}

// CollectionFields returns the stored fields of a collection in DESCRIBE order
func (c *DuckDBCatalog) CollectionFields(ctx context.Context, runID, workspace, name string) ([]rockset.Field, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, type FROM collection_fields
		WHERE run_id = ? AND workspace = ? AND collection = ?
		ORDER BY position`, runID, workspace, name)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to query collection fields")
	}
	defer rows.Close()

	fields := []rockset.Field{}

	for rows.Next() {
		var field rockset.Field
		if err := rows.Scan(&field.Name, &field.Type); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}

		fields = append(fields, field)
	}

	return fields, rows.Err()
}

// Close closes the database connection
func (c *DuckDBCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// RecordCount counts the records of an endpoint document: the length of its
// data array, of the document itself when it is an array, or zero
func RecordCount(doc []byte) int {
	if data := gjson.GetBytes(doc, "data"); data.IsArray() {
		return int(data.Get("#").Int())
	}

	if root := gjson.ParseBytes(doc); root.IsArray() {
		return int(root.Get("#").Int())
	}

	return 0
}
