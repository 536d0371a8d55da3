package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kyleking/rockset-org-metadata/internal/logging"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int        `json:"version"`
	Description string     `json:"description"`
	Applied     bool       `json:"applied"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// MigrationManager handles catalog schema migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Export runs and endpoint documents",
			Up: `
				CREATE TABLE IF NOT EXISTS export_runs (
					id VARCHAR PRIMARY KEY,
					api_server VARCHAR NOT NULL,
					status VARCHAR NOT NULL,
					started_at TIMESTAMP NOT NULL,
					completed_at TIMESTAMP,
					error_message TEXT
				);

				CREATE TABLE IF NOT EXISTS endpoint_documents (
					run_id VARCHAR NOT NULL,
					endpoint VARCHAR NOT NULL,
					position INTEGER NOT NULL,
					record_count INTEGER NOT NULL,
					document TEXT NOT NULL,
					stored_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (run_id, endpoint)
				);
			`,
		},
		{
			Version:     2,
			Description: "Collection schemas",
			Up: `
				CREATE TABLE IF NOT EXISTS collections (
					run_id VARCHAR NOT NULL,
					workspace VARCHAR NOT NULL,
					name VARCHAR NOT NULL,
					field_count INTEGER NOT NULL,
					PRIMARY KEY (run_id, workspace, name)
				);

				CREATE TABLE IF NOT EXISTS collection_fields (
					run_id VARCHAR NOT NULL,
					workspace VARCHAR NOT NULL,
					collection VARCHAR NOT NULL,
					position INTEGER NOT NULL,
					name VARCHAR NOT NULL,
					type VARCHAR NOT NULL,
					PRIMARY KEY (run_id, workspace, collection, position)
				);

				CREATE INDEX IF NOT EXISTS idx_collection_fields_type ON collection_fields(type);
			`,
		},
	}
}

// LatestVersion returns the highest migration version known to this build
func (m *MigrationManager) LatestVersion() int {
	latest := 0

	for _, migration := range m.GetMigrations() {
		if migration.Version > latest {
			latest = migration.Version
		}
	}

	return latest
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// appliedMigrations maps applied versions to their application time
func (m *MigrationManager) appliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)

	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)

		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// CurrentVersion returns the highest applied version, or 0 for a fresh catalog
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	current := 0

	for version := range applied {
		if version > current {
			current = version
		}
	}

	return current, nil
}

func (m *MigrationManager) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies all pending migrations and returns how many ran
func (m *MigrationManager) MigrateUp(ctx context.Context) (int, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	count := 0

	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		logging.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying catalog migration")

		if err := m.applyMigration(ctx, migration); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

// GetMigrationStatus returns the status of every known migration
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	migrations := m.GetMigrations()
	status := make([]MigrationStatus, 0, len(migrations))

	for _, migration := range migrations {
		entry := MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
		}

		if at, ok := applied[migration.Version]; ok {
			entry.Applied = true
			entry.AppliedAt = &at
		}

		status = append(status, entry)
	}

	return status, nil
}
