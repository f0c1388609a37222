package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
	"wslrocky/pkg/errors"
)

// Repository provides database operations for WSL instances
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new instance record
func (r *Repository) Create(inst *Instance) error {
	slog.Info("database_create_instance", "distro_name", inst.DistroName, "status", inst.Status)

	query := `
		INSERT INTO instances (distro_name, image_url, archive_sha256, status, install_dir, archive_path, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		inst.DistroName, inst.ImageURL, inst.ArchiveSHA256, inst.Status,
		inst.InstallDir, inst.ArchivePath, inst.ErrorMessage)
	if err != nil {
		slog.Error("database_insert_failed", "distro_name", inst.DistroName, "error", err)
		return errors.Wrap(err, "failed to insert instance")
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("database_last_insert_id_failed", "distro_name", inst.DistroName, "error", err)
		return errors.Wrap(err, "failed to get last insert id")
	}
	inst.ID = id

	slog.Info("database_instance_created", "distro_name", inst.DistroName, "instance_id", inst.ID, "status", inst.Status)
	return nil
}

// GetByName retrieves an instance by distribution name
func (r *Repository) GetByName(distroName string) (*Instance, error) {
	query := `
		SELECT id, distro_name, image_url, archive_sha256, status,
		       install_dir, archive_path, error_message, created_at, updated_at
		FROM instances WHERE distro_name = ?
	`
	var inst Instance
	var installDir, archivePath, errorMessage sql.NullString

	err := r.db.QueryRow(query, distroName).Scan(
		&inst.ID, &inst.DistroName, &inst.ImageURL, &inst.ArchiveSHA256, &inst.Status,
		&installDir, &archivePath, &errorMessage,
		&inst.CreatedAt, &inst.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Info("database_instance_not_found", "distro_name", distroName)
		return nil, nil // Not found
	}
	if err != nil {
		slog.Error("database_query_failed", "distro_name", distroName, "error", err)
		return nil, errors.Wrap(err, "failed to query instance")
	}

	inst.InstallDir = installDir.String
	inst.ArchivePath = archivePath.String
	inst.ErrorMessage = errorMessage.String

	slog.Info("database_instance_found", "distro_name", distroName, "instance_id", inst.ID, "status", inst.Status)
	return &inst, nil
}

// Update updates an existing instance record
func (r *Repository) Update(inst *Instance) error {
	slog.Info("database_update_instance", "instance_id", inst.ID, "distro_name", inst.DistroName, "status", inst.Status)

	query := `
		UPDATE instances
		SET image_url = ?, archive_sha256 = ?, status = ?,
		    install_dir = ?, archive_path = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		inst.ImageURL, inst.ArchiveSHA256, inst.Status,
		inst.InstallDir, inst.ArchivePath, inst.ErrorMessage, inst.ID)
	if err != nil {
		slog.Error("database_update_failed", "instance_id", inst.ID, "distro_name", inst.DistroName, "error", err)
		return errors.Wrap(err, "failed to update instance")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		slog.Error("database_rows_affected_failed", "instance_id", inst.ID, "error", err)
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		slog.Error("database_instance_not_found_for_update", "instance_id", inst.ID)
		return fmt.Errorf("instance not found: id=%d", inst.ID)
	}

	return nil
}

// UpdateStatus updates only the status field
func (r *Repository) UpdateStatus(id int64, status, errorMessage string) error {
	slog.Info("database_update_status", "instance_id", id, "status", status)

	query := `UPDATE instances SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.Exec(query, status, errorMessage, id)
	if err != nil {
		slog.Error("database_status_update_failed", "instance_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update status")
	}

	return nil
}

// List retrieves all instances
func (r *Repository) List() ([]*Instance, error) {
	query := `
		SELECT id, distro_name, image_url, archive_sha256, status,
		       install_dir, archive_path, error_message, created_at, updated_at
		FROM instances ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list instances")
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		var inst Instance
		var installDir, archivePath, errorMessage sql.NullString

		err := rows.Scan(
			&inst.ID, &inst.DistroName, &inst.ImageURL, &inst.ArchiveSHA256, &inst.Status,
			&installDir, &archivePath, &errorMessage,
			&inst.CreatedAt, &inst.UpdatedAt)
		if err != nil {
			slog.Error("database_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}

		inst.InstallDir = installDir.String
		inst.ArchivePath = archivePath.String
		inst.ErrorMessage = errorMessage.String

		instances = append(instances, &inst)
	}

	if err := rows.Err(); err != nil {
		slog.Error("database_rows_error", "error", err)
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("database_list_complete", "instance_count", len(instances))
	return instances, nil
}

// Delete deletes an instance by ID
func (r *Repository) Delete(id int64) error {
	slog.Info("database_delete_instance", "instance_id", id)

	query := `DELETE FROM instances WHERE id = ?`
	_, err := r.db.Exec(query, id)
	if err != nil {
		slog.Error("database_delete_failed", "instance_id", id, "error", err)
		return errors.Wrap(err, "failed to delete instance")
	}

	return nil
}

// RecordRestart inserts a restart audit row and returns its ID.
// Written just before the resumption task is scheduled.
func (r *Repository) RecordRestart(ctx context.Context, distroName string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO restarts (distro_name) VALUES (?)`, distroName)
	if err != nil {
		slog.Error("database_record_restart_failed", "distro_name", distroName, "error", err)
		return 0, errors.Wrap(err, "failed to record restart")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get restart id")
	}

	slog.Info("database_restart_recorded", "distro_name", distroName, "restart_id", id)
	return id, nil
}

// MarkResumed closes out any open restart rows for a distribution.
// Called by the resume command after reboot.
func (r *Repository) MarkResumed(ctx context.Context, distroName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE restarts SET resumed_at = CURRENT_TIMESTAMP WHERE distro_name = ? AND resumed_at IS NULL`,
		distroName)
	if err != nil {
		slog.Error("database_mark_resumed_failed", "distro_name", distroName, "error", err)
		return errors.Wrap(err, "failed to mark restart resumed")
	}

	slog.Info("database_restart_resumed", "distro_name", distroName)
	return nil
}

// PendingRestarts counts restart rows not yet resumed.
func (r *Repository) PendingRestarts(ctx context.Context, distroName string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restarts WHERE distro_name = ? AND resumed_at IS NULL`,
		distroName).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pending restarts")
	}
	return n, nil
}
