package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

// BackupStore records backup runs. Timestamps come from the caller so the
// manager's clock decides both creation and retention.
type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, filename, object_key, size_bytes, status, error_message, started_at, completed_at, created_at`

func scanBackup(s scanner) (*model.Backup, error) {
	var b model.Backup
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	err := s.Scan(&b.ID, &b.Filename, &b.ObjectKey, &b.SizeBytes, &b.Status, &errMsg, &startedAt, &completedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.ErrorMessage = errMsg.String
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

func (s *BackupStore) Create(ctx context.Context, filename, objectKey string, startedAt time.Time) (*model.Backup, error) {
	now := startedAt.UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO backups (filename, object_key, status, started_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		filename, objectKey, model.BackupStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BackupStore) GetByID(ctx context.Context, id int64) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRowContext(ctx, `SELECT `+backupCols+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

func (s *BackupStore) List(ctx context.Context, limit int) ([]model.Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) UpdateStatus(ctx context.Context, id int64, status model.BackupStatus, errorMsg string) error {
	var errPtr *string
	if errorMsg != "" {
		errPtr = &errorMsg
	}
	_, err := s.db.ExecContext(ctx, `UPDATE backups SET status = ?, error_message = ? WHERE id = ?`, status, errPtr, id)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(ctx context.Context, id, sizeBytes int64, completedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, completedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

// LatestCompleted returns the most recent successful backup, or nil.
func (s *BackupStore) LatestCompleted(ctx context.Context) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRowContext(ctx,
		`SELECT `+backupCols+` FROM backups WHERE status = ? ORDER BY completed_at DESC, id DESC LIMIT 1`,
		model.BackupStatusCompleted,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest backup: %w", err)
	}
	return b, nil
}

// DeleteOlderThan deletes backup records created before the cutoff and
// returns the object keys they pointed at.
func (s *BackupStore) DeleteOlderThan(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT object_key FROM backups WHERE created_at < ?`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE created_at < ?`, before.UTC()); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
