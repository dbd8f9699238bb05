package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"parkpal/internal/model"
)

// BackupRepository persists the timer engine's state snapshot. A single row
// holds the whole backup; every save overwrites it entirely so a crashed
// write can never leave a half-patched snapshot behind.
type BackupRepository struct {
	db *sql.DB
}

func NewBackupRepository(db *sql.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

func (r *BackupRepository) Save(ctx context.Context, backup model.PersistedBackup) error {
	payload, err := json.Marshal(backup)
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO timer_backup (id, payload, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	return nil
}

func (r *BackupRepository) Load(ctx context.Context) (*model.PersistedBackup, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM timer_backup WHERE id = 1`).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load backup: %w", err)
	}

	var backup model.PersistedBackup
	if err := json.Unmarshal([]byte(payload), &backup); err != nil {
		return nil, fmt.Errorf("unmarshal backup: %w", err)
	}
	return &backup, nil
}
