package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpdateCheck records one update-feed probe.
type UpdateCheck struct {
	ID               int64
	CheckedAt        time.Time
	CurrentVersion   string
	HasUpdate        bool
	AvailableVersion string
}

// RecordUpdateCheck appends an update-feed probe result.
func (s *Store) RecordUpdateCheck(ctx context.Context, currentVersion string, hasUpdate bool, availableVersion string) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	currentVersion = strings.TrimSpace(currentVersion)
	if currentVersion == "" {
		return errors.New("current version is required")
	}
	now := formatTime(time.Now().UTC())
	flag := 0
	if hasUpdate {
		flag = 1
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO update_checks (checked_at, current_version, has_update, available_version)
		VALUES (?, ?, ?, ?)`, now, currentVersion, flag, nullIfEmpty(availableVersion))
	if err != nil {
		return fmt.Errorf("record update check: %w", err)
	}
	return nil
}

// LatestUpdateCheck returns the most recent probe, or ErrNotFound when no
// check has run yet.
func (s *Store) LatestUpdateCheck(ctx context.Context) (UpdateCheck, error) {
	if s == nil || s.DB == nil {
		return UpdateCheck{}, errors.New("db store is nil")
	}
	var check UpdateCheck
	var checkedAt string
	var flag int
	var available sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT id, checked_at, current_version, has_update, available_version
		FROM update_checks ORDER BY id DESC LIMIT 1`).Scan(&check.ID, &checkedAt, &check.CurrentVersion, &flag, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return UpdateCheck{}, ErrNotFound
	}
	if err != nil {
		return UpdateCheck{}, fmt.Errorf("latest update check: %w", err)
	}
	if check.CheckedAt, err = parseTime(checkedAt); err != nil {
		return UpdateCheck{}, fmt.Errorf("parse checked_at: %w", err)
	}
	check.HasUpdate = flag != 0
	if available.Valid {
		check.AvailableVersion = available.String
	}
	return check, nil
}
