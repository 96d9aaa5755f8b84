package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// LicenseState is the persisted licensing record. A host has at most one.
//
// SealedLicense holds the encrypted license payload; decryption and
// interpretation belong to the license package. TrialStartedAt is set the
// first time the daemon runs without an activated license and never moves
// forward afterwards.
type LicenseState struct {
	SealedLicense  string
	LastValidation *time.Time
	TrialStartedAt *time.Time
	UpdatedAt      time.Time
}

// GetMachineID returns the persisted machine identity, or ErrNotFound.
func (s *Store) GetMachineID(ctx context.Context) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New("db store is nil")
	}
	var machineID string
	err := s.DB.QueryRowContext(ctx, `SELECT machine_id FROM machine_identity WHERE id = 1`).Scan(&machineID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get machine id: %w", err)
	}
	return machineID, nil
}

// SetMachineID persists the machine identity. The identity is written once
// and never overwritten; a second call with a different id is an error.
func (s *Store) SetMachineID(ctx context.Context, machineID string) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	machineID = strings.TrimSpace(machineID)
	if machineID == "" {
		return errors.New("machine id is required")
	}
	existing, err := s.GetMachineID(ctx)
	if err == nil {
		if existing != machineID {
			return fmt.Errorf("machine id already set to %s", existing)
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	now := formatTime(time.Now().UTC())
	_, err = s.DB.ExecContext(ctx, `INSERT INTO machine_identity (id, machine_id, created_at) VALUES (1, ?, ?)`, machineID, now)
	if err != nil {
		return fmt.Errorf("set machine id: %w", err)
	}
	return nil
}

// GetLicenseState returns the single license record, or ErrNotFound when
// the host has never stored one.
func (s *Store) GetLicenseState(ctx context.Context) (LicenseState, error) {
	if s == nil || s.DB == nil {
		return LicenseState{}, errors.New("db store is nil")
	}
	var sealed sql.NullString
	var lastValidation sql.NullString
	var trialStarted sql.NullString
	var updatedAt string
	err := s.DB.QueryRowContext(ctx, `SELECT sealed_license, last_validation, trial_started_at, updated_at
		FROM license_state WHERE id = 1`).Scan(&sealed, &lastValidation, &trialStarted, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LicenseState{}, ErrNotFound
	}
	if err != nil {
		return LicenseState{}, fmt.Errorf("get license state: %w", err)
	}
	state := LicenseState{}
	if sealed.Valid {
		state.SealedLicense = sealed.String
	}
	if state.LastValidation, err = parseNullTime(lastValidation); err != nil {
		return LicenseState{}, fmt.Errorf("parse last_validation: %w", err)
	}
	if state.TrialStartedAt, err = parseNullTime(trialStarted); err != nil {
		return LicenseState{}, fmt.Errorf("parse trial_started_at: %w", err)
	}
	if state.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return LicenseState{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return state, nil
}

// SaveSealedLicense stores the encrypted license payload and stamps the
// validation time, creating the record if needed.
func (s *Store) SaveSealedLicense(ctx context.Context, sealed string, validatedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if strings.TrimSpace(sealed) == "" {
		return errors.New("sealed license is required")
	}
	now := formatTime(time.Now().UTC())
	_, err := s.DB.ExecContext(ctx, `INSERT INTO license_state (id, sealed_license, last_validation, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sealed_license = excluded.sealed_license,
			last_validation = excluded.last_validation, updated_at = excluded.updated_at`,
		sealed, formatTime(validatedAt), now)
	if err != nil {
		return fmt.Errorf("save sealed license: %w", err)
	}
	return nil
}

// TouchLastValidation updates the validation timestamp without changing the
// stored license.
func (s *Store) TouchLastValidation(ctx context.Context, validatedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	now := formatTime(time.Now().UTC())
	res, err := s.DB.ExecContext(ctx, `UPDATE license_state SET last_validation = ?, updated_at = ? WHERE id = 1`,
		formatTime(validatedAt), now)
	if err != nil {
		return fmt.Errorf("touch last validation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch last validation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearLicense removes the stored license but keeps the trial record, so a
// deactivated host falls back to whatever trial time remains.
func (s *Store) ClearLicense(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	now := formatTime(time.Now().UTC())
	_, err := s.DB.ExecContext(ctx, `UPDATE license_state SET sealed_license = NULL, last_validation = NULL, updated_at = ? WHERE id = 1`, now)
	if err != nil {
		return fmt.Errorf("clear license: %w", err)
	}
	return nil
}

// EnsureTrialStart records the trial start time if none exists and returns
// the effective start. An existing start is never moved.
func (s *Store) EnsureTrialStart(ctx context.Context, start time.Time) (time.Time, error) {
	if s == nil || s.DB == nil {
		return time.Time{}, errors.New("db store is nil")
	}
	state, err := s.GetLicenseState(ctx)
	if err == nil && state.TrialStartedAt != nil {
		return *state.TrialStartedAt, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return time.Time{}, err
	}
	now := formatTime(time.Now().UTC())
	_, err = s.DB.ExecContext(ctx, `INSERT INTO license_state (id, trial_started_at, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET trial_started_at = COALESCE(license_state.trial_started_at, excluded.trial_started_at),
			updated_at = excluded.updated_at`,
		formatTime(start), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("ensure trial start: %w", err)
	}
	state, err = s.GetLicenseState(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if state.TrialStartedAt == nil {
		return time.Time{}, errors.New("trial start missing after insert")
	}
	return *state.TrialStartedAt, nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}
