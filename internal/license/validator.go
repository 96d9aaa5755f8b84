// Package license owns the locally persisted license record and its
// validation state machine.
//
// A host is in one of four states: unlicensed, trial, paid, or expired.
// Validate drives the transitions: an unlicensed host gets a time-boxed
// trial; a paid license is reconfirmed against the remote authority at most
// once per revalidation window, with a bounded offline grace period when
// the authority is unreachable. Local expiry always wins over a stale
// cached verdict.
//
// The persisted record is sealed with an age identity before it reaches
// the database; see Sealer.
package license

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/deckhand/deckhand/internal/db"
	"github.com/deckhand/deckhand/internal/models"
)

const (
	// trialDuration is how long a freshly started trial remains valid.
	trialDuration = 30 * 24 * time.Hour
	// revalidateAfter is the minimum interval between authority checks.
	revalidateAfter = 24 * time.Hour
	// offlineGrace is how long a cached license stays valid when the
	// authority cannot be reached. The boundary is inclusive.
	offlineGrace = 7 * 24 * time.Hour

	// nonExpiringDays is the DaysRemaining sentinel for licenses without
	// an expiry.
	nonExpiringDays = 10000
)

// ActivationResult is the user-facing outcome of an activation attempt.
// Message is meant for direct display; it distinguishes an unreachable
// authority from a rejected key.
type ActivationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Validator implements the licensing state machine over the persisted
// (license, validation clock) pair.
//
// Validate and Activate both mutate the persisted record; a mutex makes
// each operation's read-then-write atomic. All time comparisons within one
// operation use a single canonical now.
type Validator struct {
	store     *db.Store
	authority Authority
	sealer    *Sealer
	logger    *log.Logger
	now       func() time.Time

	// trialProducts is the entitlement set granted to new trials,
	// normally the full catalog at daemon startup.
	trialProducts []string

	machineIDPath string

	mu sync.Mutex
}

// NewValidator builds a license validator with defaults.
func NewValidator(store *db.Store, authority Authority, sealer *Sealer, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{
		store:     store,
		authority: authority,
		sealer:    sealer,
		logger:    logger,
		now:       time.Now,
	}
}

// WithTrialProducts sets the entitlement set granted to new trials.
func (v *Validator) WithTrialProducts(ids []string) *Validator {
	if v == nil {
		return v
	}
	v.trialProducts = append([]string(nil), ids...)
	return v
}

// WithMachineIDPath overrides the host machine-id file location.
func (v *Validator) WithMachineIDPath(path string) *Validator {
	if v == nil {
		return v
	}
	v.machineIDPath = path
	return v
}

// WithNow overrides the clock, used by tests.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	if v == nil || now == nil {
		return v
	}
	v.now = now
	return v
}

// Validate runs the composite validation state machine and reports whether
// the host currently holds a valid license.
//
// An unlicensed host starts a trial and is valid by construction. Otherwise
// local expiry is checked first; only when the revalidation window has
// elapsed is the authority consulted, with the offline grace fallback on
// transport failure. The returned error covers persistence failures only;
// authority outcomes are folded into the boolean.
func (v *Validator) Validate(ctx context.Context) (bool, error) {
	if v == nil || v.store == nil {
		return false, errors.New("license validator not configured")
	}
	now := v.now()
	v.mu.Lock()
	defer v.mu.Unlock()

	state, lic, err := v.load(ctx)
	if err != nil {
		return false, err
	}
	if lic == nil {
		trial, err := v.startTrial(ctx, now)
		if err != nil {
			return false, err
		}
		// A genuinely fresh trial is valid by construction; a host whose
		// earlier trial record survived a license wipe may already be past
		// its window.
		return !now.After(trial.TrialEndsAt), nil
	}

	// Local expiry wins over any cached authority verdict.
	if lic.IsTrial {
		if !lic.TrialEndsAt.IsZero() && now.After(lic.TrialEndsAt) {
			return false, nil
		}
		return true, nil
	}
	if !lic.ExpiresAt.IsZero() && now.After(lic.ExpiresAt) {
		return false, nil
	}

	var last time.Time
	if state.LastValidation != nil {
		last = *state.LastValidation
	}
	if !last.IsZero() && now.Sub(last) < revalidateAfter {
		return true, nil
	}

	machineID, err := v.MachineID(ctx)
	if err != nil {
		return false, err
	}
	result, err := v.authority.Validate(ctx, lic.Key, machineID)
	if err != nil {
		// Authority unreachable: the cached license carries the host
		// through the grace window, inclusive at the boundary.
		if !last.IsZero() && now.Sub(last) <= offlineGrace {
			v.logger.Printf("license: authority unreachable, within offline grace: %v", err)
			return true, nil
		}
		v.logger.Printf("license: authority unreachable, offline grace exhausted: %v", err)
		return false, nil
	}
	if !result.Valid {
		v.logger.Printf("license: authority rejected key: %s", result.Reason)
		v.recordEvent(ctx, "license.invalid", result.Reason)
		return false, nil
	}

	refreshed := result.License
	// The authority may omit the key in its response; the cached key stays
	// authoritative, otherwise the next revalidation would post an empty one.
	if refreshed.Key == "" {
		refreshed.Key = lic.Key
	}
	refreshed.IsTrial = false
	if reflect.DeepEqual(refreshed, *lic) {
		// Unchanged license: stamp the validation clock without resealing.
		if err := v.store.TouchLastValidation(ctx, now); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := v.persist(ctx, refreshed, now); err != nil {
		return false, err
	}
	return true, nil
}

// Activate exchanges a license key for a paid license. It always contacts
// the authority; nothing is served from cache. The returned error covers
// persistence failures only. Authority rejection and transport failure
// both surface as a display message.
func (v *Validator) Activate(ctx context.Context, key string) (ActivationResult, error) {
	if v == nil || v.store == nil {
		return ActivationResult{}, errors.New("license validator not configured")
	}
	if key == "" {
		return ActivationResult{Success: false, Message: "license key is required"}, nil
	}
	now := v.now()
	v.mu.Lock()
	defer v.mu.Unlock()

	machineID, err := v.MachineID(ctx)
	if err != nil {
		return ActivationResult{}, err
	}
	result, err := v.authority.Validate(ctx, key, machineID)
	if err != nil {
		return ActivationResult{
			Success: false,
			Message: "could not reach the license server; check your connection and try again",
		}, nil
	}
	if !result.Valid {
		msg := "license key was rejected"
		if result.Reason != "" {
			msg = "license key was rejected: " + result.Reason
		}
		return ActivationResult{Success: false, Message: msg}, nil
	}

	lic := result.License
	lic.Key = key
	lic.IsTrial = false
	if err := v.persist(ctx, lic, now); err != nil {
		return ActivationResult{}, err
	}
	v.recordEvent(ctx, "license.activate", fmt.Sprintf("activated %s license", lic.Tier))
	return ActivationResult{
		Success: true,
		Message: fmt.Sprintf("activated %s license", lic.Tier),
	}, nil
}

// GetLicense returns the persisted license, or nil when none exists. Pure
// read: no network calls, no expiry side effects.
func (v *Validator) GetLicense(ctx context.Context) (*models.License, error) {
	if v == nil || v.store == nil {
		return nil, errors.New("license validator not configured")
	}
	_, lic, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	return lic, nil
}

// CanAccessProduct reports whether the current license entitles productID.
// Purely local; safe to call per dashboard render.
func (v *Validator) CanAccessProduct(ctx context.Context, productID string) (bool, error) {
	lic, err := v.GetLicense(ctx)
	if err != nil {
		return false, err
	}
	if lic == nil {
		return false, nil
	}
	return lic.Entitles(productID), nil
}

// DaysRemaining returns the ceiling of days until the relevant expiry
// (trial end for trials, expiry for paid), clamped at zero once past.
// Non-expiring licenses report the nonExpiringDays sentinel.
func (v *Validator) DaysRemaining(ctx context.Context) (int, error) {
	if v == nil || v.store == nil {
		return 0, errors.New("license validator not configured")
	}
	now := v.now()
	_, lic, err := v.load(ctx)
	if err != nil {
		return 0, err
	}
	if lic == nil {
		return 0, nil
	}
	expiry := lic.ExpiresAt
	if lic.IsTrial {
		expiry = lic.TrialEndsAt
	}
	if expiry.IsZero() {
		return nonExpiringDays, nil
	}
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		return 0, nil
	}
	return int(math.Ceil(remaining.Hours() / 24)), nil
}

func (v *Validator) startTrial(ctx context.Context, now time.Time) (models.License, error) {
	start, err := v.store.EnsureTrialStart(ctx, now)
	if err != nil {
		return models.License{}, err
	}
	trial := models.License{
		Tier:        models.TierTrial,
		Products:    append([]string(nil), v.trialProducts...),
		IsTrial:     true,
		TrialEndsAt: start.Add(trialDuration),
	}
	if err := v.persist(ctx, trial, now); err != nil {
		return models.License{}, err
	}
	v.logger.Printf("license: started trial ending %s", trial.TrialEndsAt.Format(time.RFC3339))
	v.recordEvent(ctx, "license.trial_start", "trial started")
	return trial, nil
}

// load returns the raw persisted state plus the unsealed license, nil when
// no license is stored.
func (v *Validator) load(ctx context.Context) (db.LicenseState, *models.License, error) {
	state, err := v.store.GetLicenseState(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return db.LicenseState{}, nil, nil
	}
	if err != nil {
		return db.LicenseState{}, nil, err
	}
	if state.SealedLicense == "" {
		return state, nil, nil
	}
	lic, err := v.sealer.Open(state.SealedLicense)
	if err != nil {
		return db.LicenseState{}, nil, fmt.Errorf("unseal stored license: %w", err)
	}
	return state, &lic, nil
}

func (v *Validator) persist(ctx context.Context, lic models.License, now time.Time) error {
	sealed, err := v.sealer.Seal(lic)
	if err != nil {
		return err
	}
	if err := v.store.SaveSealedLicense(ctx, sealed, now); err != nil {
		return err
	}
	return nil
}

func (v *Validator) recordEvent(ctx context.Context, kind, msg string) {
	if err := v.store.RecordEvent(ctx, kind, "", msg, ""); err != nil {
		v.logger.Printf("license: record event %s: %v", kind, err)
	}
}
