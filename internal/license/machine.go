package license

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/deckhand/deckhand/internal/db"
)

const defaultMachineIDPath = "/etc/machine-id"

// MachineID returns the stable per-installation identifier used as the
// correlation key with the license authority.
//
// Resolution order: the persisted value wins; otherwise the host's
// /etc/machine-id is adopted; otherwise a uuid is generated. Whatever is
// chosen is persisted once and never regenerated.
func (v *Validator) MachineID(ctx context.Context) (string, error) {
	if v == nil || v.store == nil {
		return "", errors.New("license validator is nil")
	}
	existing, err := v.store.GetMachineID(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}
	machineID := readHostMachineID(v.machineIDPath)
	if machineID == "" {
		machineID = uuid.NewString()
	}
	if err := v.store.SetMachineID(ctx, machineID); err != nil {
		return "", fmt.Errorf("persist machine id: %w", err)
	}
	return machineID, nil
}

func readHostMachineID(path string) string {
	if path == "" {
		path = defaultMachineIDPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
