package config

import (
	"fmt"
	"os"
	"strings"
)

// CheckConfigPermissions inspects the daemon config file's mode bits. The
// file can carry a license authority token and monitor credentials, so
// anything beyond owner access is rejected and group-read only warned
// about.
//
// Returns a non-empty warning for tolerable modes and an error for modes
// the daemon should refuse to run with.
func CheckConfigPermissions(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("config path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat config %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("config %s is not a regular file", path)
	}
	mode := info.Mode().Perm()
	switch {
	case mode&0o400 == 0:
		return "", fmt.Errorf("config %s is unreadable by its owner (mode %04o)", path, mode)
	case mode&0o007 != 0:
		return "", fmt.Errorf("config %s is world-accessible (mode %04o); chmod 0600 and restart", path, mode)
	case mode&0o030 != 0:
		return "", fmt.Errorf("config %s is group-writable or executable (mode %04o); chmod 0600 and restart", path, mode)
	case mode&0o040 != 0:
		return fmt.Sprintf("config %s is group-readable (mode %04o); consider chmod 0600", path, mode), nil
	}
	return "", nil
}
