package license

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/deckhand/deckhand/internal/models"
)

// Sealer encrypts the license record at rest with an age identity held on
// the local filesystem. The key file is generated on first use and never
// leaves the host; sealed payloads are base64 so they store cleanly in a
// TEXT column.
type Sealer struct {
	KeyPath string
}

// NewSealer returns a Sealer using the identity at keyPath.
func NewSealer(keyPath string) *Sealer {
	return &Sealer{KeyPath: keyPath}
}

// Seal serializes and encrypts a license record.
func (s *Sealer) Seal(lic models.License) (string, error) {
	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return "", err
	}
	plaintext, err := json.Marshal(lic)
	if err != nil {
		return "", fmt.Errorf("encode license: %w", err)
	}
	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("seal license: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("seal license: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("seal license: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed.Bytes()), nil
}

// Open decrypts a sealed license record.
func (s *Sealer) Open(sealed string) (models.License, error) {
	identity, err := s.loadIdentity()
	if err != nil {
		return models.License{}, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return models.License{}, fmt.Errorf("decode sealed license: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return models.License{}, fmt.Errorf("unseal license: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return models.License{}, fmt.Errorf("unseal license: %w", err)
	}
	var lic models.License
	if err := json.Unmarshal(plaintext, &lic); err != nil {
		return models.License{}, fmt.Errorf("parse license: %w", err)
	}
	return lic, nil
}

func (s *Sealer) loadOrCreateIdentity() (*age.X25519Identity, error) {
	identity, err := s.loadIdentity()
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate license key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.KeyPath), 0o750); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	content := "# deckhand license sealing key\n" + identity.String() + "\n"
	if err := os.WriteFile(s.KeyPath, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("write license key %s: %w", s.KeyPath, err)
	}
	return identity, nil
}

func (s *Sealer) loadIdentity() (*age.X25519Identity, error) {
	if strings.TrimSpace(s.KeyPath) == "" {
		return nil, errors.New("license key path is required")
	}
	data, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("parse license key: %w", err)
		}
		return identity, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read license key: %w", err)
	}
	return nil, fmt.Errorf("no identity found in %s", s.KeyPath)
}
