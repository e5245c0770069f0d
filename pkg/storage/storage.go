// Package storage persists the trained model artifact. Artifacts are written
// atomically and, when enabled, encrypted at rest using NaCl secretbox, since
// LBPH histograms are biometric templates.
//
// Vision backends read and write models through file paths, so the store
// hands them a plaintext temporary file and seals or unseals around it.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// ArtifactStore writes and reads model files. The zero value writes plain
// artifacts.
type ArtifactStore struct {
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewArtifactStore creates a store. With encryption the key is derived from
// machine identity, so encrypted artifacts only open on the host that wrote them.
func NewArtifactStore(encryptionEnabled bool) (*ArtifactStore, error) {
	s := &ArtifactStore{encryptionEnabled: encryptionEnabled}
	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		s.encryptionKey = key
	}
	return s, nil
}

// NewArtifactStoreWithKey creates an encrypting store with an explicit key.
func NewArtifactStoreWithKey(key [KeySize]byte) *ArtifactStore {
	return &ArtifactStore{encryptionEnabled: true, encryptionKey: key}
}

// Encrypted reports whether artifacts are sealed at rest.
func (s *ArtifactStore) Encrypted() bool {
	return s.encryptionEnabled
}

// deriveKey derives an encryption key from machine-specific information.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	var identity strings.Builder
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("faceattend-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])
	return key, nil
}

// tempPath creates an empty file next to path that keeps its extension.
// OpenCV picks the serialization format from the extension.
func tempPath(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}

// Write lets write produce the artifact at a temporary path, seals it if
// enabled and renames it over path. On any error path is left untouched.
func (s *ArtifactStore) Write(path string, write func(tmp string) error) error {
	tmp, err := tempPath(path)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := write(tmp); err != nil {
		return err
	}

	if s.encryptionEnabled {
		data, err := os.ReadFile(tmp)
		if err != nil {
			return fmt.Errorf("failed to read artifact: %w", err)
		}
		sealed, err := s.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt artifact: %w", err)
		}
		if err := os.WriteFile(tmp, sealed, 0600); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}

	if err := os.Chmod(tmp, 0600); err != nil {
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	logging.Debugf("Wrote artifact %s (encrypted=%v)", path, s.encryptionEnabled)
	return nil
}

// Read hands read a plaintext path for the artifact at path.
func (s *ArtifactStore) Read(path string, read func(plain string) error) error {
	if !s.encryptionEnabled {
		return read(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	plain, err := s.decrypt(data)
	if err != nil {
		return fmt.Errorf("failed to decrypt artifact: %w", err)
	}

	tmp, err := tempPath(path)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.WriteFile(tmp, plain, 0600); err != nil {
		return fmt.Errorf("failed to stage artifact: %w", err)
	}
	return read(tmp)
}

// encrypt encrypts data using NaCl secretbox.
func (s *ArtifactStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.encryptionKey), nil
}

// decrypt decrypts data using NaCl secretbox.
func (s *ArtifactStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &s.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}
	return plaintext, nil
}
