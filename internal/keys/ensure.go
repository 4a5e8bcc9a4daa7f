package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/imamik/vpsgate/internal/state"
)

// Paths locates the two halves of a key pair on disk.
type Paths struct {
	Private string
	Public  string
}

// Ensured describes the outcome of an ensure call.
type Ensured struct {
	KeyPair
	Created bool
}

// EnsureKeyPair returns the key pair stored at paths, generating and
// persisting a new one only when no private key exists or regenerate is
// set. An existing private key is never rewritten; a missing or stale
// public key file is re-derived from it.
func EnsureKeyPair(ctx context.Context, gen Generator, paths Paths, regenerate bool) (*Ensured, error) {
	if !regenerate {
		existing, err := loadKeyPair(ctx, gen, paths)
		if err == nil {
			return &Ensured{KeyPair: *existing}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	pair, err := gen.GenerateKeyPair(ctx)
	if err != nil {
		return nil, err
	}

	if err := state.WriteFileAtomic(paths.Private, []byte(pair.PrivateKey+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to persist private key: %w", err)
	}
	if err := state.WriteFileAtomic(paths.Public, []byte(pair.PublicKey+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to persist public key: %w", err)
	}

	return &Ensured{KeyPair: *pair, Created: true}, nil
}

func loadKeyPair(ctx context.Context, gen Generator, paths Paths) (*KeyPair, error) {
	// #nosec G304 -- path is inside the install directory
	raw, err := os.ReadFile(paths.Private)
	if err != nil {
		return nil, err
	}
	privateKey := strings.TrimSpace(string(raw))
	if err := ValidateKey(privateKey); err != nil {
		return nil, fmt.Errorf("existing private key %s is corrupt (use explicit regeneration to replace it): %w", paths.Private, err)
	}

	publicKey, err := gen.DerivePublicKey(ctx, privateKey)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- path is inside the install directory
	storedPub, err := os.ReadFile(paths.Public)
	if err != nil || strings.TrimSpace(string(storedPub)) != publicKey {
		if err := state.WriteFileAtomic(paths.Public, []byte(publicKey+"\n"), 0644); err != nil {
			return nil, fmt.Errorf("failed to restore public key: %w", err)
		}
	}

	return &KeyPair{PrivateKey: privateKey, PublicKey: publicKey}, nil
}

// EnsureSecret returns the secret stored at path or generates a random
// one of n bytes (base64url, no padding) and stores it with mode 0600.
func EnsureSecret(path string, n int) (string, bool, error) {
	// #nosec G304 -- path is inside the install directory
	raw, err := os.ReadFile(path)
	if err == nil {
		if secret := strings.TrimSpace(string(raw)); secret != "" {
			return secret, false, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	secret, err := RandomSecret(n)
	if err != nil {
		return "", false, err
	}
	if err := state.WriteFileAtomic(path, []byte(secret+"\n"), 0600); err != nil {
		return "", false, fmt.Errorf("failed to persist secret: %w", err)
	}
	return secret, true, nil
}

// RandomSecret returns n random bytes encoded as unpadded base64url.
func RandomSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
