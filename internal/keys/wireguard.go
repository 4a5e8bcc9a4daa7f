package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"

	"github.com/imamik/vpsgate/internal/util/command"
)

// KeyLen is the length of a WireGuard key in bytes.
const KeyLen = curve25519.ScalarSize

// KeyPair holds a WireGuard key pair in the base64 form wg(8) uses.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// Generator creates WireGuard key pairs.
type Generator interface {
	GenerateKeyPair(ctx context.Context) (*KeyPair, error)
	DerivePublicKey(ctx context.Context, privateKey string) (string, error)
}

// NativeGenerator generates keys in-process with curve25519.
type NativeGenerator struct{}

// GenerateKeyPair implements Generator.
func (NativeGenerator) GenerateKeyPair(ctx context.Context) (*KeyPair, error) {
	var priv [KeyLen]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	clamp(&priv)

	privateKey := base64.StdEncoding.EncodeToString(priv[:])
	publicKey, err := NativeGenerator{}.DerivePublicKey(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivateKey: privateKey, PublicKey: publicKey}, nil
}

// DerivePublicKey implements Generator.
func (NativeGenerator) DerivePublicKey(_ context.Context, privateKey string) (string, error) {
	priv, err := decodeKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("failed to derive public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// clamp applies the curve25519 scalar clamping wg genkey performs.
func clamp(k *[KeyLen]byte) {
	k[0] &= 248
	k[31] = (k[31] & 127) | 64
}

// CommandGenerator generates keys with the wg binary.
type CommandGenerator struct {
	Runner command.Runner
}

// GenerateKeyPair runs "wg genkey" and derives the public half.
func (g CommandGenerator) GenerateKeyPair(ctx context.Context) (*KeyPair, error) {
	res, err := g.Runner.Run(ctx, command.Command{Name: "wg", Args: []string{"genkey"}})
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	privateKey := strings.TrimSpace(res.Stdout)
	if err := ValidateKey(privateKey); err != nil {
		return nil, fmt.Errorf("wg genkey returned an invalid key: %w", err)
	}

	publicKey, err := g.DerivePublicKey(ctx, privateKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PrivateKey: privateKey, PublicKey: publicKey}, nil
}

// DerivePublicKey runs "wg pubkey" with the private key on stdin.
func (g CommandGenerator) DerivePublicKey(ctx context.Context, privateKey string) (string, error) {
	res, err := g.Runner.Run(ctx, command.Command{
		Name:  "wg",
		Args:  []string{"pubkey"},
		Stdin: strings.NewReader(privateKey + "\n"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive public key: %w", err)
	}
	publicKey := strings.TrimSpace(res.Stdout)
	if err := ValidateKey(publicKey); err != nil {
		return "", fmt.Errorf("wg pubkey returned an invalid key: %w", err)
	}
	return publicKey, nil
}

// ValidateKey checks that s is a base64 encoded 32-byte key.
func ValidateKey(s string) error {
	_, err := decodeKey(s)
	return err
}

func decodeKey(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not base64: %w", err)
	}
	if len(b) != KeyLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", KeyLen, len(b))
	}
	return b, nil
}
