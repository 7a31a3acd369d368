// Package keys manages long-term X25519 key pairs on disk. Each local
// identity gets its own subdirectory holding the raw private key (0600)
// and the base64 public key. While resident, private key bytes are kept
// sealed in a memguard enclave and only opened for the moment a caller
// needs them.
package keys

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/dmitrijs2005/fastchat/internal/common"
	"github.com/dmitrijs2005/fastchat/internal/e2e"
)

const (
	privateKeyFile = "private_key.bin"
	publicKeyFile  = "public_key.b64"
)

// Store locates key pairs under baseDir, one subdirectory per username.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Identity is a loaded local key pair. The private key stays sealed until
// OpenPrivateKey is called.
type Identity struct {
	username  string
	enclave   *memguard.Enclave
	publicB64 string
}

// Username returns the identity owner.
func (id *Identity) Username() string { return id.username }

// PublicKeyBase64 returns the public key in the wire encoding used by the
// storekey command.
func (id *Identity) PublicKeyBase64() string { return id.publicB64 }

// OpenPrivateKey unseals the private key into a locked buffer. The caller
// must Destroy the buffer as soon as the bytes have been consumed.
func (id *Identity) OpenPrivateKey() (*memguard.LockedBuffer, error) {
	buf, err := id.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("unsealing private key: %w", err)
	}
	return buf, nil
}

// Ensure loads the key pair for username, generating and persisting a new
// one on first use. Subsequent calls return the same key material.
func (s *Store) Ensure(username string) (*Identity, error) {
	if strings.ContainsAny(username, "/\\") || username == "" {
		return nil, fmt.Errorf("invalid username for key directory: %q", username)
	}

	dir := filepath.Join(s.baseDir, username)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	priv, err := os.ReadFile(privPath)
	switch {
	case err == nil:
		pubB64, err := os.ReadFile(pubPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", pubPath, err)
		}
		return s.seal(username, priv, strings.TrimSpace(string(pubB64)))

	case os.IsNotExist(err):
		return s.generate(username, privPath, pubPath)

	default:
		return nil, fmt.Errorf("reading %s: %w", privPath, err)
	}
}

func (s *Store) generate(username, privPath, pubPath string) (*Identity, error) {
	pub, priv, err := e2e.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(priv)

	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return nil, fmt.Errorf("writing private key: %w", err)
	}

	pubB64 := base64.StdEncoding.EncodeToString(pub)
	if err := os.WriteFile(pubPath, []byte(pubB64+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing public key: %w", err)
	}

	return s.seal(username, append([]byte(nil), priv...), pubB64)
}

// seal moves priv into an enclave; the slice is wiped by memguard.
func (s *Store) seal(username string, priv []byte, pubB64 string) (*Identity, error) {
	if len(priv) != e2e.KeySize {
		common.WipeByteArray(priv)
		return nil, fmt.Errorf("stored private key has %d bytes, want %d", len(priv), e2e.KeySize)
	}
	buf := memguard.NewBufferFromBytes(priv)
	return &Identity{
		username:  username,
		enclave:   buf.Seal(),
		publicB64: pubB64,
	}, nil
}
