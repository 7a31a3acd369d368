// Package e2e implements the end-to-end encryption layer for private
// messages. Each Session owns one long-term X25519 private key and lazily
// derives an authenticated-encryption context per peer (NaCl box:
// X25519 + XSalsa20-Poly1305). Derived keys live only in process memory.
package e2e

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/dmitrijs2005/fastchat/internal/common"
)

const (
	// KeySize is the size of X25519 public and private keys.
	KeySize = 32

	// NonceSize is the size of the random nonce prepended to every
	// ciphertext. A fresh nonce is drawn per encryption and must never
	// repeat for a given derived key.
	NonceSize = 24
)

// KeyDirectory resolves a peer's long-term public key. The credential
// store implements it on the server side; the client uses a thin
// database-backed adapter. Implementations return common.ErrorNotFound
// when no key is stored for the username.
type KeyDirectory interface {
	GetPublicKey(ctx context.Context, username string) ([]byte, error)
}

// Session is the per-identity E2E context: one private key plus a cache of
// precomputed shared keys keyed by peer username. Safe for concurrent use.
type Session struct {
	priv *[KeySize]byte
	pub  *[KeySize]byte
	dir  KeyDirectory

	mu    sync.Mutex
	peers map[string]*[KeySize]byte
}

// GenerateKeyPair creates a new X25519 key pair for a local identity.
func GenerateKeyPair() (pub, priv []byte, err error) {
	pk, sk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("keypair generation failed: %w", err)
	}
	return pk[:], sk[:], nil
}

// NewSession wraps an existing private key. The key bytes are copied; the
// caller may wipe its buffer afterwards.
func NewSession(privateKey []byte, dir KeyDirectory) (*Session, error) {
	if len(privateKey) != KeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", KeySize, len(privateKey))
	}
	if dir == nil {
		return nil, errors.New("nil key directory")
	}

	s := &Session{
		priv:  new([KeySize]byte),
		pub:   new([KeySize]byte),
		dir:   dir,
		peers: make(map[string]*[KeySize]byte),
	}
	copy(s.priv[:], privateKey)

	// The private key already exists, so box.GenerateKey is not usable
	// here; scalar multiplication with the base point recovers the
	// matching public key.
	pub, err := curve25519.X25519(s.priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	copy(s.pub[:], pub)

	return s, nil
}

// PublicKey returns a copy of the session's public key.
func (s *Session) PublicKey() []byte {
	out := make([]byte, KeySize)
	copy(out, s.pub[:])
	return out
}

// establish resolves the peer's public key and precomputes the shared
// box key, caching it for the lifetime of the session. Absence of the
// peer key is a hard error, not a retry condition.
func (s *Session) establish(ctx context.Context, peer string) (*[KeySize]byte, error) {
	s.mu.Lock()
	if shared, ok := s.peers[peer]; ok {
		s.mu.Unlock()
		return shared, nil
	}
	s.mu.Unlock()

	pkBytes, err := s.dir.GetPublicKey(ctx, peer)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownPeerKey, peer)
		}
		return nil, fmt.Errorf("public key lookup for %s: %w", peer, err)
	}
	if len(pkBytes) != KeySize {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownPeerKey, peer)
	}

	peerPK := new([KeySize]byte)
	copy(peerPK[:], pkBytes)

	shared := new([KeySize]byte)
	box.Precompute(shared, peerPK, s.priv)

	s.mu.Lock()
	s.peers[peer] = shared
	s.mu.Unlock()

	return shared, nil
}

// Encrypt produces authenticated ciphertext for peer in the form
// [24-byte nonce || box ciphertext]. Output differs between calls even
// for identical plaintexts because the nonce is random per call.
func (s *Session) Encrypt(ctx context.Context, peer string, plaintext []byte) ([]byte, error) {
	shared, err := s.establish(ctx, peer)
	if err != nil {
		return nil, err
	}

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	// Seal appends to the nonce slice, so the wire format carries the
	// nonce in the clear followed by ciphertext+tag.
	return box.SealAfterPrecomputation(nonce[:], plaintext, &nonce, shared), nil
}

// Decrypt verifies and opens a ciphertext produced by Encrypt. Any tag
// mismatch (tampering, truncation, or a wrong peer key) yields
// common.ErrAuthenticationFailure. Callers must not retry.
func (s *Session) Decrypt(ctx context.Context, peer string, data []byte) ([]byte, error) {
	shared, err := s.establish(ctx, peer)
	if err != nil {
		return nil, err
	}

	if len(data) < NonceSize+box.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrAuthenticationFailure)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], data[:NonceSize])

	plaintext, ok := box.OpenAfterPrecomputation(nil, data[NonceSize:], &nonce, shared)
	if !ok {
		return nil, common.ErrAuthenticationFailure
	}
	if plaintext == nil {
		plaintext = []byte{}
	}

	return plaintext, nil
}
