// Package auth implements credential handling: peppered argon2id password
// hashing, verification, and public-key upload. It has no knowledge of
// sockets or sessions; callers hand it usernames and passwords and get
// sentinel errors back.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/fastchat/internal/common"
	"github.com/dmitrijs2005/fastchat/internal/e2e"
	"github.com/dmitrijs2005/fastchat/internal/server/models"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/users"
)

// Params are the argon2id cost parameters baked into newly produced
// hashes. Stored hashes carry their own parameters, so these can be
// raised without breaking existing accounts; NeedsRehash reports stale
// hashes.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams matches the cost profile used for master-key derivation
// elsewhere in the project.
func DefaultParams() Params {
	return Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

const maxUsernameLen = 32

type Service struct {
	repo   users.Repository
	pepper []byte
	params Params
}

// NewService builds an auth service. The pepper is a server-wide secret
// supplied by configuration; it is mixed into every hash and never stored.
func NewService(repo users.Repository, pepper []byte, params Params) *Service {
	return &Service{repo: repo, pepper: pepper, params: params}
}

// Register creates a new account. Returns common.ErrDuplicateUsername if
// the name is taken and common.ErrProtocol for unusable names/passwords.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", common.ErrProtocol)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = s.repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			return common.ErrDuplicateUsername
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

// Authenticate verifies username/password. Unknown-user and wrong-password
// both come back as common.ErrorUnauthorized, and the unknown-user path
// still burns one argon2id derivation so response timing does not reveal
// whether the account exists.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnHash(password)
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := s.verify(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	return nil
}

// StoreKey records the user's long-term E2E public key, replacing any
// previous one (device key rotation).
func (s *Service) StoreKey(ctx context.Context, username string, publicKeyB64 string) error {
	pk, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return fmt.Errorf("%w: public key is not valid base64", common.ErrProtocol)
	}
	if len(pk) != e2e.KeySize {
		return fmt.Errorf("%w: public key must be %d bytes", common.ErrProtocol, e2e.KeySize)
	}

	if err := s.repo.UpdatePublicKey(ctx, username, pk); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error storing public key: %w", err)
	}

	return nil
}

// NeedsRehash reports whether a stored hash was produced with parameters
// weaker than the service's current ones. Operational hook only; a stale
// hash still verifies.
func (s *Service) NeedsRehash(stored string) bool {
	p, _, _, err := decodeHash(stored)
	if err != nil {
		return true
	}
	return p.Time != s.params.Time || p.Memory != s.params.Memory || p.Threads != s.params.Threads || p.KeyLen != s.params.KeyLen
}

func validateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be 1-%d characters", common.ErrProtocol, maxUsernameLen)
	}
	if strings.ContainsAny(username, " \t@/") {
		return fmt.Errorf("%w: username must not contain spaces, '@' or '/'", common.ErrProtocol)
	}
	return nil
}

// hashPassword derives an argon2id key from password+pepper with a fresh
// random salt and encodes everything except the pepper into a PHC-style
// string.
func (s *Service) hashPassword(password string) (string, error) {
	salt := common.GenerateRandByteArray(s.params.SaltLen)
	key := s.deriveKey(password, salt, s.params)
	return encodeHash(s.params, salt, key), nil
}

func (s *Service) deriveKey(password string, salt []byte, p Params) []byte {
	peppered := append([]byte(password), s.pepper...)
	defer common.WipeByteArray(peppered)
	return argon2.IDKey(peppered, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

func (s *Service) verify(password, stored string) (bool, error) {
	p, salt, key, err := decodeHash(stored)
	if err != nil {
		return false, err
	}
	candidate := s.deriveKey(password, salt, p)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// burnHash performs a throwaway derivation over a random salt so the
// unknown-user path costs the same as a real verification.
func (s *Service) burnHash(password string) {
	salt := common.GenerateRandByteArray(s.params.SaltLen)
	_ = s.deriveKey(password, salt, s.params)
}

func encodeHash(p Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeHash(stored string) (Params, []byte, []byte, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, errors.New("malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, errors.New("malformed password hash")
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, errors.New("malformed password hash")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, errors.New("malformed password hash")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, errors.New("malformed password hash")
	}

	p.KeyLen = uint32(len(key))
	p.SaltLen = len(salt)
	return p, salt, key, nil
}
