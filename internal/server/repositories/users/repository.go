// Package users implements the credential store: persistent
// username/password-hash pairs plus per-user public keys.
package users

import (
	"context"

	"github.com/dmitrijs2005/fastchat/internal/server/models"
)

// Repository is the persistence contract for user accounts.
//
// Create returns common.ErrDuplicateUsername when the username is taken.
// Lookup methods return common.ErrorNotFound for unknown usernames.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	UpdatePublicKey(ctx context.Context, userName string, publicKey []byte) error
	GetPublicKey(ctx context.Context, userName string) ([]byte, error)
}
