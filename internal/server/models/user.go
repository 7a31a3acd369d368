// Package models holds the server-side persistence models.
package models

import "time"

// User is a registered account. PasswordHash is the opaque encoded
// argon2id hash produced by the auth service; plaintext passwords and
// the server pepper are never stored. PublicKey is empty until the
// client uploads one with storekey and is replaced on key rotation.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	PublicKey    []byte
	CreatedAt    time.Time
}
