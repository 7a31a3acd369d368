package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/fastchat/internal/common"
	"github.com/dmitrijs2005/fastchat/internal/dbx"
	"github.com/dmitrijs2005/fastchat/internal/server/models"
)

// uniqueViolation is the SQLSTATE pgx reports for unique constraint breaches.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, password_hash)
         VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.PasswordHash).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, public_key FROM users
		 WHERE username = $1
		 `

	user := &models.User{}
	var publicKey []byte
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&user.ID, &user.UserName, &user.PasswordHash, &publicKey)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.PublicKey = publicKey
	return user, nil
}

func (r *PostgresRepository) UpdatePublicKey(ctx context.Context, userName string, publicKey []byte) error {
	query :=
		`UPDATE users SET public_key = $2
		 WHERE username = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userName, publicKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) GetPublicKey(ctx context.Context, userName string) ([]byte, error) {
	query :=
		`SELECT public_key FROM users
		 WHERE username = $1
		 `

	var publicKey []byte
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&publicKey)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	// A registered user without an uploaded key is indistinguishable
	// from an unknown key for E2E purposes.
	if len(publicKey) == 0 {
		return nil, common.ErrorNotFound
	}

	return publicKey, nil
}
