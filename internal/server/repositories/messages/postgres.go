package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fastchat/internal/dbx"
	"github.com/dmitrijs2005/fastchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, msg *models.Message) error {

	query :=
		`INSERT INTO messages (id, sender, recipient, body, sent_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	// Broadcasts have no recipient; store NULL rather than an empty string.
	recipient := sql.NullString{String: msg.Recipient, Valid: msg.Recipient != ""}

	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.Sender, recipient, msg.Body, msg.SentAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time) ([]models.Message, error) {
	query :=
		`SELECT id, sender, recipient, body, sent_at FROM messages
		 WHERE sent_at >= $1
		 ORDER BY sent_at
		 `

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var recipient sql.NullString
		if err := rows.Scan(&m.ID, &m.Sender, &recipient, &m.Body, &m.SentAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Recipient = recipient.String
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
