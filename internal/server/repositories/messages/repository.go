// Package messages implements the durable message log.
package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fastchat/internal/server/models"
)

// Repository records delivered chat lines and serves them back for
// archival. Append is best-effort from the router's point of view: a
// failed write must never block delivery.
type Repository interface {
	Append(ctx context.Context, msg *models.Message) error
	ListSince(ctx context.Context, since time.Time) ([]models.Message, error)
}
