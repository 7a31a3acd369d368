// Package repomanager wires concrete repository implementations to a
// database handle and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fastchat/internal/dbx"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to the given handle,
// which may be a *sql.DB or a transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
