package data

import (
	"context"
	"database/sql"

	"github.com/fleetglass/fleetglass/internal/migrate"
)

// RunMigrations applies the operator schema migrations by delegating to the
// migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
