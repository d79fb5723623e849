package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// Open opens a pool for driver and pings it, so a bad DSN fails at startup
// rather than on the first query.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}
