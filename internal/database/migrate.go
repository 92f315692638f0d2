package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates every table the application needs when missing. The
// statements are idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if driver == "" {
		driver = DriverMySQL
	}
	raw, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	stmts := splitStatements(string(raw))
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	slog.Default().With("component", "database").Info("schema applied", "driver", driver, "statements", len(stmts))
	return nil
}

// splitStatements cuts a schema file on semicolons. The schema files
// contain no semicolons inside literals.
func splitStatements(src string) []string {
	parts := strings.Split(src, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
