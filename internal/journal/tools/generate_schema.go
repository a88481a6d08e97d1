// Command generate_schema rebuilds internal/journal/schema.sql from the
// embedded migrations.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shuttle-go/internal/journal"
	"shuttle-go/internal/journal/migrations"
)

const header = `-- Generated from the journal migrations. Do not edit by hand;
-- run 'go generate ./internal/journal' after changing a migration.

`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "generate_schema:", err)
		os.Exit(1)
	}
}

func run() error {
	db, err := journal.OpenConnection(":memory:")
	if err != nil {
		return fmt.Errorf("opening scratch journal: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("migrating scratch journal: %w", err)
	}

	stmts, err := schemaStatements(db)
	if err != nil {
		return err
	}

	out := filepath.Join("internal", "journal", "schema.sql")
	content := header + strings.Join(stmts, "\n\n") + "\n"
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

// schemaStatements lists the journal's CREATE statements, tables before
// indexes, skipping SQLite internals and golang-migrate bookkeeping.
func schemaStatements(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT sql || ';' FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 WHEN 'index' THEN 2 END, name`)
	if err != nil {
		return nil, fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}
		stmts = append(stmts, stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}
	return stmts, nil
}
