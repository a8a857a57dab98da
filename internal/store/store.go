// Package store records parsed grammars and their rule dependencies in a
// SQLite database, so dependency listings can be queried with SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/l-donovan/abnf/ast"
	"github.com/l-donovan/abnf/deps"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS imports (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL,
	digest     TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rules (
	import_id  INTEGER NOT NULL REFERENCES imports(id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	definition TEXT NOT NULL,
	text       TEXT NOT NULL,
	PRIMARY KEY (import_id, position)
);
CREATE TABLE IF NOT EXISTS dependencies (
	import_id  INTEGER NOT NULL REFERENCES imports(id),
	rule       INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	dependency TEXT NOT NULL,
	PRIMARY KEY (import_id, rule, position)
);
`

// Store is a SQLite database of imported grammars.
type Store struct {
	db *sql.DB
}

// Import is one grammar to record.
type Import struct {
	Path   string
	Digest string
	RunID  string
	Rules  []ast.Rule
}

// Open opens or creates the database at path and makes sure the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records imp in a single transaction and returns the new import id.
// Rule positions are zero based and follow the order of imp.Rules, so the
// same rule name may appear more than once (incremental alternatives).
func (s *Store) Save(ctx context.Context, imp Import) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (path, digest, run_id, created_at) VALUES (?, ?, ?, ?)`,
		imp.Path, imp.Digest, imp.RunID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert import: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read import id: %w", err)
	}

	for i, rule := range imp.Rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (import_id, position, name, definition, text) VALUES (?, ?, ?, ?, ?)`,
			id, i, rule.Name, rule.Definition.String(), rule.String()); err != nil {
			return 0, fmt.Errorf("failed to insert rule %s: %w", rule.Name, err)
		}

		for j, dep := range deps.OfRule(rule) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dependencies (import_id, rule, position, dependency) VALUES (?, ?, ?, ?)`,
				id, i, j, dep); err != nil {
				return 0, fmt.Errorf("failed to insert dependency %s of %s: %w", dep, rule.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return id, nil
}

// Dependencies returns the recorded dependencies of every rule named name in
// an import, in rule order and then extraction order. Names are returned as
// they appear in the grammar.
func (s *Store) Dependencies(ctx context.Context, importID int64, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.dependency
		FROM dependencies d
		JOIN rules r ON r.import_id = d.import_id AND r.position = d.rule
		WHERE d.import_id = ? AND r.name = ?
		ORDER BY d.rule, d.position`, importID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies of %s: %w", name, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, err
		}
		names = append(names, dep)
	}

	return names, rows.Err()
}

// RuleCount returns the number of rules recorded for an import.
func (s *Store) RuleCount(ctx context.Context, importID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE import_id = ?`, importID).Scan(&n)
	return n, err
}
