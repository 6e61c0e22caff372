package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ytharvest/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteLedger is the sqlite ledger backend. Admission durability comes
// from the database itself; the insert is committed before Admit returns.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite connects to (creating if needed) the ledger database and
// initializes the schema.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Admit(ctx context.Context, query string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO queries (query, status, admitted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(query) DO NOTHING;
	`, query, models.StatusPending, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("admit %q: %w", query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("admit %q: %w", query, err)
	}
	return n > 0, nil
}

func (l *SQLiteLedger) Complete(ctx context.Context, query, status, reason string) error {
	if err := checkOutcome(status); err != nil {
		return err
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE queries
		SET status = ?, reason = ?, completed_at = ?
		WHERE query = ? AND status = ?;
	`, status, reason, time.Now().UTC().Format(time.RFC3339), query, models.StatusPending)
	if err != nil {
		return fmt.Errorf("complete %q: %w", query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete %q: %w", query, err)
	}
	if n == 0 {
		entry, err := l.Status(ctx, query)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%w: complete of unadmitted query %q", ErrInvariantViolation, query)
		}
		return fmt.Errorf("%w: complete of %s query %q", ErrInvariantViolation, entry.Status, query)
	}
	return nil
}

func (l *SQLiteLedger) Status(ctx context.Context, query string) (*models.LedgerEntry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT query, status, reason, admitted_at, completed_at
		FROM queries WHERE query = ?;
	`, query)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("status %q: %w", query, err)
	}
	return entry, nil
}

func (l *SQLiteLedger) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT query, status, reason, admitted_at, completed_at
		FROM queries ORDER BY query;
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var admitted string
	var completed sql.NullString

	if err := s.Scan(&entry.Query, &entry.Status, &entry.Reason, &admitted, &completed); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, admitted)
	if err != nil {
		return nil, fmt.Errorf("%w: bad admitted_at %q", ErrInvariantViolation, admitted)
	}
	entry.AdmittedAt = ts

	if completed.Valid && completed.String != "" {
		ts, err := time.Parse(time.RFC3339, completed.String)
		if err != nil {
			return nil, fmt.Errorf("%w: bad completed_at %q", ErrInvariantViolation, completed.String)
		}
		entry.CompletedAt = &ts
	}
	return &entry, nil
}
