// Package ledger tracks which queries have been admitted and completed.
// It is the exactly-once gate of the pipeline: a query string is admitted
// at most once over the lifetime of the ledger, and every admission is
// durably recorded before any work happens for it.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"ytharvest/internal/models"
)

// ErrInvariantViolation signals corrupted or inconsistent ledger state:
// an illegal status transition, an unparseable record, or a completion
// for a query that was never admitted. It is fatal to the process.
var ErrInvariantViolation = errors.New("ledger invariant violation")

// Ledger is the admission/completion tracker keyed by normalized query
// string. Implementations must be safe for concurrent use.
type Ledger interface {
	// Admit atomically records the query as pending if and only if no
	// entry exists for it, and reports whether admission happened. The
	// record is durable before Admit returns.
	Admit(ctx context.Context, query string) (bool, error)

	// Complete transitions a pending entry to completed or failed.
	// Calling it on an absent or non-pending entry is an
	// ErrInvariantViolation.
	Complete(ctx context.Context, query, status, reason string) error

	// Status returns the entry for a query, or nil if absent.
	Status(ctx context.Context, query string) (*models.LedgerEntry, error)

	// Entries returns a snapshot of all entries.
	Entries(ctx context.Context) ([]models.LedgerEntry, error)

	Close() error
}

// Open selects a backend by name ("file" or "sqlite") and opens it.
func Open(backend, path string) (Ledger, error) {
	switch backend {
	case "sqlite":
		return OpenSQLite(path)
	case "file":
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}

func checkOutcome(status string) error {
	switch status {
	case models.StatusCompleted, models.StatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid completion status %q", status)
	}
}
