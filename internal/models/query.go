package models

import (
	"strings"
	"time"
)

// Query status
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// LedgerEntry is the durable admission/completion record for one query.
// At most one entry exists per distinct query string.
type LedgerEntry struct {
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	AdmittedAt  time.Time  `json:"admitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NormalizeQuery strips surrounding whitespace from a raw query line.
// The normalized string is the query's identity.
func NormalizeQuery(raw string) string {
	return strings.TrimSpace(raw)
}

// IsQueryLine reports whether a normalized query-file line carries a
// query. Blank lines and #-comments are ignored.
func IsQueryLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, "#")
}
