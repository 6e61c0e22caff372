package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ytharvest/internal/models"
)

func openTestLedger(t *testing.T) (*FileLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.txt")
	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestFileLedgerAdmitOnce(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	admitted, err := l.Admit(ctx, "learn go")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !admitted {
		t.Fatal("first admission should succeed")
	}

	admitted, err = l.Admit(ctx, "learn go")
	if err != nil {
		t.Fatalf("second Admit failed: %v", err)
	}
	if admitted {
		t.Fatal("second admission of the same query must not succeed")
	}

	entry, err := l.Status(ctx, "learn go")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if entry == nil || entry.Status != models.StatusPending {
		t.Fatalf("entry = %+v, want pending", entry)
	}
}

func TestFileLedgerComplete(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.Admit(ctx, "q1"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if err := l.Complete(ctx, "q1", models.StatusCompleted, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	entry, _ := l.Status(ctx, "q1")
	if entry.Status != models.StatusCompleted {
		t.Fatalf("status = %q, want completed", entry.Status)
	}
	if entry.CompletedAt == nil {
		t.Fatal("CompletedAt should be set")
	}

	// Completing twice violates the ledger invariant.
	err := l.Complete(ctx, "q1", models.StatusFailed, "again")
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("second Complete error = %v, want ErrInvariantViolation", err)
	}
}

func TestFileLedgerCompleteUnadmitted(t *testing.T) {
	l, _ := openTestLedger(t)

	err := l.Complete(context.Background(), "never admitted", models.StatusCompleted, "")
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("error = %v, want ErrInvariantViolation", err)
	}
}

func TestFileLedgerFailedKeepsReason(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	l.Admit(ctx, "q1")
	if err := l.Complete(ctx, "q1", models.StatusFailed, "search failed"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	entry, _ := l.Status(ctx, "q1")
	if entry.Status != models.StatusFailed || entry.Reason != "search failed" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestFileLedgerSurvivesReopen(t *testing.T) {
	l, path := openTestLedger(t)
	ctx := context.Background()

	l.Admit(ctx, "done")
	l.Complete(ctx, "done", models.StatusCompleted, "")
	l.Admit(ctx, "stuck")
	l.Close()

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	admitted, err := reopened.Admit(ctx, "done")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if admitted {
		t.Fatal("completed query must not be re-admitted after restart")
	}

	// A crash between admission and completion leaves the query visibly
	// pending; it is never silently re-admitted.
	entry, _ := reopened.Status(ctx, "stuck")
	if entry == nil || entry.Status != models.StatusPending {
		t.Fatalf("entry = %+v, want pending", entry)
	}
	if admitted, _ := reopened.Admit(ctx, "stuck"); admitted {
		t.Fatal("pending query must not be re-admitted")
	}
}

func TestFileLedgerReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_queries.txt")
	if err := os.WriteFile(path, []byte("old query one\nold query two\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	if admitted, _ := l.Admit(ctx, "old query one"); admitted {
		t.Fatal("legacy processed query must not be re-admitted")
	}
	entry, _ := l.Status(ctx, "old query two")
	if entry == nil || entry.Status != models.StatusCompleted {
		t.Fatalf("entry = %+v, want completed", entry)
	}
}

func TestFileLedgerRejectsCorruption(t *testing.T) {
	cases := map[string]string{
		"completion without admission": "completed\t2026-01-02T15:04:05Z\tghost query\n",
		"unknown status":               "exploded\t2026-01-02T15:04:05Z\tsome query\n",
		"bad timestamp":                "pending\tyesterday\tsome query\n",
		"duplicate admission":          "pending\t2026-01-02T15:04:05Z\tq\npending\t2026-01-02T15:05:05Z\tq\n",
	}

	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "ledger.txt")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		_, err := OpenFile(path)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("%s: error = %v, want ErrInvariantViolation", name, err)
		}
	}
}

func TestFileLedgerEntries(t *testing.T) {
	l, _ := openTestLedger(t)
	ctx := context.Background()

	l.Admit(ctx, "b")
	l.Admit(ctx, "a")

	entries, err := l.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Query != "a" || entries[1].Query != "b" {
		t.Fatalf("entries = %+v", entries)
	}
}
