package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ytharvest/internal/models"
)

func openTestSQLite(t *testing.T) (*SQLiteLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestSQLiteLedgerAdmitOnce(t *testing.T) {
	l, _ := openTestSQLite(t)
	ctx := context.Background()

	admitted, err := l.Admit(ctx, "learn go")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !admitted {
		t.Fatal("first admission should succeed")
	}
	if admitted, _ := l.Admit(ctx, "learn go"); admitted {
		t.Fatal("second admission must not succeed")
	}
}

func TestSQLiteLedgerCompleteTransitions(t *testing.T) {
	l, _ := openTestSQLite(t)
	ctx := context.Background()

	l.Admit(ctx, "q1")
	if err := l.Complete(ctx, "q1", models.StatusFailed, "no results"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	entry, err := l.Status(ctx, "q1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if entry.Status != models.StatusFailed || entry.Reason != "no results" {
		t.Fatalf("entry = %+v", entry)
	}

	if err := l.Complete(ctx, "q1", models.StatusCompleted, ""); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("re-complete error = %v, want ErrInvariantViolation", err)
	}
	if err := l.Complete(ctx, "missing", models.StatusCompleted, ""); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("complete of unadmitted error = %v, want ErrInvariantViolation", err)
	}
}

func TestSQLiteLedgerSurvivesReopen(t *testing.T) {
	l, path := openTestSQLite(t)
	ctx := context.Background()

	l.Admit(ctx, "done")
	l.Complete(ctx, "done", models.StatusCompleted, "")
	l.Admit(ctx, "stuck")
	l.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if admitted, _ := reopened.Admit(ctx, "done"); admitted {
		t.Fatal("completed query must not be re-admitted after restart")
	}
	entry, _ := reopened.Status(ctx, "stuck")
	if entry == nil || entry.Status != models.StatusPending {
		t.Fatalf("entry = %+v, want pending", entry)
	}

	entries, err := reopened.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fileLedger, err := Open("file", filepath.Join(dir, "l.txt"))
	if err != nil {
		t.Fatalf("Open(file) failed: %v", err)
	}
	fileLedger.Close()
	if _, ok := fileLedger.(*FileLedger); !ok {
		t.Fatalf("Open(file) = %T", fileLedger)
	}

	dbLedger, err := Open("sqlite", filepath.Join(dir, "l.db"))
	if err != nil {
		t.Fatalf("Open(sqlite) failed: %v", err)
	}
	dbLedger.Close()
	if _, ok := dbLedger.(*SQLiteLedger); !ok {
		t.Fatalf("Open(sqlite) = %T", dbLedger)
	}

	if _, err := Open("redis", "addr"); err == nil {
		t.Fatal("unknown backend should fail")
	}
}
