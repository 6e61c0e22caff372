package ledger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"ytharvest/internal/models"
)

// FileLedger is the flat-file ledger backend: an append-only
// newline-delimited record log. Each record is
//
//	<status>\t<RFC3339 time>\t<query>
//
// where later records supersede earlier ones for the same query. A bare
// line without tabs is read as a completed query, which keeps old
// processed-queries files working unchanged.
type FileLedger struct {
	mu      sync.Mutex
	file    *os.File
	entries map[string]*models.LedgerEntry
}

// OpenFile opens (creating if absent) a file ledger and replays its
// records. Replay errors are ErrInvariantViolation and should abort
// startup.
func OpenFile(path string) (*FileLedger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	l := &FileLedger{
		file:    f,
		entries: make(map[string]*models.LedgerEntry),
	}

	if err := l.replay(); err != nil {
		f.Close()
		return nil, err
	}

	// All further writes append.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek ledger %s: %w", path, err)
	}

	return l, nil
}

func (l *FileLedger) replay() error {
	scanner := bufio.NewScanner(l.file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !strings.Contains(line, "\t") {
			// Legacy record: a bare completed query string.
			q := models.NormalizeQuery(line)
			now := time.Now()
			l.entries[q] = &models.LedgerEntry{
				Query:       q,
				Status:      models.StatusCompleted,
				AdmittedAt:  now,
				CompletedAt: &now,
			}
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return fmt.Errorf("%w: line %d: malformed record", ErrInvariantViolation, lineNo)
		}
		status, tsText, query := parts[0], parts[1], parts[2]

		ts, err := time.Parse(time.RFC3339, tsText)
		if err != nil {
			return fmt.Errorf("%w: line %d: bad timestamp %q", ErrInvariantViolation, lineNo, tsText)
		}

		entry := l.entries[query]
		switch status {
		case models.StatusPending:
			if entry != nil {
				return fmt.Errorf("%w: line %d: duplicate admission of %q", ErrInvariantViolation, lineNo, query)
			}
			l.entries[query] = &models.LedgerEntry{
				Query:      query,
				Status:     models.StatusPending,
				AdmittedAt: ts,
			}
		case models.StatusCompleted, models.StatusFailed:
			if entry == nil {
				return fmt.Errorf("%w: line %d: completion of unadmitted query %q", ErrInvariantViolation, lineNo, query)
			}
			if entry.Status != models.StatusPending {
				return fmt.Errorf("%w: line %d: completion of non-pending query %q", ErrInvariantViolation, lineNo, query)
			}
			entry.Status = status
			completed := ts
			entry.CompletedAt = &completed
		default:
			return fmt.Errorf("%w: line %d: unknown status %q", ErrInvariantViolation, lineNo, status)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) appendRecord(status, query string, ts time.Time) error {
	line := status + "\t" + ts.Format(time.RFC3339) + "\t" + query + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("append ledger record: %w", err)
	}
	// The admission must survive a crash before any work starts.
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) Admit(_ context.Context, query string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[query]; exists {
		return false, nil
	}

	now := time.Now()
	if err := l.appendRecord(models.StatusPending, query, now); err != nil {
		return false, err
	}
	l.entries[query] = &models.LedgerEntry{
		Query:      query,
		Status:     models.StatusPending,
		AdmittedAt: now,
	}
	return true, nil
}

func (l *FileLedger) Complete(_ context.Context, query, status, reason string) error {
	if err := checkOutcome(status); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[query]
	if !ok {
		return fmt.Errorf("%w: complete of unadmitted query %q", ErrInvariantViolation, query)
	}
	if entry.Status != models.StatusPending {
		return fmt.Errorf("%w: complete of %s query %q", ErrInvariantViolation, entry.Status, query)
	}

	now := time.Now()
	if err := l.appendRecord(status, query, now); err != nil {
		return err
	}
	entry.Status = status
	entry.Reason = reason
	entry.CompletedAt = &now
	return nil
}

func (l *FileLedger) Status(_ context.Context, query string) (*models.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[query]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (l *FileLedger) Entries(_ context.Context) ([]models.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out, nil
}

func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
