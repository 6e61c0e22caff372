// Package store persists search result datasets as CSV files, one file
// per (query, timestamp). Files are append-only at the store level: a
// new dataset for a query never overwrites a prior one.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"ytharvest/internal/models"
)

var csvHeader = []string{"title", "link", "duration"}

// Dataset is the handle for one written result set.
type Dataset struct {
	Query     string
	Timestamp time.Time
	Path      string
	Results   []models.SearchResult
}

// Store writes and reads datasets under a single results directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Write persists results as a new dataset for query. Duplicate links
// within the batch are dropped, first occurrence wins. The file is named
// <sanitized-query>_<YYYYMMDD_HHMMSS>.csv; if that name is already taken
// a numeric suffix is added instead of overwriting.
func (s *Store) Write(query string, results []models.SearchResult) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}

	deduped := dedupeByLink(results)
	ts := time.Now()

	base := SanitizeName(query) + "_" + ts.Format("20060102_150405")
	path, f, err := s.createExclusive(base)
	if err != nil {
		return nil, err
	}

	if err := writeCSV(f, deduped); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write dataset %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close dataset %s: %w", path, err)
	}

	return &Dataset{Query: query, Timestamp: ts, Path: path, Results: deduped}, nil
}

func (s *Store) createExclusive(base string) (string, *os.File, error) {
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i+1)
		}
		path := filepath.Join(s.dir, name+".csv")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, fmt.Errorf("create dataset %s: %w", path, err)
		}
	}
}

// Read returns the most recent dataset written for query, or nil if none
// exists.
func (s *Store) Read(query string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := SanitizeName(query) + "_"
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d{8}_\d{6})(_\d+)?\.csv$`)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results directory: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if !e.IsDir() && pattern.MatchString(e.Name()) {
			matches = append(matches, e.Name())
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// Timestamps are fixed width, so lexical order is chronological.
	sort.Strings(matches)
	name := matches[len(matches)-1]

	stamp := pattern.FindStringSubmatch(name)[1]
	ts, err := time.ParseInLocation("20060102_150405", stamp, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse dataset timestamp %q: %w", stamp, err)
	}

	path := filepath.Join(s.dir, name)
	results, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	return &Dataset{Query: query, Timestamp: ts, Path: path, Results: results}, nil
}

// ReadCSV loads search results from a dataset file. Extra columns are
// ignored; only title, link and duration are read.
func ReadCSV(path string) ([]models.SearchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range csvHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("dataset %s: missing column %q", path, name)
		}
	}

	results := make([]models.SearchResult, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(name string) string {
			i := col[name]
			if i < len(row) {
				return row[i]
			}
			return ""
		}
		results = append(results, models.SearchResult{
			Title:    get("title"),
			Link:     get("link"),
			Duration: get("duration"),
		})
	}
	return results, nil
}

// WriteCSV rewrites a dataset file in place with the given results. Used
// by the duration repair pass, which corrects records inside an existing
// dataset rather than producing a new one.
func WriteCSV(path string, results []models.SearchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", path, err)
	}
	if err := writeCSV(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(f *os.File, results []models.SearchResult) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{r.Title, r.Link, r.Duration}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func dedupeByLink(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		out = append(out, r)
	}
	return out
}

// SanitizeName maps a query to a filesystem-safe name: letters and
// digits pass through, everything else becomes an underscore.
func SanitizeName(query string) string {
	var b strings.Builder
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
