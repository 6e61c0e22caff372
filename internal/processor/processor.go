// Package processor runs the automation loop: on a fixed interval it
// diffs the live query list against the ledger, admits new queries, and
// drives each one through search, filtering, the result store and the
// optional downloads. One bad query or one failed download never stops
// the pipeline; only ledger-consistency failures escape.
package processor

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ytharvest/internal/config"
	"ytharvest/internal/filter"
	"ytharvest/internal/ledger"
	"ytharvest/internal/models"
	"ytharvest/internal/store"
)

// SearchProvider returns result records for a keyword. May fail or
// return partial results.
type SearchProvider interface {
	Search(ctx context.Context, keyword string, maxResults int) ([]models.SearchResult, error)
}

// Downloader retrieves the media for one job.
type Downloader interface {
	Download(ctx context.Context, job models.DownloadJob) (models.DownloadResult, error)
}

// ResultStore persists one dataset per processed query.
type ResultStore interface {
	Write(query string, results []models.SearchResult) (*store.Dataset, error)
}

// Stats is a snapshot of loop counters for the status server.
type Stats struct {
	CyclesRun          int64      `json:"cycles_run"`
	QueriesCompleted   int64      `json:"queries_completed"`
	QueriesFailed      int64      `json:"queries_failed"`
	ResultsStored      int64      `json:"results_stored"`
	DownloadsSucceeded int64      `json:"downloads_succeeded"`
	DownloadsFailed    int64      `json:"downloads_failed"`
	LastCycleAt        *time.Time `json:"last_cycle_at,omitempty"`
	LastCycleDuration  string     `json:"last_cycle_duration,omitempty"`
	NextCheckAt        *time.Time `json:"next_check_at,omitempty"`
}

// Processor is the automation loop. A single Processor runs a single
// cycle at a time; cycles never overlap.
type Processor struct {
	cfg        config.Config
	ledger     ledger.Ledger
	store      ResultStore
	search     SearchProvider
	downloader Downloader
	window     filter.Window
	log        zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	stats Stats
}

// New creates a processor. downloader may be nil when AUTO_DOWNLOAD is
// off.
func New(cfg config.Config, led ledger.Ledger, st ResultStore, sp SearchProvider, dl Downloader, log zerolog.Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		ledger:     led,
		store:      st,
		search:     sp,
		downloader: dl,
		window:     filter.Window{Min: cfg.MinDuration, Max: cfg.MaxDuration},
		log:        log,
		stop:       make(chan struct{}),
	}
}

// Stop asks the loop to finish the current query's pipeline and return.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Stats returns a snapshot of the loop counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run executes the loop until ctx is cancelled or Stop is called. The
// first cycle runs immediately; later ones on the configured interval.
// Only fatal errors (ledger invariant violations) are returned.
func (p *Processor) Run(ctx context.Context) error {
	if p.window.Active() && p.window.Min > 0 && p.window.Max > 0 && p.window.Min > p.window.Max {
		// Misconfigured window admits nothing. Operator error, not a crash.
		p.log.Warn().
			Dur("min", p.window.Min).
			Dur("max", p.window.Max).
			Msg("min duration exceeds max duration, filter will admit no results")
	}

	p.log.Info().
		Str("query_file", p.cfg.QueryFile).
		Dur("interval", p.cfg.CheckInterval).
		Msg("automation loop started")

	if err := p.runCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(p.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("automation loop stopped")
			return nil
		case <-p.stop:
			p.log.Info().Msg("automation loop stopped")
			return nil
		case <-ticker.C:
			if err := p.runCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// RunCycle executes exactly one cycle. Exposed for one-shot use and
// tests; Run calls it on the interval.
func (p *Processor) RunCycle(ctx context.Context) error {
	return p.runCycle(ctx)
}

func (p *Processor) runCycle(ctx context.Context) error {
	start := time.Now()

	queries, err := readQueryFile(p.cfg.QueryFile)
	if err != nil {
		// Transient: leave ledger state untouched and retry next period.
		p.log.Warn().Err(err).Msg("query file unreadable, skipping cycle")
		p.finishCycle(start)
		return nil
	}

	newCount := 0
	for _, query := range queries {
		if p.stopping(ctx) {
			p.log.Info().Msg("stop requested, draining cycle")
			break
		}

		admitted, err := p.ledger.Admit(ctx, query)
		if err != nil {
			return err
		}
		if !admitted {
			continue
		}
		newCount++

		if err := p.processQuery(ctx, query); err != nil {
			return err
		}
	}

	if newCount == 0 {
		p.log.Info().Msg("no new queries to process")
	}

	elapsed := p.finishCycle(start)
	if elapsed > p.cfg.CheckInterval {
		p.log.Warn().
			Dur("elapsed", elapsed).
			Dur("interval", p.cfg.CheckInterval).
			Msg("cycle overran the check interval")
	}
	return nil
}

// processQuery drives one admitted query through the pipeline. The
// returned error is fatal only; per-query failures are recorded in the
// ledger and swallowed.
func (p *Processor) processQuery(ctx context.Context, query string) error {
	p.log.Info().Str("query", query).Msg("processing query")

	results, err := p.search.Search(ctx, query, p.cfg.MaxResults)
	if err != nil {
		p.log.Error().Err(err).Str("query", query).Msg("search failed")
		return p.fail(ctx, query, "search failed: "+err.Error())
	}

	filtered := p.applyFilter(query, results)

	dataset, err := p.store.Write(query, filtered)
	if err != nil {
		p.log.Error().Err(err).Str("query", query).Msg("could not write result dataset")
		return p.fail(ctx, query, "result store write failed: "+err.Error())
	}
	p.addStored(int64(len(dataset.Results)))
	p.log.Info().
		Str("query", query).
		Int("results", len(dataset.Results)).
		Str("dataset", dataset.Path).
		Msg("results saved")

	// Downloads are best effort: search success is the unit of done.
	if p.cfg.AutoDownload && p.downloader != nil {
		p.downloadAll(ctx, query, dataset)
	}

	// The outcome must reach the ledger even if ctx was cancelled
	// mid-pipeline; an admitted query left pending can never be retried.
	if err := p.ledger.Complete(context.WithoutCancel(ctx), query, models.StatusCompleted, ""); err != nil {
		return err
	}
	p.addCompleted()
	p.log.Info().Str("query", query).Msg("query completed")
	return nil
}

// fail marks the query failed. Ledger errors escape; they are fatal.
func (p *Processor) fail(ctx context.Context, query, reason string) error {
	if err := p.ledger.Complete(context.WithoutCancel(ctx), query, models.StatusFailed, reason); err != nil {
		return err
	}
	p.addFailed()
	p.log.Info().Str("query", query).Str("reason", reason).Msg("query failed")
	return nil
}

// applyFilter keeps results inside the duration window. Records whose
// duration does not parse are excluded, not fatal.
func (p *Processor) applyFilter(query string, results []models.SearchResult) []models.SearchResult {
	if !p.window.Active() {
		return results
	}

	kept := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		d, err := models.ParseClock(r.Duration)
		if err != nil {
			p.log.Warn().
				Str("query", query).
				Str("title", r.Title).
				Str("duration", r.Duration).
				Msg("unparseable duration, excluding result")
			continue
		}
		if !p.window.Admits(d) {
			p.log.Debug().
				Str("query", query).
				Str("title", r.Title).
				Str("duration", r.Duration).
				Msg("result outside duration window")
			continue
		}
		kept = append(kept, r)
	}

	p.log.Info().
		Str("query", query).
		Int("kept", len(kept)).
		Int("total", len(results)).
		Msg("duration filter applied")
	return kept
}

// downloadAll attempts every download in the dataset. One job's failure
// is logged and does not abort the others.
func (p *Processor) downloadAll(ctx context.Context, query string, dataset *store.Dataset) {
	dest := filepath.Join(p.cfg.DownloadDir, store.SanitizeName(query))

	for i, r := range dataset.Results {
		job := models.DownloadJob{
			ID:          uuid.New().String(),
			Link:        r.Link,
			Title:       r.Title,
			Quality:     p.cfg.DownloadQuality,
			Format:      p.cfg.DownloadFormat,
			Resolution:  p.cfg.DownloadResolution,
			Destination: dest,
		}

		p.log.Info().
			Str("query", query).
			Str("job", job.ID).
			Str("title", r.Title).
			Msgf("downloading %d/%d", i+1, len(dataset.Results))

		result, err := p.downloader.Download(ctx, job)
		if err != nil {
			p.addDownloadFailed()
			p.log.Error().
				Err(err).
				Str("query", query).
				Str("job", job.ID).
				Str("link", r.Link).
				Msg("download failed")
			continue
		}

		p.addDownloadOK()
		p.log.Info().
			Str("query", query).
			Str("job", job.ID).
			Str("file", result.FilePath).
			Int64("bytes", result.BytesWritten).
			Msg("download finished")
	}
}

func (p *Processor) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Processor) finishCycle(start time.Time) time.Duration {
	elapsed := time.Since(start)
	next := time.Now().Add(p.cfg.CheckInterval)

	p.mu.Lock()
	p.stats.CyclesRun++
	now := time.Now()
	p.stats.LastCycleAt = &now
	p.stats.LastCycleDuration = elapsed.Round(time.Millisecond).String()
	p.stats.NextCheckAt = &next
	p.mu.Unlock()

	p.log.Info().Time("next_check", next).Msg("cycle finished")
	return elapsed
}

func (p *Processor) addCompleted()      { p.mu.Lock(); p.stats.QueriesCompleted++; p.mu.Unlock() }
func (p *Processor) addFailed()         { p.mu.Lock(); p.stats.QueriesFailed++; p.mu.Unlock() }
func (p *Processor) addDownloadOK()     { p.mu.Lock(); p.stats.DownloadsSucceeded++; p.mu.Unlock() }
func (p *Processor) addDownloadFailed() { p.mu.Lock(); p.stats.DownloadsFailed++; p.mu.Unlock() }
func (p *Processor) addStored(n int64)  { p.mu.Lock(); p.stats.ResultsStored += n; p.mu.Unlock() }

// readQueryFile reads the live query list: one query per line, trimmed,
// blank lines and #-comments skipped.
func readQueryFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := models.NormalizeQuery(scanner.Text())
		if models.IsQueryLine(line) {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return queries, nil
}
