// Package config loads the process configuration from the environment
// (optionally seeded from a .env file by the caller). Configuration is
// read once at startup and immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ytharvest/internal/models"
)

// Ledger backends
const (
	LedgerFile   = "file"
	LedgerSQLite = "sqlite"
)

// Search fetchers
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

type Config struct {
	QueryFile   string
	ResultsDir  string
	DownloadDir string
	LedgerPath  string
	LogFile     string

	LedgerBackend string

	CheckInterval time.Duration
	MaxResults    int

	AutoDownload       bool
	DownloadQuality    string
	DownloadFormat     string
	DownloadResolution string

	MinDuration time.Duration
	MaxDuration time.Duration

	SearchFetcher  string
	SearchRegion   string
	SearchLanguage string

	StatusAddr string
}

// Load reads and validates the configuration. Any error here is fatal:
// the process must exit before the automation loop starts.
func Load() (Config, error) {
	cfg := Config{
		QueryFile:   getenv("QUERY_FILE", "query.txt"),
		ResultsDir:  getenv("RESULTS_DIR", "results"),
		DownloadDir: getenv("DOWNLOAD_DIR", "downloads"),
		LedgerPath:  getenv("LEDGER_PATH", "processed_queries.txt"),
		LogFile:     getenv("LOG_FILE", "ytharvest.log"),

		LedgerBackend: getenv("LEDGER_BACKEND", LedgerFile),

		DownloadQuality:    getenv("DOWNLOAD_QUALITY", models.QualityBest),
		DownloadFormat:     getenv("DOWNLOAD_FORMAT", ""),
		DownloadResolution: getenv("DOWNLOAD_RESOLUTION", "720"),

		SearchFetcher:  getenv("SEARCH_FETCHER", FetcherHTTP),
		SearchRegion:   getenv("SEARCH_REGION", ""),
		SearchLanguage: getenv("SEARCH_LANGUAGE", ""),

		StatusAddr: getenv("STATUS_ADDR", ""),
	}

	autoDownload, err := getenvBool("AUTO_DOWNLOAD", true)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoDownload = autoDownload

	interval, err := getenvPositiveInt("CHECK_INTERVAL_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.CheckInterval = time.Duration(interval) * time.Minute

	cfg.MaxResults, err = getenvPositiveInt("MAX_RESULTS_PER_QUERY", 5)
	if err != nil {
		return Config{}, err
	}

	minMin, err := getenvNonNegativeInt("MIN_DURATION_MINUTES", 0)
	if err != nil {
		return Config{}, err
	}
	maxMin, err := getenvNonNegativeInt("MAX_DURATION_MINUTES", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.MinDuration = time.Duration(minMin) * time.Minute
	cfg.MaxDuration = time.Duration(maxMin) * time.Minute

	switch cfg.DownloadQuality {
	case models.QualityBest, models.QualityWorst, models.QualityAudio:
	default:
		return Config{}, fmt.Errorf("DOWNLOAD_QUALITY must be best, worst or audio, got %q", cfg.DownloadQuality)
	}

	switch cfg.LedgerBackend {
	case LedgerFile, LedgerSQLite:
	default:
		return Config{}, fmt.Errorf("LEDGER_BACKEND must be file or sqlite, got %q", cfg.LedgerBackend)
	}

	switch cfg.SearchFetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return Config{}, fmt.Errorf("SEARCH_FETCHER must be http or browser, got %q", cfg.SearchFetcher)
	}

	if err := ensureDirs(cfg.ResultsDir, cfg.DownloadDir); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func ensureDirs(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", p, err)
		}
	}
	return nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def, nil
	}
	switch v {
	case "yes", "true", "1", "y", "on":
		return true, nil
	case "no", "false", "0", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean (yes/no), got %q", key, v)
	}
}

func getenvPositiveInt(key string, def int) (int, error) {
	n, err := getenvNonNegativeInt(key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %d", key, n)
	}
	return n, nil
}

func getenvNonNegativeInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}
