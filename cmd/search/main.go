// One-shot search: look up a keyword and merge the results into a CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ytharvest/internal/logger"
	"ytharvest/internal/models"
	"ytharvest/internal/search"
	"ytharvest/internal/store"
	"ytharvest/internal/youtube"
)

func main() {
	maxResults := flag.Int("max", 10, "maximum number of results")
	output := flag.String("output", "youtube_results.csv", "output CSV file")
	region := flag.String("region", "", "two-letter country code (e.g. ES)")
	language := flag.String("language", "", "language code (e.g. es)")
	browser := flag.Bool("browser", false, "fetch through a headless browser")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: search [options] <keyword>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	keyword := flag.Arg(0)

	log := logger.New("search")

	fetcherKind := "http"
	if *browser {
		fetcherKind = "browser"
	}
	fetcher, err := search.NewFetcher(fetcherKind, *region, *language)
	if err != nil {
		log.Error().Err(err).Msg("cannot start fetcher")
		os.Exit(1)
	}

	provider := search.NewProvider(fetcher, youtube.NewClient(), log)
	defer provider.Close()

	start := time.Now()
	log.Info().Str("keyword", keyword).Msg("searching")

	results, err := provider.Search(context.Background(), keyword, *maxResults)
	if err != nil {
		log.Error().Err(err).Msg("search failed")
		os.Exit(1)
	}

	added, err := mergeIntoCSV(*output, results)
	if err != nil {
		log.Error().Err(err).Msg("cannot write results")
		os.Exit(1)
	}

	log.Info().
		Int("added", added).
		Str("file", *output).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("done")
}

// mergeIntoCSV appends results to an existing CSV, skipping links the
// file already has, and reports how many entries were new.
func mergeIntoCSV(path string, results []models.SearchResult) (int, error) {
	var existing []models.SearchResult
	if _, err := os.Stat(path); err == nil {
		existing, err = store.ReadCSV(path)
		if err != nil {
			return 0, err
		}
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Link] = true
	}

	merged := existing
	added := 0
	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		merged = append(merged, r)
		added++
	}

	return added, store.WriteCSV(path, merged)
}
