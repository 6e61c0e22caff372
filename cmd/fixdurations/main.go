// Duration repair: re-resolve placeholder durations inside a results
// CSV through video metadata and rewrite the file in place.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ytharvest/internal/logger"
	"ytharvest/internal/models"
	"ytharvest/internal/store"
	"ytharvest/internal/youtube"
)

// Pause between metadata lookups, to stay under rate limits.
const lookupDelay = time.Second

func main() {
	csvFile := flag.String("csv", "youtube_results.csv", "CSV file to repair")
	flag.Parse()

	log := logger.New("fixdurations")

	entries, err := store.ReadCSV(*csvFile)
	if err != nil {
		log.Error().Err(err).Msg("cannot read CSV")
		os.Exit(1)
	}

	client := youtube.NewClient()
	ctx := context.Background()
	updated := 0

	for i := range entries {
		if !needsRepair(entries[i].Duration) {
			continue
		}

		log.Info().Str("title", entries[i].Title).Msgf("resolving duration (%d/%d)", i+1, len(entries))

		d, err := client.ResolveDuration(ctx, entries[i].Link)
		if err != nil {
			log.Warn().Err(err).Str("link", entries[i].Link).Msg("could not resolve duration")
			continue
		}
		entries[i].Duration = models.FormatClock(d)
		updated++

		time.Sleep(lookupDelay)
	}

	if updated > 0 {
		if err := store.WriteCSV(*csvFile, entries); err != nil {
			log.Error().Err(err).Msg("cannot rewrite CSV")
			os.Exit(1)
		}
	}
	log.Info().Msgf("updated %d of %d entries", updated, len(entries))
}

func needsRepair(duration string) bool {
	if duration == "" || duration == "Unknown" || duration == "0:00" {
		return true
	}
	_, err := models.ParseClock(duration)
	return err != nil
}
