// One-shot downloader: read a results CSV and download all, one, or a
// range of its videos.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ytharvest/internal/logger"
	"ytharvest/internal/models"
	"ytharvest/internal/store"
	"ytharvest/internal/youtube"
)

func main() {
	csvFile := flag.String("csv", "youtube_results.csv", "CSV file with search results")
	output := flag.String("output", "downloads", "directory to save downloads")
	all := flag.Bool("all", false, "download every video in the CSV")
	index := flag.Int("index", 0, "download one video by index (starting from 1)")
	rng := flag.String("range", "", "download a range of videos (e.g. 1-5)")
	quality := flag.String("quality", models.QualityBest, "quality: best, worst or audio")
	format := flag.String("format", "", "container format (mp4, webm)")
	resolution := flag.String("resolution", "", "resolution cap (e.g. 720)")
	flag.Parse()

	log := logger.New("download")

	videos, err := store.ReadCSV(*csvFile)
	if err != nil {
		log.Error().Err(err).Msg("cannot read CSV")
		os.Exit(1)
	}
	if len(videos) == 0 {
		log.Info().Str("file", *csvFile).Msg("no videos found")
		return
	}

	first, last, ok := selection(*all, *index, *rng, len(videos))
	if !ok {
		listVideos(videos)
		return
	}
	if first < 1 || last > len(videos) || first > last {
		log.Error().Msgf("invalid selection, choose indices between 1 and %d", len(videos))
		os.Exit(1)
	}

	client := youtube.NewClient()
	ctx := context.Background()
	succeeded := 0

	for i := first; i <= last; i++ {
		v := videos[i-1]
		job := models.DownloadJob{
			ID:          uuid.New().String(),
			Link:        v.Link,
			Title:       v.Title,
			Quality:     *quality,
			Format:      *format,
			Resolution:  *resolution,
			Destination: *output,
		}

		log.Info().Str("title", v.Title).Msgf("downloading %d/%d", i-first+1, last-first+1)

		result, err := client.Download(ctx, job)
		if err != nil {
			// Keep going; one failed video must not stop the batch.
			log.Error().Err(err).Str("link", v.Link).Msg("download failed")
			continue
		}
		succeeded++
		log.Info().Str("file", result.FilePath).Int64("bytes", result.BytesWritten).Msg("saved")
	}

	log.Info().Msgf("downloaded %d/%d videos", succeeded, last-first+1)
}

func selection(all bool, index int, rng string, n int) (first, last int, ok bool) {
	switch {
	case all:
		return 1, n, true
	case index > 0:
		return index, index, true
	case rng != "":
		parts := strings.SplitN(rng, "-", 2)
		if len(parts) != 2 {
			return 0, 0, true // reported as invalid by the caller
		}
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA != nil || errB != nil {
			return 0, 0, true
		}
		return a, b, true
	default:
		return 0, 0, false
	}
}

func listVideos(videos []models.SearchResult) {
	fmt.Println("Available videos:")
	for i, v := range videos {
		fmt.Printf("%d. %s [%s]\n", i+1, v.Title, v.Duration)
	}
	fmt.Println("\nUse -all, -index N or -range A-B to download.")
}
