package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ytharvest/internal/config"
	"ytharvest/internal/ledger"
	"ytharvest/internal/logger"
	"ytharvest/internal/processor"
	"ytharvest/internal/search"
	"ytharvest/internal/status"
	"ytharvest/internal/store"
	"ytharvest/internal/version"
	"ytharvest/internal/youtube"
)

// Exit codes: 0 clean stop, 1 fatal runtime error, 2 startup failure
// (bad configuration or corrupted ledger).
const (
	exitFatal   = 1
	exitStartup = 2
)

func main() {
	// .envファイルを読み込み（存在しない場合はスキップ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(exitStartup)
	}

	var logSink io.Writer
	if cfg.LogFile != "" {
		logFile, err := logger.OpenLogFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
			os.Exit(exitStartup)
		}
		defer logFile.Close()
		logSink = logFile
	}
	log := logger.NewWithWriter("processor", logSink)

	log.Info().Str("version", version.Version).Msg("starting ytharvest processor")

	led, err := ledger.Open(cfg.LedgerBackend, cfg.LedgerPath)
	if err != nil {
		log.Error().Err(err).Msg("cannot open query ledger")
		os.Exit(exitStartup)
	}
	defer led.Close()

	fetcher, err := search.NewFetcher(cfg.SearchFetcher, cfg.SearchRegion, cfg.SearchLanguage)
	if err != nil {
		log.Error().Err(err).Msg("cannot start search fetcher")
		os.Exit(exitStartup)
	}

	yt := youtube.NewClient()
	searchProv := search.NewProvider(fetcher, yt, logger.NewWithWriter("search", logSink))
	defer searchProv.Close()

	var downloader processor.Downloader
	if cfg.AutoDownload {
		downloader = yt
	}

	proc := processor.New(cfg, led, store.New(cfg.ResultsDir), searchProv, downloader, log)

	var statusSrv *status.Server
	if cfg.StatusAddr != "" {
		statusSrv = status.New(proc, led)
		go func() {
			if err := statusSrv.Start(cfg.StatusAddr); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
		log.Info().Str("addr", cfg.StatusAddr).Msg("status server listening")
	}

	// The first signal is a soft stop: the loop finishes the current
	// query's pipeline and returns cleanly. A second signal cancels the
	// context and aborts whatever is still in flight.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("stop signal received, finishing current query")
		proc.Stop()
		<-sigCh
		log.Warn().Msg("second stop signal, aborting")
		cancel()
	}()

	runErr := proc.Run(ctx)

	if statusSrv != nil {
		_ = statusSrv.Close()
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("processor stopped with fatal error")
		os.Exit(exitFatal)
	}
	log.Info().Msg("processor stopped")
}
