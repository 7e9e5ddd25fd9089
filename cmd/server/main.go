package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/api"
	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/crawler"
	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/engine"
	"github.com/travel-insight/backend/internal/fetcher"
	"github.com/travel-insight/backend/internal/politeness"
	"github.com/travel-insight/backend/internal/search"
	"github.com/travel-insight/backend/internal/storage"
)

func main() {
	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "travel-api")

	// 1. Config
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		entry.Fatalf("Invalid configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	entry.Info("Starting Travel Insight API Service")

	// 2. Storage
	store, err := storage.NewCSVStorage(cfg.Corpus.DataPath)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// 3. Tokenizer
	seg, err := search.NewDictSegmenter(cfg.Corpus.UserWords...)
	if err != nil {
		entry.Fatalf("Failed to load segmentation dictionary: %v", err)
	}
	tokenizer := search.NewTokenizer(seg)

	// 4. Crawler
	c := crawler.New(
		cfg.Crawler,
		fetcher.NewFetcher(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent),
		politeness.NewManager(cfg.Crawler, entry.WithField("component", "politeness")),
		entry.WithField("component", "crawler"),
	)

	// 5. Engine
	eng := engine.NewEngine(cfg, entry.WithField("component", "engine"), tokenizer, c, store)
	if _, err := eng.Reload(); err != nil {
		var loadErr *dataset.DataLoadError
		if !errors.As(err, &loadErr) || !cfg.Corpus.BootstrapCrawl {
			entry.Fatalf("Failed to load corpus: %v", err)
		}
		entry.WithError(err).Warn("No usable corpus, bootstrapping with a crawl")
		if err := eng.StartCrawl(cfg.Crawler.MaxPages); err != nil {
			entry.Fatalf("Failed to start bootstrap crawl: %v", err)
		}
	}

	// 6. API Server
	server := api.NewServer(eng, cfg, entry.WithField("component", "api"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		entry.Info("Shutting down")
		eng.StopCrawl()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Error("Server shutdown failed")
		}
	}()

	if err := server.Start(cfg.Server.Addr); err != nil {
		entry.Fatal(err)
	}
	eng.Wait()
}
