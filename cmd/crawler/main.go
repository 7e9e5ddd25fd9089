package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/cleaning"
	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/crawler"
	"github.com/travel-insight/backend/internal/fetcher"
	"github.com/travel-insight/backend/internal/politeness"
	"github.com/travel-insight/backend/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "travel-crawler")

	cfg := config.Load()
	pages := flag.Int("pages", cfg.Crawler.MaxPages, "number of listing pages to crawl")
	out := flag.String("out", cfg.Corpus.DataPath, "CSV file to write the cleaned records to")
	flag.Parse()

	cfg.Crawler.MaxPages = *pages
	cfg.Corpus.DataPath = *out
	if err := config.Validate(cfg); err != nil {
		entry.Fatalf("Invalid configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	store, err := storage.NewCSVStorage(cfg.Corpus.DataPath)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	c := crawler.New(
		cfg.Crawler,
		fetcher.NewFetcher(cfg.Crawler.RequestTimeout, cfg.Crawler.UserAgent),
		politeness.NewManager(cfg.Crawler, entry.WithField("component", "politeness")),
		entry.WithField("component", "crawler"),
	)
	c.OnProgress(func(p crawler.Progress) {
		if p.Page%10 == 0 || p.Page == cfg.Crawler.MaxPages {
			entry.WithFields(logrus.Fields{"page": p.Page, "total": cfg.Crawler.MaxPages}).Info("Crawl progress")
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := c.Crawl(ctx, cfg.Crawler.MaxPages)
	if err != nil {
		entry.WithError(err).Warnf("Crawl interrupted after %d records, keeping what was gathered", len(raw))
	}

	cleaned, report := cleaning.Clean(raw, cleaning.DefaultOptions())
	entry.WithFields(logrus.Fields{
		"input":        report.Input,
		"guides":       report.Guides,
		"bad_duration": report.BadDuration,
		"missing_date": report.MissingDate,
		"kept":         report.Output,
	}).Info("Records cleaned")

	if len(cleaned) == 0 {
		entry.Fatal("No usable records, leaving the dataset untouched")
	}
	if err := store.Save(cleaning.Enrich(cleaned)); err != nil {
		entry.Fatalf("Failed to save records: %v", err)
	}
	entry.WithField("path", store.Path()).Info("Dataset written")
}
