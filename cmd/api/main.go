/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/adapters/linear"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/adapters/notion"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/adapters/openai"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/adapters/slack"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/dedupe"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/detect"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/flows"
	apihttp "github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/http"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/jobs"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/logger"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/repo"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/retro"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// optional audit DB; configured but unreachable is a startup failure
	var repository *repo.Repository
	if cfg.DBDSN != "" {
		db, err := repo.Open(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()
		repository = repo.NewRepository(db, log)
	}

	// optional alert dedupe; same policy as the DB
	var cache *dedupe.Cache
	if cfg.RedisURL != "" {
		var err error
		cache, err = dedupe.New(ctx, cfg.RedisURL, cfg.AlertDedupeTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		defer cache.Close()
	}

	// adapters
	tracker := linear.NewClient(cfg, log)
	docs := notion.NewClient(cfg, log)
	sink := slack.NewClient(cfg.HTTPTimeout, log)

	// flows and orchestration
	detector := detect.New(tracker, cfg.FlaggedLabelName, log)
	var firemanCache flows.DedupeCache
	if cache != nil {
		firemanCache = cache
	}
	router := flows.NewRouter(log,
		flows.NewFireman(sink, firemanCache, cfg, log),
		flows.NewMilestone(sink, cfg, log),
		flows.NewRelease(tracker, docs, cfg, log),
	)
	var summarizer retro.Summarizer
	if cfg.OpenAIKey != "" {
		summarizer = openai.NewClient(cfg, log)
	}
	generator := retro.New(tracker, docs, summarizer, cfg, log)

	var auditor service.Auditor
	if repository != nil {
		auditor = repository
	}
	svc := service.New(detector, router, generator, auditor, log)

	// scheduled release reminders
	reminder := jobs.NewReminder(docs, sink, cfg, log)
	cron := jobs.NewCron(cfg, log, reminder, repository)
	cron.Start()
	defer cron.Stop()

	// HTTP server (Gin)
	handlers := apihttp.NewHandlers(cfg, log, svc, repository, reminder, tracker)
	engine := apihttp.NewRouter(cfg, log, handlers)

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(cfg.HTTPAddr) }()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	time.Sleep(500 * time.Millisecond)
}
