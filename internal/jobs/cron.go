/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/repo"
)

type Cron struct {
	cfg      config.Config
	log      zerolog.Logger
	reminder *Reminder
	repo     *repo.Repository
	c        *cron.Cron
}

// NewCron schedules the reminder sweep. repo may be nil; with it, an
// advisory lock keeps multiple replicas from sweeping at once.
func NewCron(cfg config.Config, log zerolog.Logger, reminder *Reminder, r *repo.Repository) *Cron {
	loc, _ := time.LoadLocation(cfg.TZ)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, reminder: reminder, repo: r, c: c}
	_, _ = c.AddFunc(cfg.ReminderCron, cr.sweep)
	return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if cr.repo != nil {
		const lockKey int64 = 773311
		ok, err := cr.repo.TryAdvisoryLock(ctx, lockKey)
		if err != nil {
			cr.log.Error().Err(err).Msg("cron: lock error")
			return
		}
		if !ok {
			cr.log.Info().Msg("cron: sweep already running elsewhere")
			return
		}
		defer func() { _ = cr.repo.AdvisoryUnlock(context.Background(), lockKey) }()
	}
	cr.log.Info().Msg("cron: release reminder sweep")
	if _, err := cr.reminder.Run(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: reminder sweep failed")
	}
}
