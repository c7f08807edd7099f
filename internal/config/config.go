/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	TZ       string
	HTTPAddr string
	LogLevel string

	LinearBaseURL       string
	LinearAPIKey        string
	LinearWebhookSecret string

	NotionBaseURL       string
	NotionToken         string
	NotionVersion       string
	NotionReleaseParent string
	NotionRetroParent   string

	SlackFiremanURL   string
	SlackMilestoneURL string
	SlackReminderURL  string

	FiremanStateName   string
	MilestoneTeamID    string
	MilestoneStates    []string
	FlaggedLabelName   string
	StoryLabelParentID string

	ReleaseLeadDays  int
	ReminderLeadDays int
	ReminderCron     string

	DBDSN    string
	RedisURL string

	AlertDedupeTTL time.Duration

	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	HTTPTimeout     time.Duration
	CommentWorkers  int
	CommentPageSize int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseStrings(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func Load() Config {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		TZ:       getenv("APP_TZ", "Europe/Berlin"),
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		LinearBaseURL:       getenv("LINEAR_BASE_URL", "https://api.linear.app/graphql"),
		LinearAPIKey:        getenv("LINEAR_API_KEY", ""),
		LinearWebhookSecret: getenv("LINEAR_WEBHOOK_SECRET", ""),

		NotionBaseURL:       getenv("NOTION_BASE_URL", "https://api.notion.com"),
		NotionToken:         getenv("NOTION_TOKEN", ""),
		NotionVersion:       getenv("NOTION_VERSION", "2022-06-28"),
		NotionReleaseParent: getenv("NOTION_RELEASE_PARENT_ID", ""),
		NotionRetroParent:   getenv("NOTION_RETRO_PARENT_ID", ""),

		SlackFiremanURL:   getenv("SLACK_FIREMAN_WEBHOOK_URL", ""),
		SlackMilestoneURL: getenv("SLACK_MILESTONE_WEBHOOK_URL", ""),
		SlackReminderURL:  getenv("SLACK_REMINDER_WEBHOOK_URL", ""),

		FiremanStateName:   getenv("FIREMAN_STATE_NAME", "Fireman Validation"),
		MilestoneTeamID:    getenv("MILESTONE_TEAM_ID", ""),
		MilestoneStates:    parseStrings(getenv("MILESTONE_STATES", "QA Testing,Done")),
		FlaggedLabelName:   getenv("FLAGGED_LABEL_NAME", "Flagged"),
		StoryLabelParentID: getenv("STORY_LABEL_PARENT_ID", ""),

		ReleaseLeadDays:  atoi("RELEASE_LEAD_DAYS", 7),
		ReminderLeadDays: atoi("REMINDER_LEAD_DAYS", 2),
		ReminderCron:     getenv("REMINDER_CRON", "0 9 * * *"),

		DBDSN:    getenv("DB_DSN", ""),
		RedisURL: getenv("REDIS_URL", ""),

		AlertDedupeTTL: dur("ALERT_DEDUPE_TTL", time.Hour),

		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout: dur("OPENAI_TIMEOUT", 15*time.Second),

		HTTPTimeout:     dur("HTTP_TIMEOUT", 15*time.Second),
		CommentWorkers:  atoi("COMMENT_WORKERS", 4),
		CommentPageSize: atoi("COMMENT_PAGE_SIZE", 50),
	}

	// set global timezone if available
	if loc, err := time.LoadLocation(cfg.TZ); err == nil {
		time.Local = loc
	} else {
		log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
	}
	// reminder pings fall back to the milestone channel
	if cfg.SlackReminderURL == "" {
		cfg.SlackReminderURL = cfg.SlackMilestoneURL
	}
	return cfg
}
