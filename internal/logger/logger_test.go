/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/liviuignat/EverRealGMBH-internal-linear-connector/internal/config"
)

func TestNew_LevelFromConfig(t *testing.T) {
	l := New(config.Config{AppEnv: "prod", LogLevel: "warn"})
	if l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", l.GetLevel())
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l := New(config.Config{AppEnv: "prod", LogLevel: "shout"})
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", l.GetLevel())
	}
}
