// Copyright 2026 The TrainCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command expire-trials deactivates trial principals whose window has
// lapsed. Intended to run as a periodic job.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/config"
	"github.com/traincore/traincore/internal/observability/logger"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	svc := principal.NewService(postgres.NewPrincipalRepository(db), audit.NewSlogLogger(), cfg.Trial.DefaultWindow)

	expired, err := svc.ExpireTrials(ctx)
	if err != nil {
		slog.Error("trial expiry sweep failed", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("trial expiry sweep complete", "expired", expired)
}
