// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/logs-drilldown/config"
	"github.com/cardinalhq/logs-drilldown/internal/debugging"
	"github.com/cardinalhq/logs-drilldown/internal/healthcheck"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
	"github.com/cardinalhq/logs-drilldown/metadata"
	"github.com/cardinalhq/logs-drilldown/queryapi"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the query composition API server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			servicename := "logs-drilldown"
			doneCtx, doneFx, err := setupTelemetry(servicename, cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}

			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			debugging.RunPprof(doneCtx, cfg.Server.PprofAddr)

			client, err := lokiclient.New(lokiclient.Config{
				BaseURL: cfg.Loki.URL,
				Tenant:  cfg.Loki.Tenant,
				Timeout: cfg.Loki.Timeout,
			})
			if err != nil {
				slog.Error("Failed to create Loki client", slog.Any("error", err))
				return fmt.Errorf("failed to create loki client: %w", err)
			}

			healthServer := healthcheck.NewServer(healthcheck.Config{Port: cfg.Server.HealthPort})
			healthServer.AddReadinessCheck("loki", client.Ready)
			go func() {
				if err := healthServer.Start(doneCtx); err != nil {
					slog.Error("Health check server stopped", slog.Any("error", err))
				}
			}()

			meta := metadata.New(client, cfg.Metadata.TTL)
			defer meta.Close()

			svc := queryapi.NewService(queryapi.Config{
				Metadata: meta,
				Executor: client,
				Range:    cfg.Query.Range,
			})

			healthServer.SetStatus(healthcheck.StatusHealthy)

			return svc.Run(doneCtx, cfg.Server.Addr)
		},
	}

	rootCmd.AddCommand(cmd)
}
