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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/cardinalhq/logs-drilldown/internal/idgen"
)

func handlerOptions(debug bool) *slog.HandlerOptions {
	if debug || os.Getenv("DEBUG") != "" {
		return &slog.HandlerOptions{Level: slog.LevelDebug}
	}
	return nil
}

// setupLogging configures the default logger of the one-shot commands. They
// log to w so stdout carries only their output.
func setupLogging(w io.Writer, debug bool) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, handlerOptions(debug))))
}

// setupTelemetry configures logging and, when ENABLE_OTLP_TELEMETRY is true,
// the OpenTelemetry SDK for a long running service. The returned context is
// cancelled on SIGINT or SIGTERM; the returned function flushes telemetry.
func setupTelemetry(servicename string, debug bool) (context.Context, func() error, error) {
	doneCtx, doneCancel := handleSignals(context.Background())
	instanceID := idgen.InstanceID()

	f := func() error {
		doneCancel()
		return nil
	}

	opts := handlerOptions(debug)

	if os.Getenv("OTEL_SERVICE_NAME") != "" && os.Getenv("ENABLE_OTLP_TELEMETRY") == "true" {
		slog.Info("OpenTelemetry exporting enabled")
		slog.SetDefault(slog.New(slogmulti.Fanout(
			slog.NewTextHandler(os.Stdout, opts),
			otelslog.NewHandler(servicename),
		)).With(
			slog.String("service", servicename),
			slog.Int64("instanceID", instanceID),
		))

		otelShutdown, err := telemetry.SetupOTelSDK(doneCtx)
		if err != nil {
			doneCancel()
			return doneCtx, nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
		}

		if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(time.Second * 10)); err != nil {
			slog.Warn("failed to start runtime metrics", "error", err.Error())
		}

		if err := host.Start(); err != nil {
			slog.Warn("failed to start host metrics", "error", err.Error())
		}

		f = func() error {
			defer doneCancel()
			slog.Info("Shutting down OpenTelemetry SDK")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)).With(
			slog.String("service", servicename),
			slog.Int64("instanceID", instanceID),
		))
	}

	return doneCtx, f, nil
}
