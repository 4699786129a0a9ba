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


// Package queryapi serves the drill-down query composition over HTTP.
package queryapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
	"github.com/cardinalhq/logs-drilldown/queryrunner"
)

// runnerTTL is how long an idle client session keeps its query runner.
const runnerTTL = 10 * time.Minute

// MetadataProvider looks up detected fields and labels.
type MetadataProvider interface {
	DetectedFields(ctx context.Context, query string, r lokiclient.TimeRange) (logql.DetectedFields, error)
	DetectedLabels(ctx context.Context, query string, r lokiclient.TimeRange) ([]logql.DetectedLabel, error)
}

// Config configures a Service. Metadata and Executor are optional; the
// endpoints needing them answer 503 without.
type Config struct {
	Metadata MetadataProvider
	Executor queryrunner.Executor
	// Range is the range selector of metric queries, logql.AutoRange when
	// empty.
	Range string
}

// Service implements the HTTP API.
type Service struct {
	meta       MetadataProvider
	exec       queryrunner.Executor
	queryRange string
	// runners holds one runner per client session so a client's newer
	// query supersedes its older one.
	runners *ttlcache.Cache[string, *queryrunner.Runner]
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	runners := ttlcache.New(
		ttlcache.WithTTL[string, *queryrunner.Runner](runnerTTL),
	)
	go runners.Start()
	return &Service{
		meta:       cfg.Metadata,
		exec:       cfg.Executor,
		queryRange: cfg.Range,
		runners:    runners,
	}
}

// Close stops the runner cache.
func (s *Service) Close() {
	s.runners.Stop()
}

// Handler returns the routes of the API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/logql/validate", s.handleLogQLValidate)

	mux.HandleFunc("POST /api/v1/drilldown/compile", s.handleCompile)
	mux.HandleFunc("POST /api/v1/drilldown/import", s.handleImport)
	mux.HandleFunc("POST /api/v1/drilldown/run", s.handleRun)
	mux.HandleFunc("GET /api/v1/drilldown/fields", s.handleDetectedFields)
	mux.HandleFunc("GET /api/v1/drilldown/labels", s.handleDetectedLabels)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return requestMiddleware(mux)
}

// Run serves the API on addr until doneCtx is cancelled.
func (s *Service) Run(doneCtx context.Context, addr string) error {
	slog.Info("Starting query API", slog.String("addr", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start HTTP server", slog.Any("error", err))
		}
	}()

	<-doneCtx.Done()

	slog.Info("Shutting down query API")
	s.Close()
	if err := srv.Shutdown(context.Background()); err != nil {
		slog.Error("Failed to shutdown HTTP server", slog.Any("error", err))
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// runnerFor returns the runner of a client session, creating it on first
// use.
func (s *Service) runnerFor(sessionID string) *queryrunner.Runner {
	loader := ttlcache.LoaderFunc[string, *queryrunner.Runner](
		func(cache *ttlcache.Cache[string, *queryrunner.Runner], k string) *ttlcache.Item[string, *queryrunner.Runner] {
			return cache.Set(k, queryrunner.New(s.exec), ttlcache.DefaultTTL)
		},
	)
	return s.runners.Get(sessionID, ttlcache.WithLoader(loader)).Value()
}
