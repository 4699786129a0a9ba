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


package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPort is used when Config.Port is zero.
const DefaultPort = 8090

// checkTimeout bounds a single readiness check.
const checkTimeout = 2 * time.Second

type Status int32

const (
	StatusStarting Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Response struct {
	Healthy bool `json:"healthy"`
	// Failures maps each failing readiness check to its error.
	Failures map[string]string `json:"failures,omitempty"`
}

type Config struct {
	Port int
}

type Server struct {
	port   int
	status atomic.Int32
	server *http.Server

	mu     sync.Mutex
	checks map[string]Check
}

func NewServer(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	return &Server{
		port:   config.Port,
		checks: map[string]Check{},
	}
}

func (s *Server) SetStatus(status Status) {
	s.status.Store(int32(status))
	slog.Debug("Health check status updated", slog.String("status", status.String()))
}

func (s *Server) GetStatus() Status {
	return Status(s.status.Load())
}

// AddReadinessCheck registers a check that must pass, together with a
// healthy status, for /readyz to succeed.
func (s *Server) AddReadinessCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Ready runs the readiness checks. It returns the failing ones by name.
func (s *Server) Ready(ctx context.Context) (bool, map[string]string) {
	if s.GetStatus() != StatusHealthy {
		return false, nil
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for name, c := range s.checks {
		checks[name] = c
	}
	s.mu.Unlock()
	sort.Strings(names)

	var failures map[string]string
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](cctx)
		cancel()
		if err != nil {
			if failures == nil {
				failures = map[string]string{}
			}
			failures[name] = err.Error()
		}
	}
	return len(failures) == 0, failures
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/readyz", s.readyzHandler)
	mux.HandleFunc("/livez", s.livezHandler)
	return mux
}

// Start serves the probes until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Starting health check server", slog.Int("port", s.port))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health check server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	slog.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, Response{Healthy: s.GetStatus() == StatusHealthy})
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ready, failures := s.Ready(r.Context())
	if len(failures) > 0 {
		slog.Warn("Readiness check failed", slog.Any("failures", failures))
	}
	writeResponse(w, Response{Healthy: ready, Failures: failures})
}

func (s *Server) livezHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, Response{Healthy: s.GetStatus() != StatusUnhealthy})
}

func writeResponse(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")
	if response.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health check response", slog.Any("error", err))
	}
}
