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


// Package queryrunner executes the queries of a drill-down session. A new
// query supersedes the one in flight: the older request is cancelled and its
// result discarded even if it arrives first.
package queryrunner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardinalhq/logs-drilldown/drilldown"
	"github.com/cardinalhq/logs-drilldown/internal/logctx"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

// ErrSuperseded is returned by Run when a newer query started before the
// result arrived.
var ErrSuperseded = errors.New("query superseded")

// Executor runs a range query.
type Executor interface {
	QueryRange(ctx context.Context, req lokiclient.QueryRequest) (lokiclient.QueryResponse, error)
}

// Runner serializes query results so only the latest query reports.
type Runner struct {
	exec Executor

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// New creates a Runner that executes through exec.
func New(exec Executor) *Runner {
	return &Runner{exec: exec}
}

// Run executes req, cancelling whatever query is still in flight.
func (r *Runner) Run(ctx context.Context, req lokiclient.QueryRequest) (lokiclient.QueryResponse, error) {
	requestID := uuid.New()
	logger := logctx.FromContext(ctx).With(slog.String("requestID", requestID.String()))

	r.mu.Lock()
	r.seq++
	seq := r.seq
	if r.cancel != nil {
		r.cancel()
	}
	qctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	start := time.Now()
	resp, err := r.exec.QueryRange(qctx, req)

	r.mu.Lock()
	stale := seq != r.seq
	if !stale {
		r.cancel = nil
	}
	r.mu.Unlock()

	if stale {
		recordQuery(ctx, outcomeSuperseded)
		logger.Debug("Discarding superseded query result", slog.String("query", req.Query))
		return lokiclient.QueryResponse{}, ErrSuperseded
	}
	if err != nil {
		recordQuery(ctx, outcomeError)
		logger.Error("Query failed", slog.String("query", req.Query), slog.Any("error", err))
		return lokiclient.QueryResponse{}, err
	}
	recordQuery(ctx, outcomeSuccess)
	logger.Debug("Query finished", slog.String("query", req.Query), slog.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// Cancel cancels the query in flight, if any. Its Run call returns
// ErrSuperseded.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// BuildFunc turns a session snapshot into the request to run.
type BuildFunc func(drilldown.Snapshot) (lokiclient.QueryRequest, error)

// ResultFunc receives the result of the latest query of a session.
type ResultFunc func(drilldown.Snapshot, lokiclient.QueryResponse, error)

// Watch runs a query every time the session publishes a change that needs
// new results. Superseded results are dropped; handle sees only the latest.
// The returned function stops watching and cancels the query in flight.
func (r *Runner) Watch(ctx context.Context, s *drilldown.Session, build BuildFunc, handle ResultFunc) (stop func()) {
	unsubscribe := s.SubscribeQueries(func(snap drilldown.Snapshot, _ drilldown.Change) {
		req, err := build(snap)
		if err != nil {
			handle(snap, lokiclient.QueryResponse{}, err)
			return
		}
		go func() {
			resp, err := r.Run(ctx, req)
			if errors.Is(err, ErrSuperseded) {
				return
			}
			handle(snap, resp, err)
		}()
	})
	return func() {
		unsubscribe()
		r.Cancel()
	}
}
