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


// Package metadata caches the detected fields and labels a drill-down
// session looks up repeatedly, and holds the session's default log columns.
package metadata

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

// DefaultTTL is used when New is given a non-positive ttl.
const DefaultTTL = 30 * time.Second

// Source defines the minimal Loki interface required by the service.
type Source interface {
	DetectedFields(ctx context.Context, query string, r lokiclient.TimeRange) (logql.DetectedFields, error)
	DetectedLabels(ctx context.Context, query string, r lokiclient.TimeRange) ([]logql.DetectedLabel, error)
}

type cacheKey struct {
	Query string
	Start int64
	End   int64
}

// keyOf truncates the window bounds to bucket, so relative windows such as
// "the last hour" resolved a few seconds apart share an entry.
func keyOf(query string, r lokiclient.TimeRange, bucket time.Duration) cacheKey {
	k := cacheKey{Query: query}
	if !r.Start.IsZero() {
		k.Start = r.Start.Truncate(bucket).UnixNano()
	}
	if !r.End.IsZero() {
		k.End = r.End.Truncate(bucket).UnixNano()
	}
	return k
}

type fieldsValue struct {
	Value logql.DetectedFields
	Err   error
}

type labelsValue struct {
	Value []logql.DetectedLabel
	Err   error
}

// Service is created when a drill-down session starts and closed when it
// ends. It is passed to whatever needs it; there is no package level
// instance.
type Service struct {
	source Source
	bucket time.Duration
	fields *ttlcache.Cache[cacheKey, fieldsValue]
	labels *ttlcache.Cache[cacheKey, labelsValue]

	mu             sync.Mutex
	defaultColumns []string
}

// New creates a Service reading from source with entries expiring after ttl.
func New(source Source, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	fields := ttlcache.New(ttlcache.WithTTL[cacheKey, fieldsValue](ttl))
	labels := ttlcache.New(ttlcache.WithTTL[cacheKey, labelsValue](ttl))
	go fields.Start()
	go labels.Start()
	return &Service{
		source: source,
		bucket: ttl,
		fields: fields,
		labels: labels,
	}
}

// Close stops the cache background goroutines.
func (s *Service) Close() {
	s.fields.Stop()
	s.labels.Stop()
}

// DetectedFields returns the detected fields of query over r. Errors are
// cached like values so a failing query is not retried until it expires.
// The upstream call is detached from ctx cancellation; a caller going away
// must not leave context.Canceled in the cache.
func (s *Service) DetectedFields(ctx context.Context, query string, r lokiclient.TimeRange) (logql.DetectedFields, error) {
	ctx = context.WithoutCancel(ctx)
	loader := ttlcache.LoaderFunc[cacheKey, fieldsValue](
		func(cache *ttlcache.Cache[cacheKey, fieldsValue], k cacheKey) *ttlcache.Item[cacheKey, fieldsValue] {
			val, err := s.source.DetectedFields(ctx, query, r)
			return cache.Set(k, fieldsValue{Value: val, Err: err}, ttlcache.DefaultTTL)
		},
	)
	cached := s.fields.Get(keyOf(query, r, s.bucket), ttlcache.WithLoader(loader)).Value()
	return cached.Value, cached.Err
}

// DetectedLabels returns the detected labels of query over r, ordered with
// single-valued labels last.
func (s *Service) DetectedLabels(ctx context.Context, query string, r lokiclient.TimeRange) ([]logql.DetectedLabel, error) {
	ctx = context.WithoutCancel(ctx)
	loader := ttlcache.LoaderFunc[cacheKey, labelsValue](
		func(cache *ttlcache.Cache[cacheKey, labelsValue], k cacheKey) *ttlcache.Item[cacheKey, labelsValue] {
			val, err := s.source.DetectedLabels(ctx, query, r)
			if err == nil {
				val = logql.SortLabelsByCardinality(val)
			}
			return cache.Set(k, labelsValue{Value: val, Err: err}, ttlcache.DefaultTTL)
		},
	)
	cached := s.labels.Get(keyOf(query, r, s.bucket), ttlcache.WithLoader(loader)).Value()
	return slices.Clone(cached.Value), cached.Err
}

// Invalidate drops every cached entry, as when the time range is refreshed.
func (s *Service) Invalidate() {
	s.fields.DeleteAll()
	s.labels.DeleteAll()
}

// DefaultColumns returns the columns shown when the URL carries none.
func (s *Service) DefaultColumns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.defaultColumns)
}

// SetDefaultColumns replaces the default columns.
func (s *Service) SetDefaultColumns(cols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultColumns = slices.Clone(cols)
}
