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


// Package lokiclient talks to the Loki HTTP API for the metadata and queries
// a drill-down session needs.
package lokiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/logs-drilldown/logql"
)

const (
	DefaultTimeout = 30 * time.Second
	MaxResponse    = 64 * 1024 * 1024 // 64 MB

	detectedFieldsPath = "/loki/api/v1/detected_fields"
	detectedLabelsPath = "/loki/api/v1/detected_labels"
	queryRangePath     = "/loki/api/v1/query_range"
	readyPath          = "/ready"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Tenant is sent as X-Scope-OrgID when set.
	Tenant  string
	Timeout time.Duration
}

// Client is a Loki HTTP API client.
type Client struct {
	baseURL string
	tenant  string
	client  *http.Client
}

// New creates a client for the Loki instance at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse loki url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("loki url %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		tenant:  cfg.Tenant,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// TimeRange bounds a request.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) apply(q url.Values) {
	if !r.Start.IsZero() {
		q.Set("start", strconv.FormatInt(r.Start.UnixNano(), 10))
	}
	if !r.End.IsZero() {
		q.Set("end", strconv.FormatInt(r.End.UnixNano(), 10))
	}
}

// DetectedFields fetches the fields Loki detects in the lines matched by
// query.
func (c *Client) DetectedFields(ctx context.Context, query string, r TimeRange) (logql.DetectedFields, error) {
	q := url.Values{"query": {query}}
	r.apply(q)

	var out logql.DetectedFields
	if err := c.get(ctx, detectedFieldsPath, q, &out); err != nil {
		return logql.DetectedFields{}, err
	}
	return out, nil
}

type detectedLabelsResponse struct {
	DetectedLabels []logql.DetectedLabel `json:"detectedLabels"`
}

// DetectedLabels fetches the stream labels of query, ordered so labels with a
// single value come last.
func (c *Client) DetectedLabels(ctx context.Context, query string, r TimeRange) ([]logql.DetectedLabel, error) {
	q := url.Values{"query": {query}}
	r.apply(q)

	var out detectedLabelsResponse
	if err := c.get(ctx, detectedLabelsPath, q, &out); err != nil {
		return nil, err
	}
	return logql.SortLabelsByCardinality(out.DetectedLabels), nil
}

// QueryRequest is a range query.
type QueryRequest struct {
	Query     string
	Range     TimeRange
	Step      time.Duration
	Limit     int
	Direction string
}

// QueryResponse is the envelope of a query_range response. The result is
// kept raw since its shape depends on the result type.
type QueryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string          `json:"resultType"`
		Result     json.RawMessage `json:"result"`
	} `json:"data"`
}

// QueryRange runs a range query.
func (c *Client) QueryRange(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	q := url.Values{"query": {req.Query}}
	req.Range.apply(q)
	if req.Step > 0 {
		q.Set("step", model.Duration(req.Step).String())
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Direction != "" {
		q.Set("direction", req.Direction)
	}

	var out QueryResponse
	if err := c.get(ctx, queryRangePath, q, &out); err != nil {
		return QueryResponse{}, err
	}
	return out, nil
}

// Ready reports whether Loki answers its readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, readyPath, url.Values{}, nil)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loki returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	ctx, span := tracer.Start(ctx, "loki "+path, trace.WithAttributes(
		attribute.String("loki.path", path),
		attribute.String("loki.query", q.Get("query")),
	))
	defer span.End()

	err := c.do(ctx, path, q, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordRequest(ctx, path, "error")
		return err
	}
	recordRequest(ctx, path, "ok")
	return nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tenant != "" {
		req.Header.Set("X-Scope-OrgID", c.tenant)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponse+1))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if len(body) > MaxResponse {
		return fmt.Errorf("%s response exceeds max size (%d bytes)", path, MaxResponse)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
