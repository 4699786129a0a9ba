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


package queryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/common/model"

	"github.com/cardinalhq/logs-drilldown/drilldown"
	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/internal/logctx"
	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

// QueryKind selects which panel query is compiled.
type QueryKind string

const (
	KindLogs   QueryKind = "logs"
	KindField  QueryKind = "field"
	KindLabel  QueryKind = "label"
	KindLevels QueryKind = "levels"
	KindValues QueryKind = "values"
)

// CompileRequest describes a query to compile.
type CompileRequest struct {
	// State is applied after URL when both are given.
	State *logql.State `json:"state,omitempty"`
	// URL is a query string of persisted var-<category> parameters.
	URL string `json:"url,omitempty"`
	// DetectedFields skips the detected fields lookup when set.
	DetectedFields *logql.DetectedFields `json:"detectedFields,omitempty"`

	Kind     QueryKind `json:"kind,omitempty"`
	Key      string    `json:"key,omitempty"`
	Category string    `json:"category,omitempty"`
	Range    string    `json:"range,omitempty"`
	Start    string    `json:"start,omitempty"`
	End      string    `json:"end,omitempty"`
}

type compileResponse struct {
	Query           string                      `json:"query"`
	Valid           bool                        `json:"valid"`
	ValidationError *logQLValidateErrorResponse `json:"validationError,omitempty"`
	// URL is the compiled state in its persisted form.
	URL      string      `json:"url"`
	State    logql.State `json:"state"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Compiled is a query built from a request.
type Compiled struct {
	Query    string
	Snapshot drilldown.Snapshot
	Range    lokiclient.TimeRange
	Warnings []string
}

func (s *Service) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.Compile(r.Context(), req, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := compileResponse{
		Query:    c.Query,
		Valid:    true,
		URL:      c.Snapshot.URLValues().Encode(),
		State:    c.Snapshot.State,
		Warnings: c.Warnings,
	}
	if err := logql.Validate(c.Query); err != nil {
		ve := validationErrorResponse(err)
		resp.Valid = false
		resp.ValidationError = &ve
	}
	writeJSON(w, http.StatusOK, resp)
}

// Compile builds the query a request asks for. Errors are caused by the
// request; metadata lookup failures only degrade parser resolution.
func (s *Service) Compile(ctx context.Context, req CompileRequest, now time.Time) (Compiled, error) {
	tr, err := resolveRange(req.Start, req.End, now)
	if err != nil {
		return Compiled{}, err
	}
	queryRange := req.Range
	if queryRange == "" {
		queryRange = s.queryRange
	}
	if queryRange != "" && queryRange != logql.AutoRange {
		if _, err := model.ParseDuration(queryRange); err != nil {
			return Compiled{}, fmt.Errorf("invalid range %q: %w", queryRange, err)
		}
	}

	sess, warnings, err := sessionFromRequest(ctx, req)
	if err != nil {
		return Compiled{}, err
	}
	snap := sess.Snapshot()

	qb := snap.QueryBuilder(s.detectedFields(ctx, req, snap.State, tr))
	qb.Range = queryRange
	qb.Logger = logctx.FromContext(ctx)

	query, err := buildQuery(qb, req)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{Query: query, Snapshot: snap, Range: tr, Warnings: warnings}, nil
}

// sessionFromRequest loads the request's persisted and explicit state into a
// fresh session so levels and JSON props are normalized the same way a live
// session does.
func sessionFromRequest(ctx context.Context, req CompileRequest) (*drilldown.Session, []string, error) {
	sess := drilldown.NewSession(ctx)
	var warnings []string

	if req.URL != "" {
		v, err := url.ParseQuery(req.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid url state: %w", err)
		}
		if err := sess.RestoreURL(ctx, v); err != nil {
			var merr *multierror.Error
			if errors.As(err, &merr) {
				for _, e := range merr.Errors {
					warnings = append(warnings, e.Error())
				}
			} else {
				warnings = append(warnings, err.Error())
			}
		}
	}

	if req.State != nil {
		err := sess.Update(drilldown.StateChanged, func(tx *drilldown.Tx) error {
			tx.Replace(*req.State)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return sess, warnings, nil
}

func (s *Service) detectedFields(ctx context.Context, req CompileRequest, state logql.State, tr lokiclient.TimeRange) logql.DetectedFields {
	if req.DetectedFields != nil {
		return *req.DetectedFields
	}
	if s.meta == nil || !needsDetectedFields(req, state) {
		return logql.DetectedFields{}
	}
	selector := logql.LabelSelector(state.Labels)
	df, err := s.meta.DetectedFields(ctx, selector, tr)
	if err != nil {
		logctx.FromContext(ctx).Warn("Detected fields lookup failed, resolving parsers from filters",
			slog.String("selector", selector), slog.Any("error", err))
		return logql.DetectedFields{}
	}
	return df
}

func needsDetectedFields(req CompileRequest, state logql.State) bool {
	return len(state.Fields) > 0 || req.Kind == KindField || req.Kind == KindValues
}

func buildQuery(qb *logql.QueryBuilder, req CompileRequest) (string, error) {
	switch req.Kind {
	case "", KindLogs:
		return qb.LogsQuery(), nil
	case KindField:
		return qb.FieldBreakdownQuery(req.Key)
	case KindLabel:
		return qb.LabelBreakdownQuery(req.Key)
	case KindLevels:
		return qb.LevelsVolumeQuery(), nil
	case KindValues:
		c, err := filters.ParseCategory(req.Category)
		if err != nil {
			return "", err
		}
		return qb.FieldValuesQuery(c, req.Key)
	}
	return "", fmt.Errorf("unknown query kind %q", req.Kind)
}
