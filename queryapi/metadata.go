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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardinalhq/logs-drilldown/internal/logctx"
	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

type detectedFieldsResponse struct {
	Fields []logql.DetectedField `json:"fields"`
}

type detectedLabelsResponse struct {
	DetectedLabels []logql.DetectedLabel `json:"detectedLabels"`
}

func (s *Service) handleDetectedFields(w http.ResponseWriter, r *http.Request) {
	query, tr, ok := s.metadataRequest(w, r)
	if !ok {
		return
	}
	df, err := s.meta.DetectedFields(r.Context(), query, tr)
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	fields := df.Fields
	if fields == nil {
		fields = []logql.DetectedField{}
	}
	writeJSON(w, http.StatusOK, detectedFieldsResponse{Fields: fields})
}

func (s *Service) handleDetectedLabels(w http.ResponseWriter, r *http.Request) {
	query, tr, ok := s.metadataRequest(w, r)
	if !ok {
		return
	}
	labels, err := s.meta.DetectedLabels(r.Context(), query, tr)
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	if labels == nil {
		labels = []logql.DetectedLabel{}
	}
	writeJSON(w, http.StatusOK, detectedLabelsResponse{DetectedLabels: labels})
}

// metadataRequest reads the query and time range parameters shared by the
// metadata endpoints, answering the request itself when they are unusable.
func (s *Service) metadataRequest(w http.ResponseWriter, r *http.Request) (string, lokiclient.TimeRange, bool) {
	if s.meta == nil {
		writeError(w, http.StatusServiceUnavailable, "metadata lookups are not configured")
		return "", lokiclient.TimeRange{}, false
	}
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter")
		return "", lokiclient.TimeRange{}, false
	}
	tr, err := resolveRange(q.Get("start"), q.Get("end"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", lokiclient.TimeRange{}, false
	}
	return query, tr, true
}

// writeUpstreamError reports a failed Loki call. Loki's client errors are
// passed through; everything else is a bad gateway.
func writeUpstreamError(ctx context.Context, w http.ResponseWriter, err error) {
	logctx.FromContext(ctx).Error("Loki request failed", slog.Any("error", err))

	var se *lokiclient.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		writeError(w, se.StatusCode, se.Body)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
