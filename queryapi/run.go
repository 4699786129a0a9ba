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
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/common/model"

	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
	"github.com/cardinalhq/logs-drilldown/queryrunner"
)

// DefaultLimit caps the lines a logs query returns.
const DefaultLimit = 100

type runRequest struct {
	CompileRequest
	// SessionID groups the queries of one client; a newer query of the
	// same session supersedes an older one still running.
	SessionID string `json:"sessionId,omitempty"`
	Step      string `json:"step,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type runResponse struct {
	Query     string                   `json:"query"`
	SessionID string                   `json:"sessionId"`
	Result    lokiclient.QueryResponse `json:"result"`
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.exec == nil {
		writeError(w, http.StatusServiceUnavailable, "query execution is not configured")
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.Compile(r.Context(), req.CompileRequest, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := logql.Validate(c.Query); err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorResponse(err))
		return
	}

	step := StepForRange(c.Range)
	if req.Step != "" {
		d, err := model.ParseDuration(req.Step)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid step: "+err.Error())
			return
		}
		step = time.Duration(d)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := s.runnerFor(sessionID).Run(r.Context(), lokiclient.QueryRequest{
		Query:     c.Query,
		Range:     c.Range,
		Step:      step,
		Limit:     limit,
		Direction: req.Direction,
	})
	switch {
	case errors.Is(err, queryrunner.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Query: c.Query, SessionID: sessionID, Result: resp})
}
