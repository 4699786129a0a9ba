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

	"github.com/cardinalhq/logs-drilldown/logql"
)

type logQLValidateRequest struct {
	Query string `json:"query"`
}

type logQLValidateResponse struct {
	Valid bool `json:"valid"`
}

type logQLValidateErrorResponse struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error"`            // parser error message
	Pos    string `json:"pos,omitempty"`    // "line:col"
	Line   int    `json:"line,omitempty"`   // 1-based
	Column int    `json:"column,omitempty"` // 1-based, bytes
	Near   string `json:"near,omitempty"`   // slice of the query around the error
}

func validationErrorResponse(err error) logQLValidateErrorResponse {
	var ve *logql.ValidationError
	if !errors.As(err, &ve) {
		return logQLValidateErrorResponse{Error: err.Error()}
	}
	resp := logQLValidateErrorResponse{
		Error:  ve.Message,
		Line:   ve.Line,
		Column: ve.Column,
		Near:   ve.Near,
	}
	if ve.Line > 0 {
		resp.Pos = ve.Pos()
	}
	return resp
}

func (s *Service) handleLogQLValidate(w http.ResponseWriter, r *http.Request) {
	var req logQLValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, logQLValidateErrorResponse{
			Error: "Missing or invalid JSON body; expected {\"query\": \"...\"}",
		})
		return
	}

	if err := logql.Validate(req.Query); err != nil {
		writeJSON(w, http.StatusOK, validationErrorResponse(err))
		return
	}
	writeJSON(w, http.StatusOK, logQLValidateResponse{Valid: true})
}
