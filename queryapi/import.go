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
	"net/http"

	"github.com/cardinalhq/logs-drilldown/drilldown"
	"github.com/cardinalhq/logs-drilldown/logql"
)

type importRequest struct {
	Query string `json:"query"`
}

type importResponse struct {
	State logql.State `json:"state"`
	URL   string      `json:"url"`
	// Query is the imported state compiled back into a logs query.
	Query string `json:"query"`
}

func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid JSON body; expected {\"query\": \"...\"}")
		return
	}

	state, err := logql.ImportQuery(req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorResponse(err))
		return
	}

	sess := drilldown.NewSession(r.Context())
	err = sess.Update(drilldown.StateChanged, func(tx *drilldown.Tx) error {
		tx.Replace(state)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, importResponse{
		State: snap.State,
		URL:   snap.URLValues().Encode(),
		Query: snap.QueryBuilder(logql.DetectedFields{}).LogsQuery(),
	})
}
