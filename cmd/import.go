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


package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/logs-drilldown/drilldown"
	"github.com/cardinalhq/logs-drilldown/logql"
)

type importOutput struct {
	State logql.State `json:"state"`
	URL   string      `json:"url"`
	Query string      `json:"query"`
}

func init() {
	rootCmd.AddCommand(newImportCmd())
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [query]",
		Short: "Convert a LogQL query into drill-down state",
		Long: `Convert the stream selector, line filters, patterns and label filters of a
LogQL query into drill-down state, printed as JSON with its persisted URL
form. The query is read from stdin when no argument or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			query, err := queryArg(c, args)
			if err != nil {
				return err
			}
			state, err := logql.ImportQuery(query)
			if err != nil {
				return err
			}

			sess := drilldown.NewSession(c.Context())
			err = sess.Update(drilldown.StateChanged, func(tx *drilldown.Tx) error {
				tx.Replace(state)
				return nil
			})
			if err != nil {
				return err
			}
			snap := sess.Snapshot()

			out := importOutput{
				State: snap.State,
				URL:   snap.URLValues().Encode(),
				Query: snap.QueryBuilder(logql.DetectedFields{}).LogsQuery(),
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write state: %w", err)
			}
			return nil
		},
	}
}
