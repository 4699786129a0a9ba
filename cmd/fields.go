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
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/logs-drilldown/config"
	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

func init() {
	rootCmd.AddCommand(newFieldsCmd())
}

func newFieldsCmd() *cobra.Command {
	var (
		labels   bool
		lookback time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fields <selector>",
		Short: "List the detected fields or labels of a stream selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			setupLogging(c.ErrOrStderr(), cfg.Debug)

			client, err := lokiclient.New(lokiclient.Config{
				BaseURL: cfg.Loki.URL,
				Tenant:  cfg.Loki.Tenant,
				Timeout: cfg.Loki.Timeout,
			})
			if err != nil {
				return err
			}

			now := time.Now()
			r := lokiclient.TimeRange{Start: now.Add(-lookback), End: now}
			if labels {
				ls, err := client.DetectedLabels(c.Context(), args[0], r)
				if err != nil {
					return err
				}
				return printLabels(c.OutOrStdout(), ls)
			}
			df, err := client.DetectedFields(c.Context(), args[0], r)
			if err != nil {
				return err
			}
			return printFields(c.OutOrStdout(), df)
		},
	}
	cmd.Flags().BoolVar(&labels, "labels", false, "list detected labels instead of fields")
	cmd.Flags().DurationVar(&lookback, "since", time.Hour, "how far back to look")
	return cmd
}

func printFields(out io.Writer, df logql.DetectedFields) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "FIELD\tTYPE\tCARDINALITY\tPARSER\tJSON_PATH"); err != nil {
		return err
	}
	for _, f := range df.Fields {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			f.Label, f.Type, f.Cardinality, f.Parser(), strings.Join(f.JSONPath, ".")); err != nil {
			return err
		}
	}
	return w.Flush()
}

func printLabels(out io.Writer, ls []logql.DetectedLabel) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "LABEL\tCARDINALITY"); err != nil {
		return err
	}
	for _, l := range ls {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", l.Label, l.Cardinality); err != nil {
			return err
		}
	}
	return w.Flush()
}
