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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/logs-drilldown/config"
	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
	"github.com/cardinalhq/logs-drilldown/metadata"
	"github.com/cardinalhq/logs-drilldown/queryapi"
)

type compileOptions struct {
	statePath   string
	fieldsPath  string
	urlState    string
	kind        string
	key         string
	category    string
	queryRange  string
	start       string
	end         string
	fetchFields bool
}

func init() {
	rootCmd.AddCommand(newCompileCmd())
}

func newCompileCmd() *cobra.Command {
	var opts compileOptions
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile drill-down state into a LogQL query",
		Long: `Compile drill-down state into the LogQL query of one panel.

State is read from a JSON or YAML file (--state), from persisted URL
parameters (--url), or both; the file is applied last. Parsers of field
filters are resolved from --fields, from Loki with --fetch-fields, or from
the filters themselves.`,
		Example: `  logs-drilldown compile --url 'var-filters=service_name|=|api&var-levels=detected_level|=|error'
  logs-drilldown compile --state state.yaml --kind field --key caller --fetch-fields`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			setupLogging(c.ErrOrStderr(), cfg.Debug)

			query, err := runCompile(c.Context(), cfg, opts)
			if query != "" {
				if _, werr := fmt.Fprintln(c.OutOrStdout(), query); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.statePath, "state", "", "JSON or YAML file holding the filter state")
	f.StringVar(&opts.fieldsPath, "fields", "", "JSON or YAML file holding a detected_fields response")
	f.StringVar(&opts.urlState, "url", "", "persisted var-<category> URL parameters")
	f.StringVar(&opts.kind, "kind", string(queryapi.KindLogs), "query to compile: logs, field, label, levels or values")
	f.StringVar(&opts.key, "key", "", "field or label for breakdown and values queries")
	f.StringVar(&opts.category, "category", "", "filter category for values queries")
	f.StringVar(&opts.queryRange, "range", "", "range selector of metric queries (default from config)")
	f.StringVar(&opts.start, "start", "", "start of the detected fields lookup")
	f.StringVar(&opts.end, "end", "", "end of the detected fields lookup")
	f.BoolVar(&opts.fetchFields, "fetch-fields", false, "look detected fields up in Loki")
	return cmd
}

func runCompile(ctx context.Context, cfg *config.Config, opts compileOptions) (string, error) {
	if opts.statePath == "" && opts.urlState == "" {
		return "", errors.New("one of --state or --url is required")
	}

	req := queryapi.CompileRequest{
		URL:      opts.urlState,
		Kind:     queryapi.QueryKind(opts.kind),
		Key:      opts.key,
		Category: opts.category,
		Range:    opts.queryRange,
		Start:    opts.start,
		End:      opts.end,
	}
	if opts.statePath != "" {
		var state logql.State
		if err := readDocument(opts.statePath, &state); err != nil {
			return "", err
		}
		req.State = &state
	}
	if opts.fieldsPath != "" {
		var df logql.DetectedFields
		if err := readDocument(opts.fieldsPath, &df); err != nil {
			return "", err
		}
		req.DetectedFields = &df
	}

	svcCfg := queryapi.Config{Range: cfg.Query.Range}
	if opts.fetchFields {
		client, err := lokiclient.New(lokiclient.Config{
			BaseURL: cfg.Loki.URL,
			Tenant:  cfg.Loki.Tenant,
			Timeout: cfg.Loki.Timeout,
		})
		if err != nil {
			return "", err
		}
		meta := metadata.New(client, cfg.Metadata.TTL)
		defer meta.Close()
		svcCfg.Metadata = meta
	}
	svc := queryapi.NewService(svcCfg)
	defer svc.Close()

	compiled, err := svc.Compile(ctx, req, time.Now())
	if err != nil {
		return "", err
	}
	for _, w := range compiled.Warnings {
		slog.Warn("Skipped persisted filter", slog.String("error", w))
	}
	if err := logql.Validate(compiled.Query); err != nil {
		return compiled.Query, fmt.Errorf("compiled query does not parse: %w", err)
	}
	return compiled.Query, nil
}
