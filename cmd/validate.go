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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/logs-drilldown/logql"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [query]",
		Short: "Check that a LogQL query parses",
		Long:  "Check that a LogQL query parses. The query is read from stdin when no argument or \"-\" is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			query, err := queryArg(c, args)
			if err != nil {
				return err
			}

			err = logql.Validate(query)
			if err == nil {
				_, err = fmt.Fprintln(c.OutOrStdout(), "valid")
				return err
			}

			var ve *logql.ValidationError
			if errors.As(err, &ve) && ve.Line > 0 {
				_, _ = fmt.Fprintf(c.OutOrStdout(), "invalid at %s: %s\n", ve.Pos(), ve.Message)
				if ve.Near != "" {
					_, _ = fmt.Fprintf(c.OutOrStdout(), "near: %s\n", ve.Near)
				}
			} else {
				_, _ = fmt.Fprintf(c.OutOrStdout(), "invalid: %s\n", err)
			}
			return err
		},
	}
}

// queryArg returns the query argument, reading stdin for none or "-".
func queryArg(c *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	raw, err := io.ReadAll(c.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
