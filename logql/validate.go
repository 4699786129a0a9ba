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


package logql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/loki/v3/pkg/logql/syntax"
	"github.com/grafana/loki/v3/pkg/logqlmodel"
)

// macroReplacer substitutes the Grafana interval macros with a literal Loki
// accepts so templated queries parse.
var macroReplacer = strings.NewReplacer(
	"${__auto}", "1m",
	"${__interval}", "1m",
	"${__range}", "1m",
	AutoRange, "1m",
	"$__interval", "1m",
	"$__range", "1m",
)

// ValidationError describes why a query does not parse.
type ValidationError struct {
	Message string `json:"error"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	// Near is a slice of the query around the error position.
	Near string `json:"near,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (line %d, col %d)", e.Message, e.Line, e.Column)
}

// Pos returns the error position as "line:col".
func (e *ValidationError) Pos() string {
	return strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column)
}

// Validate parses query with the Loki parser after substituting interval
// macros. Parse failures are returned as *ValidationError.
func Validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{Message: "empty query"}
	}
	expanded := macroReplacer.Replace(query)
	_, err := syntax.ParseExpr(expanded)
	if err == nil {
		return nil
	}

	var pe logqlmodel.ParseError
	if errors.As(err, &pe) {
		line, col := parseErrorPosition(pe.Error())
		return &ValidationError{
			Message: pe.Error(),
			Line:    line,
			Column:  col,
			Near:    sliceSafe(expanded, col-10, col+10),
		}
	}
	return &ValidationError{Message: err.Error()}
}

// parseErrorPosition extracts line and column from messages of the form
// "parse error at line X, col Y: message". Both default to 1.
func parseErrorPosition(errMsg string) (line, col int) {
	line, col = 1, 1

	parts := strings.SplitN(errMsg, "at line ", 2)
	if len(parts) < 2 {
		return
	}
	lineCol := strings.SplitN(parts[1], ", col ", 2)
	if len(lineCol) < 2 {
		return
	}
	if l, err := strconv.Atoi(strings.TrimSpace(lineCol[0])); err == nil {
		line = l
	}
	colPart, _, _ := strings.Cut(lineCol[1], ":")
	if c, err := strconv.Atoi(strings.TrimSpace(colPart)); err == nil {
		col = c
	}
	return
}

func sliceSafe(s string, start, end int) string {
	start = max(start, 0)
	end = min(end, len(s))
	if start >= end {
		return ""
	}
	return s[start:end]
}
