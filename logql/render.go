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
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/cardinalhq/logs-drilldown/filters"
)

// Every renderer is total: an empty collection renders as "" and filters a
// category cannot express are skipped.

// numericLiteral accepts the number, duration and bytes literals LogQL
// allows on the right hand side of a comparison.
var numericLiteral = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([a-zA-Zµ]+[0-9]*)*$`)

// LabelSelector renders the stream selector including braces.
func LabelSelector(fs []filters.Filter, ignoreKeys ...string) string {
	return "{" + RenderLabels(fs, ignoreKeys...) + "}"
}

// RenderLabels renders stream matchers joined by commas, without braces.
// Several equality filters on one key become one regex alternation.
func RenderLabels(fs []filters.Filter, ignoreKeys ...string) string {
	var parts []string
	combined := map[string]bool{}
	for _, f := range fs {
		if slices.Contains(ignoreKeys, f.Key) {
			continue
		}
		if _, ok := f.Operator.MatchType(); !ok {
			continue
		}
		if f.Operator == filters.Equal {
			if combined[f.Key] {
				continue
			}
			combined[f.Key] = true
			if values := equalValues(fs, f.Key, plainValue); len(values) > 1 {
				parts = append(parts, fmt.Sprintf(`%s=~"%s"`, f.Key, joinRegex(values)))
				continue
			}
		}
		parts = append(parts, fmt.Sprintf(`%s%s"%s"`, f.Key, f.Operator, escapeValue(f, f.Value)))
	}
	return strings.Join(parts, ", ")
}

// RenderFields renders parsed field filters as label filter stages. Values
// are read from their parser envelopes.
func RenderFields(fs []filters.Filter, ignoreKeys ...string) string {
	return renderPipeline(fs, filters.FieldFilterValue, ignoreKeys)
}

// RenderMetadata renders structured metadata filters as label filter stages.
func RenderMetadata(fs []filters.Filter, ignoreKeys ...string) string {
	return renderPipeline(fs, plainValue, ignoreKeys)
}

// RenderLevels renders level filters. The key is always detected_level and
// several included levels become one regex alternation.
func RenderLevels(fs []filters.Filter, ignoreKeys ...string) string {
	if slices.Contains(ignoreKeys, filters.LevelKey) {
		return ""
	}
	var parts []string
	combined := false
	for _, f := range fs {
		switch {
		case f.Operator == filters.Equal:
			if combined {
				continue
			}
			combined = true
			var values []string
			for _, g := range fs {
				if g.Operator == filters.Equal {
					values = append(values, g.Value)
				}
			}
			if len(values) == 1 {
				parts = append(parts, fmt.Sprintf(`| %s="%s"`, filters.LevelKey, EscapeExact(values[0])))
			} else {
				parts = append(parts, fmt.Sprintf(`| %s=~"%s"`, filters.LevelKey, joinRegex(values)))
			}
		case isLabelOperator(f.Operator):
			parts = append(parts, fmt.Sprintf(`| %s%s"%s"`, filters.LevelKey, f.Operator, escapeValue(f, f.Value)))
		}
	}
	return strings.Join(parts, " ")
}

// RenderLineFilters renders line filters. The caseInsensitive key turns the
// value into a (?i) regex, switching |= and != to |~ and !~.
func RenderLineFilters(fs []filters.Filter) string {
	var parts []string
	for _, f := range fs {
		if f.Value == "" {
			continue
		}
		switch f.Operator {
		case filters.LineContains, filters.LineNotContains, filters.LineRegex, filters.LineNotRegex:
			op, value := EscapeLineFilter(f)
			parts = append(parts, fmt.Sprintf(`%s "%s"`, op, value))
		}
	}
	return strings.Join(parts, " ")
}

// RenderPatterns renders applied patterns: one !> per excluded pattern, then
// a single |> stage OR-ing every included pattern.
func RenderPatterns(ps []filters.Pattern) string {
	var excludes, includes []string
	for _, p := range ps {
		quoted := `"` + EscapeExact(p.Pattern) + `"`
		switch p.Type {
		case filters.PatternExclude:
			excludes = append(excludes, "!> "+quoted)
		case filters.PatternInclude:
			includes = append(includes, quoted)
		}
	}
	parts := excludes
	if len(includes) > 0 {
		parts = append(parts, "|> "+strings.Join(includes, " or "))
	}
	return strings.Join(parts, " ")
}

// RenderJSONFields renders JSON parser props as json stage arguments.
func RenderJSONFields(fs []filters.Filter) string {
	var parts []string
	for _, f := range fs {
		if f.Key == "" || f.Value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s="%s"`, f.Key, EscapeExact(f.Value)))
	}
	return strings.Join(parts, ", ")
}

// RenderLineFormat replaces the line with the drilled down JSON node.
func RenderLineFormat(fs []filters.Filter) string {
	if len(fs) == 0 {
		return ""
	}
	return fmt.Sprintf(`| line_format "{{.%s}}"`, JSONLabelKey(PathOf(fs)))
}

// PathOf returns the keys of a drill-down chain.
func PathOf(fs []filters.Filter) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Key)
	}
	return out
}

func renderPipeline(fs []filters.Filter, value func(filters.Filter) string, ignoreKeys []string) string {
	var parts []string
	combined := map[string]bool{}
	for _, f := range fs {
		if slices.Contains(ignoreKeys, f.Key) {
			continue
		}
		switch {
		case f.Operator.IsNumeric():
			v := strings.TrimSpace(value(f))
			if !numericLiteral.MatchString(v) {
				continue
			}
			parts = append(parts, fmt.Sprintf("| %s%s%s", f.Key, f.Operator, v))
		case f.Operator == filters.Equal:
			if combined[f.Key] {
				continue
			}
			combined[f.Key] = true
			var ors []string
			for _, v := range equalValues(fs, f.Key, value) {
				ors = append(ors, fmt.Sprintf(`%s="%s"`, f.Key, EscapeExact(v)))
			}
			parts = append(parts, "| "+strings.Join(ors, " or "))
		case isLabelOperator(f.Operator):
			parts = append(parts, fmt.Sprintf(`| %s%s"%s"`, f.Key, f.Operator, escapeValue(f, value(f))))
		}
	}
	return strings.Join(parts, " ")
}

func equalValues(fs []filters.Filter, key string, value func(filters.Filter) string) []string {
	var out []string
	for _, f := range fs {
		if f.Key == key && f.Operator == filters.Equal {
			out = append(out, value(f))
		}
	}
	return out
}

func joinRegex(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeRegex(v)
	}
	return strings.Join(escaped, "|")
}

func isLabelOperator(op filters.Operator) bool {
	_, ok := op.MatchType()
	return ok
}

func plainValue(f filters.Filter) string {
	return f.Value
}
