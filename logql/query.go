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
	"log/slog"
	"slices"
	"strings"

	"github.com/cardinalhq/logs-drilldown/filters"
)

// AutoRange is the range Grafana substitutes with the panel interval.
const AutoRange = "$__auto"

// ErrMissingBreakdownValue is returned when a breakdown query is requested
// without the field or label to break down by.
var ErrMissingBreakdownValue = errors.New("breakdown value missing")

// QueryBuilder compiles a State into LogQL. Stage order is fixed: stream
// selector, parser stage, existence check, fields, metadata, levels,
// patterns, line filters, line format.
type QueryBuilder struct {
	State          State
	DetectedFields DetectedFields
	// Range is the range vector selector of metric queries, AutoRange when
	// empty.
	Range  string
	Logger *slog.Logger
}

// NewQueryBuilder returns a builder for state using detected to resolve
// field parsers.
func NewQueryBuilder(state State, detected DetectedFields) *QueryBuilder {
	return &QueryBuilder{State: state, DetectedFields: detected}
}

// LogsQuery renders the query of the logs panel.
func (b *QueryBuilder) LogsQuery() string {
	return b.expr(exprOptions{lineFormat: true})
}

// FieldBreakdownQuery renders the query of the breakdown panel for a parsed
// field or structured metadata key. Numeric fields are averaged instead of
// counted by value.
func (b *QueryBuilder) FieldBreakdownQuery(key string) (string, error) {
	if key == "" {
		return "", ErrMissingBreakdownValue
	}
	expr := b.expr(exprOptions{field: key})
	df, _ := b.DetectedFields.Find(key)

	switch df.Type {
	case FieldTypeDuration, FieldTypeBytes:
		return fmt.Sprintf(`avg_over_time(%s | unwrap %s(%s) | __error__="" %s) by ()`, expr, df.Type, key, b.rangeSelector()), nil
	case FieldTypeFloat:
		return fmt.Sprintf(`avg_over_time(%s | unwrap %s | __error__="" %s) by ()`, expr, key, b.rangeSelector()), nil
	default:
		return fmt.Sprintf(`sum by (%s) (count_over_time(%s %s))`, key, expr, b.rangeSelector()), nil
	}
}

// LabelBreakdownQuery renders the query of the breakdown panel for a stream
// label. The label's own matchers are replaced by an existence check.
func (b *QueryBuilder) LabelBreakdownQuery(label string) (string, error) {
	if label == "" {
		return "", ErrMissingBreakdownValue
	}
	expr := b.expr(exprOptions{label: label})
	return fmt.Sprintf(`sum by (%s) (count_over_time(%s %s))`, label, expr, b.rangeSelector()), nil
}

// LevelsVolumeQuery renders the log volume by level, ignoring level filters.
func (b *QueryBuilder) LevelsVolumeQuery() string {
	expr := b.expr(exprOptions{ignoreKeys: []string{filters.LevelKey}})
	return fmt.Sprintf(`sum by (%s) (count_over_time(%s %s))`, filters.LevelKey, expr, b.rangeSelector())
}

// FieldValuesQuery renders the expression used to look up the values of key
// in category c, leaving out the filters on key itself so a value picker is
// not narrowed by its own selection.
func (b *QueryBuilder) FieldValuesQuery(c filters.Category, key string) (string, error) {
	if key == "" {
		return "", ErrMissingBreakdownValue
	}
	switch c {
	case filters.Labels:
		return b.expr(exprOptions{ignoreKeys: []string{key}}), nil
	case filters.Fields, filters.Metadata, filters.Levels, filters.FieldsAndMetadata:
		return b.expr(exprOptions{field: key}), nil
	}
	return "", fmt.Errorf("%w: no values provider for %q", filters.ErrUnknownCategory, c)
}

type exprOptions struct {
	ignoreKeys []string
	// field is the parsed field being broken down; its parser joins the
	// parser union and an existence check follows the parser stage.
	field string
	// label is the stream label being broken down.
	label      string
	lineFormat bool
}

func (b *QueryBuilder) expr(opts exprOptions) string {
	ignore := slices.Clone(opts.ignoreKeys)
	if opts.field != "" {
		ignore = append(ignore, opts.field)
	}

	parsers := b.activeParsers()
	var fieldParser Parser
	if opts.field != "" {
		fieldParser = b.parserForField(opts.field)
		parsers = append(parsers, fieldParser)
	}
	if opts.lineFormat && len(b.State.LineFormat) > 0 {
		parsers = append(parsers, ParserJSON)
	}
	parser := ExtractParserFromArray(parsers)

	var jsonArgs string
	if parser.IncludesJSON() {
		jsonArgs = b.jsonArgs(opts, fieldParser)
	}

	parts := []string{b.selector(opts), ParserStage(parser, jsonArgs)}
	if opts.field != "" {
		parts = append(parts, fmt.Sprintf(`| %s!=""`, opts.field))
	}
	parts = append(parts,
		RenderFields(b.State.Fields, ignore...),
		// Level filters mirrored into metadata render with the levels.
		RenderMetadata(b.State.Metadata, append(slices.Clone(ignore), filters.LevelKey)...),
		RenderLevels(b.State.Levels, ignore...),
		RenderPatterns(b.State.Patterns),
		RenderLineFilters(b.State.LineFilters),
	)
	if opts.lineFormat {
		parts = append(parts, RenderLineFormat(b.State.LineFormat))
	}
	return joinNonEmpty(parts)
}

func (b *QueryBuilder) selector(opts exprOptions) string {
	if opts.label == "" {
		return LabelSelector(b.State.Labels, opts.ignoreKeys...)
	}
	matchers := RenderLabels(b.State.Labels, append(slices.Clone(opts.ignoreKeys), opts.label)...)
	if matchers != "" {
		matchers += ", "
	}
	return "{" + matchers + opts.label + `!=""}`
}

// activeParsers returns the parser of every active Fields filter.
func (b *QueryBuilder) activeParsers() []Parser {
	out := make([]Parser, 0, len(b.State.Fields))
	for _, f := range b.State.Fields {
		if p := filters.FieldFilterParser(f); p != "" {
			out = append(out, Parser(p))
			continue
		}
		out = append(out, b.parserForField(f.Key))
	}
	return out
}

// parserForField resolves the parser of key from detected fields, then from
// the filters on key. Without either it falls back to mixed.
func (b *QueryBuilder) parserForField(key string) Parser {
	if df, ok := b.DetectedFields.Find(key); ok {
		return df.Parser()
	}
	for _, f := range b.State.Fields {
		if f.Key != key {
			continue
		}
		if p := filters.FieldFilterParser(f); p != "" {
			return Parser(p)
		}
	}
	b.logger().Warn("No parser information for field, falling back to mixed", slog.String("field", key))
	return ParserMixed
}

// jsonArgs returns the label extraction arguments of the json stage. The
// json parser only extracts listed labels once arguments are given, so they
// are emitted only when every label the query needs has a recorded path.
func (b *QueryBuilder) jsonArgs(opts exprOptions, fieldParser Parser) string {
	props := make(map[string]bool, len(b.State.JSONFields))
	for _, f := range b.State.JSONFields {
		props[f.Key] = true
	}

	var args []filters.Filter
	if opts.field != "" && fieldParser == ParserJSON {
		df, ok := b.DetectedFields.Find(opts.field)
		if !ok || len(df.JSONPath) == 0 {
			b.logger().Warn("No JSON path for field, skipping json stage arguments", slog.String("field", opts.field))
			return ""
		}
		args = append(args, filters.Filter{Key: opts.field, Value: JSONPathArraySyntax(df.JSONPath)})
	}

	for _, f := range b.State.Fields {
		if f.Key == opts.field || props[f.Key] {
			continue
		}
		if len(args) > 0 || len(props) > 0 {
			b.logger().Warn("No JSON path recorded for active field filter, skipping json stage arguments",
				slog.String("field", f.Key))
		}
		return ""
	}
	if opts.lineFormat && len(b.State.LineFormat) > 0 && !props[JSONLabelKey(PathOf(b.State.LineFormat))] {
		return ""
	}

	for _, f := range b.State.JSONFields {
		if f.Key != opts.field {
			args = append(args, f)
		}
	}
	return RenderJSONFields(args)
}

func (b *QueryBuilder) rangeSelector() string {
	r := b.Range
	if r == "" {
		r = AutoRange
	}
	return "[" + r + "]"
}

func (b *QueryBuilder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
