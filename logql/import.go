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
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	lqllog "github.com/grafana/loki/v3/pkg/logql/log"
	"github.com/grafana/loki/v3/pkg/logql/syntax"
	"github.com/prometheus/prometheus/model/labels"

	"github.com/cardinalhq/logs-drilldown/filters"
)

// ImportQuery converts an existing query into filter state: stream matchers
// become Labels, line filters become LineFilters or Patterns, and label
// filters ahead of the first parser become Levels or Metadata. Metric
// queries are unwrapped to their first log selector. Pipeline stages that
// have no filter representation are dropped.
func ImportQuery(query string) (State, error) {
	expr, err := syntax.ParseExpr(macroReplacer.Replace(query))
	if err != nil {
		return State{}, fmt.Errorf("parse query: %w", err)
	}
	sel, ok := logSelectorOf(expr)
	if !ok {
		return State{}, fmt.Errorf("query %q has no log selector", query)
	}

	var state State
	for _, m := range sel.Matchers() {
		if m == nil || m.Name == labels.MetricName {
			continue
		}
		state.Labels = append(state.Labels, filters.Filter{
			Key:      m.Name,
			Operator: filters.OperatorFromMatchType(m.Type),
			Value:    m.Value,
			Custom:   m.Type == labels.MatchRegexp || m.Type == labels.MatchNotRegexp,
		})
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, lf := range syntax.ExtractLineFilters(sel) {
		importLineFilter(&state, lf, seen)
	}

	for _, lf := range syntax.ExtractLabelFiltersBeforeParser(sel) {
		if lf == nil {
			continue
		}
		f, ok := labelFilterOf(lf.LabelFilterer)
		if !ok {
			continue
		}
		if f.Key == filters.LevelKey {
			state.Levels = append(state.Levels, f)
			continue
		}
		f.ValueLabels = []string{f.Value}
		state.Metadata = append(state.Metadata, f)
	}
	return state, nil
}

// logSelectorOf finds the first log selector under e, left to right.
func logSelectorOf(e syntax.Expr) (syntax.LogSelectorExpr, bool) {
	switch v := e.(type) {
	case *syntax.RangeAggregationExpr:
		return logSelectorOf(v.Left)
	case *syntax.LogRangeExpr:
		return v.Left, v.Left != nil
	case *syntax.VectorAggregationExpr:
		return logSelectorOf(v.Left)
	case *syntax.BinOpExpr:
		if sel, ok := logSelectorOf(v.SampleExpr); ok {
			return sel, true
		}
		return logSelectorOf(v.RHS)
	case syntax.LogSelectorExpr:
		return v, true
	}
	return nil, false
}

// importLineFilter walks a line filter chain left to right. The traversal
// may report chained filters more than once, so entries are deduplicated by
// type and match. OR chains are only representable for include patterns.
func importLineFilter(state *State, lf syntax.LineFilterExpr, seen mapset.Set[string]) {
	if lf.Left != nil {
		importLineFilter(state, *lf.Left, seen)
	}
	first := func(ty lqllog.LineMatchType, match string) bool {
		return seen.Add(fmt.Sprintf("%d\x00%s", ty, match))
	}

	switch lf.Ty {
	case lqllog.LineMatchPattern:
		for or := &lf; or != nil; or = or.Or {
			if first(or.Ty, or.Match) {
				state.Patterns = append(state.Patterns, filters.Pattern{Type: filters.PatternInclude, Pattern: or.Match})
			}
		}
		return
	case lqllog.LineMatchNotPattern:
		if first(lf.Ty, lf.Match) {
			state.Patterns = append(state.Patterns, filters.Pattern{Type: filters.PatternExclude, Pattern: lf.Match})
		}
		return
	}
	if lf.Or != nil || lf.Match == "" || !first(lf.Ty, lf.Match) {
		return
	}

	var op filters.Operator
	switch lf.Ty {
	case lqllog.LineMatchEqual:
		op = filters.LineContains
	case lqllog.LineMatchNotEqual:
		op = filters.LineNotContains
	case lqllog.LineMatchRegexp:
		op = filters.LineRegex
	case lqllog.LineMatchNotRegexp:
		op = filters.LineNotRegex
	default:
		return
	}

	value, c := lf.Match, filters.CaseSensitive
	if op.IsRegex() {
		if rest, ok := strings.CutPrefix(value, "(?i)"); ok {
			value, c = rest, filters.CaseInsensitive
		}
	}
	state.LineFilters = append(state.LineFilters, filters.NewLineFilter(op, value, c))
}

// labelFilterOf converts a single label filter of the AST. Compound and
// IP filters have no filter representation and are rejected.
func labelFilterOf(lf lqllog.LabelFilterer) (filters.Filter, bool) {
	switch v := lf.(type) {
	case *lqllog.StringLabelFilter:
		return matcherFilter(v.Matcher)
	case *lqllog.LineFilterLabelFilter:
		return matcherFilter(v.Matcher)
	case *lqllog.NumericLabelFilter:
		return numericFilter(v.Name, v.Type, strconv.FormatFloat(v.Value, 'f', -1, 64))
	case *lqllog.DurationLabelFilter:
		return numericFilter(v.Name, v.Type, v.Value.String())
	case *lqllog.BytesLabelFilter:
		return numericFilter(v.Name, v.Type, strings.ReplaceAll(humanize.Bytes(v.Value), " ", ""))
	}
	return filters.Filter{}, false
}

func matcherFilter(m *labels.Matcher) (filters.Filter, bool) {
	if m == nil {
		return filters.Filter{}, false
	}
	op := filters.OperatorFromMatchType(m.Type)
	return filters.Filter{Key: m.Name, Operator: op, Value: m.Value, Custom: op.IsRegex()}, true
}

func numericFilter(name string, ty lqllog.LabelFilterType, value string) (filters.Filter, bool) {
	var op filters.Operator
	switch ty {
	case lqllog.LabelFilterEqual:
		op = filters.Equal
	case lqllog.LabelFilterNotEqual:
		op = filters.NotEqual
	case lqllog.LabelFilterGreaterThan:
		op = filters.GreaterThan
	case lqllog.LabelFilterGreaterThanOrEqual:
		op = filters.GreaterThanOrEqual
	case lqllog.LabelFilterLesserThan:
		op = filters.LessThan
	case lqllog.LabelFilterLesserThanOrEqual:
		op = filters.LessThanOrEqual
	default:
		return filters.Filter{}, false
	}
	return filters.Filter{Key: name, Operator: op, Value: value}, true
}
