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

// Package filters holds the ad-hoc filter model shared by every filter
// category: operators, categories, value encodings and the URL codec.
package filters

import (
	"fmt"
	"slices"

	"github.com/prometheus/prometheus/model/labels"
)

// Operator is the comparison a filter applies. Line filters reuse the
// negative operators and add their own match operators.
type Operator string

const (
	Equal              Operator = "="
	NotEqual           Operator = "!="
	RegexEqual         Operator = "=~"
	RegexNotEqual      Operator = "!~"
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="

	LineContains    Operator = "|="
	LineNotContains Operator = NotEqual
	LineRegex       Operator = "|~"
	LineNotRegex    Operator = RegexNotEqual
)

var knownOperators = []Operator{
	Equal, NotEqual, RegexEqual, RegexNotEqual,
	GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual,
	LineContains, LineRegex,
}

// ParseOperator returns the operator spelled by s.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if slices.Contains(knownOperators, op) {
		return op, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// IsRegex reports whether values for this operator are regular expressions.
func (o Operator) IsRegex() bool {
	return o == RegexEqual || o == RegexNotEqual || o == LineRegex
}

// IsNumeric reports whether o is one of the ordering comparisons.
func (o Operator) IsNumeric() bool {
	switch o {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	}
	return false
}

// IsInclusive reports whether o selects matching values rather than excluding them.
func (o Operator) IsInclusive() bool {
	return o == Equal || o == RegexEqual || o == LineContains || o == LineRegex
}

// MatchType maps label operators onto Prometheus matcher types.
func (o Operator) MatchType() (labels.MatchType, bool) {
	switch o {
	case Equal:
		return labels.MatchEqual, true
	case NotEqual:
		return labels.MatchNotEqual, true
	case RegexEqual:
		return labels.MatchRegexp, true
	case RegexNotEqual:
		return labels.MatchNotRegexp, true
	}
	return 0, false
}

// OperatorFromMatchType is the inverse of Operator.MatchType.
func OperatorFromMatchType(t labels.MatchType) Operator {
	switch t {
	case labels.MatchNotEqual:
		return NotEqual
	case labels.MatchRegexp:
		return RegexEqual
	case labels.MatchNotRegexp:
		return RegexNotEqual
	default:
		return Equal
	}
}

// Meta records how a field was extracted.
type Meta struct {
	Parser string `json:"parser,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Filter is a single ad-hoc filter. An empty Value means "no value"; on the
// wire it is written as EmptyValue. Custom marks user typed input whose
// regular expressions must be kept intact.
type Filter struct {
	Key         string   `json:"key"`
	Operator    Operator `json:"operator"`
	Value       string   `json:"value"`
	ValueLabels []string `json:"valueLabels,omitempty"`
	Custom      bool     `json:"custom,omitempty"`
	Meta        *Meta    `json:"meta,omitempty"`
}

// Matcher builds a Prometheus matcher for label operators, compiling regular
// expressions on the way.
func (f Filter) Matcher() (*labels.Matcher, error) {
	t, ok := f.Operator.MatchType()
	if !ok {
		return nil, fmt.Errorf("operator %q cannot be used as a label matcher", f.Operator)
	}
	return labels.NewMatcher(t, f.Key, f.Value)
}

// Label returns the first value label, falling back to the value.
func (f Filter) Label() string {
	if len(f.ValueLabels) > 0 {
		return f.ValueLabels[0]
	}
	return f.Value
}

// Clone returns a deep copy of f.
func (f Filter) Clone() Filter {
	out := f
	if f.ValueLabels != nil {
		out.ValueLabels = slices.Clone(f.ValueLabels)
	}
	if f.Meta != nil {
		m := *f.Meta
		out.Meta = &m
	}
	return out
}

// Equal reports whether f and o are the same filter.
func (f Filter) Equal(o Filter) bool {
	if f.Key != o.Key || f.Operator != o.Operator || f.Value != o.Value || f.Custom != o.Custom {
		return false
	}
	if !slices.Equal(f.ValueLabels, o.ValueLabels) {
		return false
	}
	switch {
	case f.Meta == nil || o.Meta == nil:
		return f.Meta == o.Meta
	default:
		return *f.Meta == *o.Meta
	}
}

// EqualAll reports whether two collections hold the same filters in the
// same order. nil and empty collections are equal.
func EqualAll(a, b []Filter) bool {
	return slices.EqualFunc(a, b, Filter.Equal)
}

// CloneAll deep copies a filter collection. A nil input stays nil.
func CloneAll(fs []Filter) []Filter {
	if fs == nil {
		return nil
	}
	out := make([]Filter, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}

// Keys returns the distinct keys of fs in first appearance order.
func Keys(fs []Filter) []string {
	var out []string
	for _, f := range fs {
		if !slices.Contains(out, f.Key) {
			out = append(out, f.Key)
		}
	}
	return out
}
