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

package filters

import (
	"fmt"
	"slices"
)

// FilterType is the kind of interaction that adds a filter.
type FilterType string

const (
	Include FilterType = "include"
	Exclude FilterType = "exclude"
	Toggle  FilterType = "toggle"
	Clear   FilterType = "clear"
)

// ParseFilterType resolves an interaction name.
func ParseFilterType(s string) (FilterType, error) {
	switch t := FilterType(s); t {
	case Include, Exclude, Toggle, Clear:
		return t, nil
	}
	return "", fmt.Errorf("unknown filter type %q", s)
}

func (t FilterType) operator() Operator {
	if t == Exclude {
		return NotEqual
	}
	return Equal
}

func opposite(op Operator) Operator {
	if op == NotEqual {
		return Equal
	}
	return NotEqual
}

func sameValue(category Category, a, b Filter) bool {
	if category == Fields {
		return FieldFilterValue(a) == FieldFilterValue(b)
	}
	return a.Value == b.Value
}

// Add applies an interaction of type typ for f to the collection fs and
// returns the new collection; fs is not modified. The operator of f is
// derived from typ.
//
// Toggle removes an identical inclusive filter or adds one. Include and
// Exclude replace filters on the same key using the opposite operator, so a
// key is never included and excluded at once. Levels only replace the
// opposite filter for the same value. Clear drops every filter for the key.
func Add(fs []Filter, category Category, f Filter, typ FilterType) []Filter {
	out := CloneAll(fs)

	switch typ {
	case Clear:
		return slices.DeleteFunc(out, func(x Filter) bool { return x.Key == f.Key })
	case Toggle:
		idx := slices.IndexFunc(out, func(x Filter) bool {
			return x.Key == f.Key && x.Operator == Equal && sameValue(category, x, f)
		})
		if idx >= 0 {
			return slices.Delete(out, idx, idx+1)
		}
		typ = Include
	}

	f = f.Clone()
	f.Operator = typ.operator()

	if slices.ContainsFunc(out, func(x Filter) bool {
		return x.Key == f.Key && x.Operator == f.Operator && sameValue(category, x, f)
	}) {
		return out
	}

	opp := opposite(f.Operator)
	out = slices.DeleteFunc(out, func(x Filter) bool {
		if x.Key != f.Key || x.Operator != opp {
			return false
		}
		return category != Levels || sameValue(category, x, f)
	})
	return append(out, f)
}

// AddFilter is Add for a plain key/value pair.
func AddFilter(fs []Filter, category Category, key, value string, typ FilterType) []Filter {
	return Add(fs, category, Filter{Key: key, Value: value, ValueLabels: []string{value}}, typ)
}

// AddFieldFilter is Add for a parsed field, wrapping value in the parser
// envelope.
func AddFieldFilter(fs []Filter, key, parser, value string, typ FilterType) []Filter {
	return Add(fs, Fields, NewFieldFilter(key, Equal, parser, value), typ)
}
