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
	"errors"
	"fmt"
)

// Category names a filter collection. The string value is the name used in
// persisted URL state (var-<category>).
type Category string

const (
	Labels      Category = "filters"
	Fields      Category = "fields"
	Metadata    Category = "metadata"
	Levels      Category = "levels"
	LineFilters Category = "lineFilters"
	Patterns    Category = "patterns"
	JSONFields  Category = "jsonFields"
	LineFormat  Category = "lineFormat"

	// FieldsAndMetadata is the merged view over Metadata and Fields. It has no
	// storage of its own.
	FieldsAndMetadata Category = "all-fields"
)

// ErrUnknownCategory is returned when a category name is not recognised or an
// operation is not defined for it.
var ErrUnknownCategory = errors.New("unknown filter category")

// AdHocCategories are the categories stored as filter collections, in
// rendering order.
var AdHocCategories = []Category{Labels, Fields, Metadata, Levels, LineFilters, JSONFields, LineFormat}

// ParseCategory resolves a persisted category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	switch c {
	case Labels, Fields, Metadata, Levels, LineFilters, Patterns, JSONFields, LineFormat, FieldsAndMetadata:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// URLParam is the query parameter holding the category in persisted state.
func (c Category) URLParam() string {
	return "var-" + string(c)
}

// LevelKey is the reserved key for log levels.
const LevelKey = "detected_level"

// LineFilterCase is stored in the key of a line filter. Exactly two sentinel
// keys exist; their names are part of the persisted format.
type LineFilterCase string

const (
	CaseSensitive   LineFilterCase = "caseSensitive"
	CaseInsensitive LineFilterCase = "caseInsensitive"
)

// LineFilterCaseOf reports the case handling of a line filter.
func LineFilterCaseOf(f Filter) LineFilterCase {
	if f.Key == string(CaseInsensitive) {
		return CaseInsensitive
	}
	return CaseSensitive
}

// NewLineFilter builds a line filter.
func NewLineFilter(op Operator, value string, c LineFilterCase) Filter {
	return Filter{Key: string(c), Operator: op, Value: value}
}
