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
	"slices"

	"github.com/cardinalhq/logs-drilldown/filters"
)

// State is the full set of filter collections a query is compiled from.
type State struct {
	Labels      []filters.Filter  `json:"labels,omitempty"`
	Fields      []filters.Filter  `json:"fields,omitempty"`
	Metadata    []filters.Filter  `json:"metadata,omitempty"`
	Levels      []filters.Filter  `json:"levels,omitempty"`
	LineFilters []filters.Filter  `json:"lineFilters,omitempty"`
	Patterns    []filters.Pattern `json:"patterns,omitempty"`
	JSONFields  []filters.Filter  `json:"jsonFields,omitempty"`
	LineFormat  []filters.Filter  `json:"lineFormat,omitempty"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		Labels:      filters.CloneAll(s.Labels),
		Fields:      filters.CloneAll(s.Fields),
		Metadata:    filters.CloneAll(s.Metadata),
		Levels:      filters.CloneAll(s.Levels),
		LineFilters: filters.CloneAll(s.LineFilters),
		Patterns:    slices.Clone(s.Patterns),
		JSONFields:  filters.CloneAll(s.JSONFields),
		LineFormat:  filters.CloneAll(s.LineFormat),
	}
}

// Get returns the collection stored for c. The merged Fields+Metadata view
// reads as metadata followed by fields.
func (s State) Get(c filters.Category) ([]filters.Filter, error) {
	switch c {
	case filters.Labels:
		return s.Labels, nil
	case filters.Fields:
		return s.Fields, nil
	case filters.Metadata:
		return s.Metadata, nil
	case filters.Levels:
		return s.Levels, nil
	case filters.LineFilters:
		return s.LineFilters, nil
	case filters.JSONFields:
		return s.JSONFields, nil
	case filters.LineFormat:
		return s.LineFormat, nil
	case filters.FieldsAndMetadata:
		return append(filters.CloneAll(s.Metadata), filters.CloneAll(s.Fields)...), nil
	}
	return nil, fmt.Errorf("%w: %q has no filter collection", filters.ErrUnknownCategory, c)
}

// Set replaces the collection stored for c. The merged view and patterns are
// not writable through Set.
func (s *State) Set(c filters.Category, fs []filters.Filter) error {
	switch c {
	case filters.Labels:
		s.Labels = fs
	case filters.Fields:
		s.Fields = fs
	case filters.Metadata:
		s.Metadata = fs
	case filters.Levels:
		s.Levels = fs
	case filters.LineFilters:
		s.LineFilters = fs
	case filters.JSONFields:
		s.JSONFields = fs
	case filters.LineFormat:
		s.LineFormat = fs
	default:
		return fmt.Errorf("%w: %q is not a writable filter collection", filters.ErrUnknownCategory, c)
	}
	return nil
}
