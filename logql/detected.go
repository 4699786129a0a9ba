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
	"slices"
)

// FieldType is the value type Loki detected for a field.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInt      FieldType = "int"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBytes    FieldType = "bytes"
	FieldTypeDuration FieldType = "duration"
	FieldTypeBoolean  FieldType = "boolean"
)

// IsNumeric reports whether the field is aggregated by unwrapping its value.
// int is counted like a string.
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeFloat || t == FieldTypeBytes || t == FieldTypeDuration
}

// DetectedField is one entry of a detected_fields response.
type DetectedField struct {
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Cardinality uint64    `json:"cardinality"`
	Parsers     []string  `json:"parsers"`
	JSONPath    []string  `json:"jsonPath,omitempty"`
}

// Parser resolves the parser of the field.
func (f DetectedField) Parser() Parser {
	return ExtractParser(f.Parsers)
}

// DetectedFields is the decoded detected_fields response.
type DetectedFields struct {
	Fields []DetectedField `json:"fields"`
}

// Find looks a field up by label.
func (d DetectedFields) Find(label string) (DetectedField, bool) {
	idx := slices.IndexFunc(d.Fields, func(f DetectedField) bool { return f.Label == label })
	if idx < 0 {
		return DetectedField{}, false
	}
	return d.Fields[idx], true
}

// DetectedLabel is one entry of a detected_labels response.
type DetectedLabel struct {
	Label       string `json:"label"`
	Cardinality uint64 `json:"cardinality"`
}

// SortLabelsByCardinality orders label suggestions so labels with a single
// value come last. The order is otherwise kept.
func SortLabelsByCardinality(ls []DetectedLabel) []DetectedLabel {
	out := slices.Clone(ls)
	slices.SortStableFunc(out, func(a, b DetectedLabel) int {
		switch {
		case a.Cardinality == 1 && b.Cardinality != 1:
			return 1
		case b.Cardinality == 1 && a.Cardinality != 1:
			return -1
		default:
			return 0
		}
	})
	return out
}
