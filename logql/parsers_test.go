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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractParser(t *testing.T) {
	tests := []struct {
		name    string
		parsers []string
		want    Parser
	}{
		{"nil is structured metadata", nil, ParserStructuredMetadata},
		{"empty list", []string{}, ParserStructuredMetadata},
		{"blank entry", []string{""}, ParserStructuredMetadata},
		{"logfmt", []string{"logfmt"}, ParserLogfmt},
		{"json", []string{"json"}, ParserJSON},
		{"both", []string{"logfmt", "json"}, ParserMixed},
		{"comma separated", []string{"logfmt, json"}, ParserMixed},
		{"duplicates", []string{"json", "json"}, ParserJSON},
		{"metadata ignored", []string{"structuredMetadata", "logfmt"}, ParserLogfmt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractParser(tt.parsers))
		})
	}
}

func TestExtractParserFromArray(t *testing.T) {
	assert.Equal(t, ParserStructuredMetadata, ExtractParserFromArray(nil))
	assert.Equal(t, ParserMixed, ExtractParserFromArray([]Parser{ParserJSON, ParserLogfmt}))
	assert.Equal(t, ParserMixed, ExtractParserFromArray([]Parser{ParserMixed}))
	assert.Equal(t, ParserJSON, ExtractParserFromArray([]Parser{ParserStructuredMetadata, ParserJSON}))
	assert.Equal(t, ParserLogfmt, ExtractParserFromArray([]Parser{ParserLogfmt, ParserLogfmt}))
}

func TestParserStage(t *testing.T) {
	assert.Equal(t, "| logfmt", ParserStage(ParserLogfmt, ""))
	assert.Equal(t, "| json | drop __error__, __error_details__", ParserStage(ParserJSON, ""))
	assert.Equal(t, `| json a="[\"a\"]" | drop __error__, __error_details__`, ParserStage(ParserJSON, `a="[\"a\"]"`))
	assert.Equal(t, "| json | drop __error__, __error_details__ | logfmt | drop __error__, __error_details__",
		ParserStage(ParserMixed, ""))
	assert.Equal(t, "", ParserStage(ParserStructuredMetadata, ""))
	assert.True(t, ParserMixed.IncludesJSON())
	assert.False(t, ParserLogfmt.IncludesJSON())
}

func TestDetectedFields(t *testing.T) {
	d := DetectedFields{Fields: []DetectedField{
		{Label: "caller", Type: FieldTypeString, Parsers: []string{"logfmt"}},
		{Label: "pod", Type: FieldTypeString},
		{Label: "latency", Type: FieldTypeDuration, Parsers: []string{"json"}},
	}}

	f, ok := d.Find("caller")
	assert.True(t, ok)
	assert.Equal(t, ParserLogfmt, f.Parser())

	f, ok = d.Find("pod")
	assert.True(t, ok)
	assert.Equal(t, ParserStructuredMetadata, f.Parser())

	f, _ = d.Find("latency")
	assert.True(t, f.Type.IsNumeric())
	assert.False(t, FieldTypeInt.IsNumeric())

	_, ok = d.Find("missing")
	assert.False(t, ok)
}

func TestSortLabelsByCardinality(t *testing.T) {
	in := []DetectedLabel{
		{Label: "a", Cardinality: 1},
		{Label: "b", Cardinality: 5},
		{Label: "c", Cardinality: 1},
		{Label: "d", Cardinality: 3},
	}
	out := SortLabelsByCardinality(in)

	var names []string
	for _, l := range out {
		names = append(names, l.Label)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
	assert.Equal(t, "a", in[0].Label)
}
