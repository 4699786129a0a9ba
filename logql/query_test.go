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
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/logs-drilldown/filters"
)

var serviceAPI = filters.Filter{Key: "service_name", Operator: filters.Equal, Value: "api", ValueLabels: []string{"api"}}

func newTestBuilder(state State, fields ...DetectedField) *QueryBuilder {
	b := NewQueryBuilder(state, DetectedFields{Fields: fields})
	b.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return b
}

func TestFieldBreakdownQuery_ParserPerDetectedField(t *testing.T) {
	tests := []struct {
		name  string
		field DetectedField
		want  string
	}{
		{
			"logfmt",
			DetectedField{Label: "caller", Type: FieldTypeString, Parsers: []string{"logfmt"}},
			`{service_name="api"} | logfmt | caller!=""`,
		},
		{
			"json with path",
			DetectedField{Label: "caller", Type: FieldTypeString, Parsers: []string{"json"}, JSONPath: []string{"root", "caller-path"}},
			`{service_name="api"} | json caller="[\"root\"][\"caller-path\"]" | drop __error__, __error_details__ | caller!=""`,
		},
		{
			"mixed",
			DetectedField{Label: "caller", Type: FieldTypeString, Parsers: []string{"logfmt, json"}},
			`{service_name="api"} | json | drop __error__, __error_details__ | logfmt | drop __error__, __error_details__ | caller!=""`,
		},
		{
			"structured metadata",
			DetectedField{Label: "caller", Type: FieldTypeString, Parsers: []string{""}},
			`{service_name="api"} | caller!=""`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(State{Labels: []filters.Filter{serviceAPI}}, tt.field)
			q, err := b.FieldBreakdownQuery("caller")
			require.NoError(t, err)
			assert.Equal(t, "sum by (caller) (count_over_time("+tt.want+" [$__auto]))", q)
		})
	}
}

func TestFieldBreakdownQuery_Numeric(t *testing.T) {
	state := State{Labels: []filters.Filter{serviceAPI}}

	b := newTestBuilder(state, DetectedField{Label: "latency", Type: FieldTypeDuration, Parsers: []string{"logfmt"}})
	q, err := b.FieldBreakdownQuery("latency")
	require.NoError(t, err)
	assert.Equal(t, `avg_over_time({service_name="api"} | logfmt | latency!="" | unwrap duration(latency) | __error__="" [$__auto]) by ()`, q)

	b = newTestBuilder(state, DetectedField{Label: "size", Type: FieldTypeBytes, Parsers: []string{"logfmt"}})
	b.Range = "5m"
	q, err = b.FieldBreakdownQuery("size")
	require.NoError(t, err)
	assert.Equal(t, `avg_over_time({service_name="api"} | logfmt | size!="" | unwrap bytes(size) | __error__="" [5m]) by ()`, q)

	b = newTestBuilder(state, DetectedField{Label: "score", Type: FieldTypeFloat, Parsers: []string{"logfmt"}})
	q, err = b.FieldBreakdownQuery("score")
	require.NoError(t, err)
	assert.Equal(t, `avg_over_time({service_name="api"} | logfmt | score!="" | unwrap score | __error__="" [$__auto]) by ()`, q)
}

func TestFieldBreakdownQuery_IgnoresOwnFilters(t *testing.T) {
	state := State{
		Labels: []filters.Filter{serviceAPI},
		Fields: []filters.Filter{
			filters.NewFieldFilter("caller", filters.Equal, "logfmt", "a"),
			filters.NewFieldFilter("status", filters.Equal, "logfmt", "500"),
		},
	}
	b := newTestBuilder(state, DetectedField{Label: "caller", Parsers: []string{"logfmt"}})
	q, err := b.FieldBreakdownQuery("caller")
	require.NoError(t, err)
	assert.Equal(t, `sum by (caller) (count_over_time({service_name="api"} | logfmt | caller!="" | status="500" [$__auto]))`, q)
}

func TestFieldBreakdownQuery_MissingFieldFallsBackToMixed(t *testing.T) {
	b := newTestBuilder(State{Labels: []filters.Filter{serviceAPI}})
	q, err := b.FieldBreakdownQuery("unknown")
	require.NoError(t, err)
	assert.Contains(t, q, `| json | drop __error__, __error_details__ | logfmt | drop __error__, __error_details__ | unknown!=""`)

	_, err = b.FieldBreakdownQuery("")
	assert.ErrorIs(t, err, ErrMissingBreakdownValue)
}

func TestLogsQuery_StageOrder(t *testing.T) {
	state := State{
		Labels:      []filters.Filter{serviceAPI},
		Fields:      []filters.Filter{filters.NewFieldFilter("caller", filters.Equal, "logfmt", "main.go")},
		Metadata:    []filters.Filter{{Key: "pod", Operator: filters.Equal, Value: "p1", ValueLabels: []string{"p1"}}},
		Levels:      []filters.Filter{{Key: filters.LevelKey, Operator: filters.Equal, Value: "error"}},
		LineFilters: []filters.Filter{filters.NewLineFilter(filters.LineContains, "timeout", filters.CaseSensitive)},
		Patterns:    []filters.Pattern{{Type: filters.PatternExclude, Pattern: "<_> GET"}},
	}
	b := newTestBuilder(state, DetectedField{Label: "caller", Parsers: []string{"logfmt"}})
	assert.Equal(t,
		`{service_name="api"} | logfmt | caller="main.go" | pod="p1" | detected_level="error" !> "<_> GET" |= "timeout"`,
		b.LogsQuery())
}

func TestLogsQuery_LineFormatInjectsJSONProps(t *testing.T) {
	state := State{
		Labels: []filters.Filter{serviceAPI},
		JSONFields: []filters.Filter{
			{Key: "a", Value: JSONPathArraySyntax([]string{"a"})},
			{Key: "a_b", Value: JSONPathArraySyntax([]string{"a", "b"})},
		},
		LineFormat: []filters.Filter{{Key: "a"}, {Key: "b"}},
	}
	b := newTestBuilder(state)
	assert.Equal(t,
		`{service_name="api"} | json a="[\"a\"]", a_b="[\"a\"][\"b\"]" | drop __error__, __error_details__ | line_format "{{.a_b}}"`,
		b.LogsQuery())
}

func TestLogsQuery_JSONPropsOmittedWhenFieldHasNoPath(t *testing.T) {
	state := State{
		Labels:     []filters.Filter{serviceAPI},
		Fields:     []filters.Filter{filters.NewFieldFilter("status", filters.Equal, "json", "200")},
		JSONFields: []filters.Filter{{Key: "a", Value: JSONPathArraySyntax([]string{"a"})}},
	}
	b := newTestBuilder(state)
	assert.Equal(t, `{service_name="api"} | json | drop __error__, __error_details__ | status="200"`, b.LogsQuery())
}

func TestLabelBreakdownQuery(t *testing.T) {
	state := State{Labels: []filters.Filter{
		serviceAPI,
		{Key: "cluster", Operator: filters.Equal, Value: "eu"},
	}}
	b := newTestBuilder(state)
	q, err := b.LabelBreakdownQuery("cluster")
	require.NoError(t, err)
	assert.Equal(t, `sum by (cluster) (count_over_time({service_name="api", cluster!=""} [$__auto]))`, q)

	_, err = b.LabelBreakdownQuery("")
	assert.ErrorIs(t, err, ErrMissingBreakdownValue)
}

func TestLevelsVolumeQuery_IgnoresLevelFilters(t *testing.T) {
	state := State{
		Labels: []filters.Filter{serviceAPI},
		Levels: []filters.Filter{{Key: filters.LevelKey, Operator: filters.Equal, Value: "error"}},
	}
	b := newTestBuilder(state)
	assert.Equal(t, `sum by (detected_level) (count_over_time({service_name="api"} [$__auto]))`, b.LevelsVolumeQuery())
}

func TestFieldValuesQuery(t *testing.T) {
	state := State{Labels: []filters.Filter{
		serviceAPI,
		{Key: "cluster", Operator: filters.Equal, Value: "eu"},
	}}
	b := newTestBuilder(state, DetectedField{Label: "caller", Parsers: []string{"logfmt"}})

	q, err := b.FieldValuesQuery(filters.Labels, "service_name")
	require.NoError(t, err)
	assert.Equal(t, `{cluster="eu"}`, q)

	q, err = b.FieldValuesQuery(filters.Fields, "caller")
	require.NoError(t, err)
	assert.Equal(t, `{service_name="api", cluster="eu"} | logfmt | caller!=""`, q)

	_, err = b.FieldValuesQuery(filters.Patterns, "x")
	assert.ErrorIs(t, err, filters.ErrUnknownCategory)
}

func TestState_GetSet(t *testing.T) {
	var s State
	require.NoError(t, s.Set(filters.Fields, []filters.Filter{filters.NewFieldFilter("caller", filters.Equal, "logfmt", "a")}))
	require.NoError(t, s.Set(filters.Metadata, []filters.Filter{{Key: "pod", Operator: filters.Equal, Value: "p"}}))

	merged, err := s.Get(filters.FieldsAndMetadata)
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "pod", merged[0].Key)
	assert.Equal(t, "caller", merged[1].Key)

	assert.ErrorIs(t, s.Set(filters.FieldsAndMetadata, nil), filters.ErrUnknownCategory)
	_, err = s.Get(filters.Patterns)
	assert.ErrorIs(t, err, filters.ErrUnknownCategory)

	c := s.Clone()
	c.Fields[0].Key = "changed"
	assert.Equal(t, "caller", s.Fields[0].Key)
}

func TestFieldBreakdownQuery_WarnsWithoutJSONPath(t *testing.T) {
	var logs bytes.Buffer
	b := NewQueryBuilder(State{Labels: []filters.Filter{serviceAPI}},
		DetectedFields{Fields: []DetectedField{{Label: "status", Parsers: []string{"json"}}}})
	b.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	q, err := b.FieldBreakdownQuery("status")
	require.NoError(t, err)
	assert.Contains(t, q, "| json | drop __error__, __error_details__")
	assert.Contains(t, logs.String(), "No JSON path for field")
	assert.Contains(t, logs.String(), "field=status")
}
