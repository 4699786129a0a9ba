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


package drilldown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/logql"
)

func TestURLValues_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx)
	update(t, s, func(tx *Tx) error {
		if err := tx.AddFilter(filters.Labels, "service_name", "a|b,c", filters.Include); err != nil {
			return err
		}
		if err := tx.AddFieldFilter("caller", "logfmt", "main.go:12", filters.Include); err != nil {
			return err
		}
		if err := tx.AddLevel("error", filters.Include); err != nil {
			return err
		}
		if err := tx.AddLineFilter(filters.LineContains, "time out", filters.CaseInsensitive); err != nil {
			return err
		}
		tx.TogglePattern(filters.Pattern{Type: filters.PatternExclude, Pattern: "<_> GET"})
		tx.SetNewRootNode(KeyPath{"a", "Line", 0, "root"})
		return nil
	})
	orig := s.Snapshot()
	v := orig.URLValues()
	assert.Equal(t, []string{filters.EncodeFilter(filters.Filter{Key: "a", Operator: filters.Equal})}, v["var-lineFormat"])

	restored := NewSession(ctx)
	require.NoError(t, restored.RestoreURL(ctx, v))
	got := restored.Snapshot()

	detected := logql.DetectedFields{Fields: []logql.DetectedField{{Label: "caller", Parsers: []string{"logfmt"}}}}
	assert.Equal(t, orig.QueryBuilder(detected).LogsQuery(), got.QueryBuilder(detected).LogsQuery())
	assert.Equal(t, orig.State.Patterns, got.State.Patterns)
	assert.True(t, filters.EqualAll(orig.State.Labels, got.State.Labels))
	assert.True(t, filters.EqualAll(orig.State.Levels, got.State.Levels))
	assert.True(t, filters.EqualAll(orig.State.LineFormat, got.State.LineFormat))
}

func TestRestoreURL_MalformedEntriesSkipped(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx)
	update(t, s, func(tx *Tx) error {
		tx.TogglePattern(filters.Pattern{Type: filters.PatternInclude, Pattern: "keep"})
		return nil
	})

	v := map[string][]string{
		"var-filters":        {"service_name|=|api", "garbage"},
		filters.PatternsParam: {"{not json"},
	}
	err := s.RestoreURL(ctx, v)
	require.Error(t, err)

	st := s.Snapshot().State
	require.Len(t, st.Labels, 1)
	assert.Equal(t, "api", st.Labels[0].Value)
	assert.Equal(t, []filters.Pattern{{Type: filters.PatternInclude, Pattern: "keep"}}, st.Patterns)
}

func TestRestoreURL_AbsentCategoriesKept(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx)
	update(t, s, func(tx *Tx) error { return tx.AddFilter(filters.Labels, "service_name", "api", filters.Include) })

	require.NoError(t, s.RestoreURL(ctx, map[string][]string{"var-metadata": {"pod|=|p1,p1"}}))
	st := s.Snapshot().State
	assert.Len(t, st.Labels, 1)
	require.Len(t, st.Metadata, 1)
	assert.Equal(t, "pod", st.Metadata[0].Key)
}

func TestRestoreURL_LeadingTildeValues(t *testing.T) {
	ctx := context.Background()
	s := NewSession(ctx)
	update(t, s, func(tx *Tx) error {
		if err := tx.AddFilter(filters.Labels, "pod", "~p1", filters.Include); err != nil {
			return err
		}
		if err := tx.AddFilter(filters.Metadata, "path", "~tmp", filters.Include); err != nil {
			return err
		}
		return tx.AddLineFilter(filters.LineContains, "~/home", filters.CaseSensitive)
	})
	orig := s.Snapshot()

	restored := NewSession(ctx)
	require.NoError(t, restored.RestoreURL(ctx, orig.URLValues()))

	// Rewrite through the merged view; the metadata filter must stay put.
	update(t, restored, func(tx *Tx) error {
		fs, err := tx.Get(filters.FieldsAndMetadata)
		if err != nil {
			return err
		}
		return tx.Set(filters.FieldsAndMetadata, fs)
	})
	st := restored.Snapshot().State

	require.Len(t, st.Labels, 1)
	assert.Equal(t, "~p1", st.Labels[0].Value)
	assert.False(t, st.Labels[0].Custom)
	require.Len(t, st.Metadata, 1)
	assert.Equal(t, "~tmp", st.Metadata[0].Value)
	assert.Empty(t, st.Fields)
	require.Len(t, st.LineFilters, 1)
	assert.Equal(t, "~/home", st.LineFilters[0].Value)
	assert.False(t, st.LineFilters[0].Custom)

	assert.Equal(t, orig.QueryBuilder(logql.DetectedFields{}).LogsQuery(), restored.Snapshot().QueryBuilder(logql.DetectedFields{}).LogsQuery())
}
