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


package metadata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/logs-drilldown/logql"
	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

type fakeSource struct {
	fieldCalls atomic.Int32
	labelCalls atomic.Int32
	err        error
}

func (f *fakeSource) DetectedFields(ctx context.Context, query string, _ lokiclient.TimeRange) (logql.DetectedFields, error) {
	f.fieldCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return logql.DetectedFields{}, err
	}
	if f.err != nil {
		return logql.DetectedFields{}, f.err
	}
	return logql.DetectedFields{Fields: []logql.DetectedField{
		{Label: "caller", Type: logql.FieldTypeString, Parsers: []string{"logfmt"}},
	}}, nil
}

func (f *fakeSource) DetectedLabels(_ context.Context, _ string, _ lokiclient.TimeRange) ([]logql.DetectedLabel, error) {
	f.labelCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []logql.DetectedLabel{
		{Label: "cluster", Cardinality: 1},
		{Label: "pod", Cardinality: 5},
	}, nil
}

func TestDetectedFields_Cached(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Minute)
	defer s.Close()

	ctx := context.Background()
	r := lokiclient.TimeRange{Start: time.Unix(100, 0), End: time.Unix(200, 0)}
	for range 3 {
		fields, err := s.DetectedFields(ctx, `{service_name="api"}`, r)
		require.NoError(t, err)
		require.Len(t, fields.Fields, 1)
	}
	assert.Equal(t, int32(1), src.fieldCalls.Load())

	_, err := s.DetectedFields(ctx, `{service_name="web"}`, r)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.fieldCalls.Load())

	_, err = s.DetectedFields(ctx, `{service_name="api"}`, lokiclient.TimeRange{Start: time.Unix(150, 0), End: time.Unix(200, 0)})
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.fieldCalls.Load())
}

func TestDetectedFields_RelativeWindowSharesEntry(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Minute)
	defer s.Close()

	now := time.Date(2025, 6, 1, 12, 0, 5, 0, time.UTC)
	for _, d := range []time.Duration{0, 3 * time.Second, 20 * time.Second} {
		at := now.Add(d)
		_, err := s.DetectedFields(context.Background(), `{service_name="api"}`,
			lokiclient.TimeRange{Start: at.Add(-time.Hour), End: at})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.fieldCalls.Load())
}

func TestDetectedFields_CanceledCallerNotCached(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Minute)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fields, err := s.DetectedFields(ctx, `{service_name="api"}`, lokiclient.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, fields.Fields, 1)

	fields, err = s.DetectedFields(context.Background(), `{service_name="api"}`, lokiclient.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, fields.Fields, 1)
	assert.Equal(t, int32(1), src.fieldCalls.Load())
}

func TestDetectedFields_ErrorCached(t *testing.T) {
	src := &fakeSource{err: errors.New("loki down")}
	s := New(src, time.Minute)
	defer s.Close()

	for range 2 {
		_, err := s.DetectedFields(context.Background(), `{service_name="api"}`, lokiclient.TimeRange{})
		require.EqualError(t, err, "loki down")
	}
	assert.Equal(t, int32(1), src.fieldCalls.Load())
}

func TestDetectedLabels_SortedAndCopied(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Minute)
	defer s.Close()

	labels, err := s.DetectedLabels(context.Background(), `{service_name="api"}`, lokiclient.TimeRange{})
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "pod", labels[0].Label)
	labels[0].Label = "mutated"

	again, err := s.DetectedLabels(context.Background(), `{service_name="api"}`, lokiclient.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, "pod", again[0].Label)
	assert.Equal(t, int32(1), src.labelCalls.Load())
}

func TestInvalidate(t *testing.T) {
	src := &fakeSource{}
	s := New(src, time.Minute)
	defer s.Close()

	ctx := context.Background()
	_, _ = s.DetectedFields(ctx, `{service_name="api"}`, lokiclient.TimeRange{})
	s.Invalidate()
	_, _ = s.DetectedFields(ctx, `{service_name="api"}`, lokiclient.TimeRange{})
	assert.Equal(t, int32(2), src.fieldCalls.Load())
}

func TestDefaultColumns_PerInstance(t *testing.T) {
	a := New(&fakeSource{}, time.Minute)
	defer a.Close()
	b := New(&fakeSource{}, time.Minute)
	defer b.Close()

	cols := []string{"caller", "pod"}
	a.SetDefaultColumns(cols)
	cols[0] = "changed"

	assert.Equal(t, []string{"caller", "pod"}, a.DefaultColumns())
	assert.Empty(t, b.DefaultColumns())
}
