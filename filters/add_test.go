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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_ToggleRestoresCollection(t *testing.T) {
	for _, start := range [][]Filter{
		nil,
		{{Key: "cluster", Operator: Equal, Value: "eu", ValueLabels: []string{"eu"}}},
	} {
		added := AddFilter(start, Labels, "service", "api", Include)
		require.Len(t, added, len(start)+1)

		toggled := AddFilter(added, Labels, "service", "api", Toggle)
		assert.Equal(t, len(start), len(toggled))
		for i := range start {
			assert.Equal(t, start[i], toggled[i])
		}
	}
}

func TestAdd_ToggleAddsWhenMissing(t *testing.T) {
	out := AddFilter(nil, Metadata, "pod", "a", Toggle)
	require.Len(t, out, 1)
	assert.Equal(t, Equal, out[0].Operator)
}

func TestAdd_IncludeReplacesExclude(t *testing.T) {
	fs := AddFilter(nil, Metadata, "pod", "a", Exclude)
	fs = AddFilter(fs, Metadata, "pod", "b", Exclude)
	require.Len(t, fs, 2)

	fs = AddFilter(fs, Metadata, "pod", "c", Include)
	require.Len(t, fs, 1)
	assert.Equal(t, Filter{Key: "pod", Operator: Equal, Value: "c", ValueLabels: []string{"c"}}, fs[0])
}

func TestAdd_InclusiveValuesAccumulate(t *testing.T) {
	fs := AddFilter(nil, Labels, "service", "a", Include)
	fs = AddFilter(fs, Labels, "service", "b", Include)
	fs = AddFilter(fs, Labels, "service", "b", Include)
	require.Len(t, fs, 2)
	assert.Equal(t, "a", fs[0].Value)
	assert.Equal(t, "b", fs[1].Value)
}

func TestAdd_ExcludeReplacesInclude(t *testing.T) {
	fs := AddFilter(nil, Labels, "service", "a", Include)
	fs = AddFilter(fs, Labels, "other", "x", Include)
	fs = AddFilter(fs, Labels, "service", "a", Exclude)

	require.Len(t, fs, 2)
	assert.Equal(t, "other", fs[0].Key)
	assert.Equal(t, NotEqual, fs[1].Operator)
}

func TestAdd_LevelsKeepOtherValues(t *testing.T) {
	fs := AddFilter(nil, Levels, LevelKey, "info", Include)
	fs = AddFilter(fs, Levels, LevelKey, "debug", Exclude)
	require.Len(t, fs, 2)

	fs = AddFilter(fs, Levels, LevelKey, "info", Exclude)
	require.Len(t, fs, 2)
	assert.Equal(t, "debug", fs[0].Value)
	assert.Equal(t, Filter{Key: LevelKey, Operator: NotEqual, Value: "info", ValueLabels: []string{"info"}}, fs[1])
}

func TestAdd_Clear(t *testing.T) {
	fs := AddFilter(nil, Labels, "service", "a", Include)
	fs = AddFilter(fs, Labels, "service", "b", Include)
	fs = AddFilter(fs, Labels, "cluster", "eu", Include)

	fs = AddFilter(fs, Labels, "service", "", Clear)
	require.Len(t, fs, 1)
	assert.Equal(t, "cluster", fs[0].Key)
}

func TestAdd_FieldsCompareDecodedValue(t *testing.T) {
	fs := AddFieldFilter(nil, "caller", "logfmt", "main.go", Include)
	require.Len(t, fs, 1)
	assert.True(t, fs[0].Custom)

	// Same raw value extracted by another parser is the same filter.
	fs = AddFieldFilter(fs, "caller", "json", "main.go", Toggle)
	assert.Empty(t, fs)
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	in := []Filter{{Key: "a", Operator: Equal, Value: "1", ValueLabels: []string{"1"}}}
	out := AddFilter(in, Labels, "a", "1", Exclude)

	require.Len(t, in, 1)
	assert.Equal(t, Equal, in[0].Operator)
	assert.Equal(t, NotEqual, out[0].Operator)
}

func TestParseFilterType(t *testing.T) {
	typ, err := ParseFilterType("toggle")
	require.NoError(t, err)
	assert.Equal(t, Toggle, typ)

	_, err = ParseFilterType("nope")
	assert.Error(t, err)
}
