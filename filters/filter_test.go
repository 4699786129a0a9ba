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
)

func TestFilter_Equal(t *testing.T) {
	base := Filter{Key: "pod", Operator: Equal, Value: "a", ValueLabels: []string{"a"}, Meta: &Meta{Parser: "logfmt"}}

	assert.True(t, base.Equal(base.Clone()))

	other := base.Clone()
	other.Meta.Parser = "json"
	assert.False(t, base.Equal(other))

	other = base.Clone()
	other.Meta = nil
	assert.False(t, base.Equal(other))

	other = base.Clone()
	other.Custom = true
	assert.False(t, base.Equal(other))
}

func TestEqualAll(t *testing.T) {
	a := []Filter{{Key: "pod", Operator: Equal, Value: "a"}}
	assert.True(t, EqualAll(nil, []Filter{}))
	assert.True(t, EqualAll(a, CloneAll(a)))
	assert.False(t, EqualAll(a, nil))
}

func TestClone_DoesNotAlias(t *testing.T) {
	f := Filter{Key: "pod", ValueLabels: []string{"a"}, Meta: &Meta{Type: "string"}}
	c := f.Clone()
	c.ValueLabels[0] = "b"
	c.Meta.Type = "int"
	assert.Equal(t, "a", f.ValueLabels[0])
	assert.Equal(t, "string", f.Meta.Type)
}

func TestKeys(t *testing.T) {
	fs := []Filter{{Key: "b"}, {Key: "a"}, {Key: "b"}}
	assert.Equal(t, []string{"b", "a"}, Keys(fs))
}
