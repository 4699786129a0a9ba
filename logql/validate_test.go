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
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := []string{
		`{service_name="api"} |= "timeout"`,
		`{service_name="api"} | logfmt | caller!="" | detected_level=~"info|error"`,
		`sum by (caller) (count_over_time({service_name="api"} | logfmt | caller!="" [$__auto]))`,
		`sum(count_over_time({service_name="api"} [${__interval}]))`,
	}
	for _, q := range valid {
		assert.NoError(t, Validate(q), q)
	}
}

func TestValidate_Invalid(t *testing.T) {
	err := Validate(`{service_name="api"`)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Message)

	err = Validate("  ")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "empty query", ve.Error())
}

func TestParseErrorPosition(t *testing.T) {
	line, col := parseErrorPosition("parse error at line 2, col 7: syntax error: unexpected IDENTIFIER")
	assert.Equal(t, 2, line)
	assert.Equal(t, 7, col)

	line, col = parseErrorPosition("boom")
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
}

func TestSliceSafe(t *testing.T) {
	assert.Equal(t, "abc", sliceSafe("abc", -5, 10))
	assert.Equal(t, "b", sliceSafe("abc", 1, 2))
	assert.Equal(t, "", sliceSafe("abc", 5, 10))
}

func TestValidationError_Pos(t *testing.T) {
	ve := &ValidationError{Message: "bad", Line: 3, Column: 9}
	assert.Equal(t, "3:9", ve.Pos())
	assert.Equal(t, "bad (line 3, col 9)", ve.Error())
}
