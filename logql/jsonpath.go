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
	"strings"
	"unicode"
)

// JSONPathArraySyntax renders a path for the json parser stage, e.g.
// ["a"]["b"][0]. All-digit segments are array indices.
func JSONPathArraySyntax(path []string) string {
	var sb strings.Builder
	for _, seg := range path {
		if isIndex(seg) {
			sb.WriteString("[" + seg + "]")
			continue
		}
		sb.WriteString(`["` + seg + `"]`)
	}
	return sb.String()
}

// JSONLabelKey is the label name the json parser produces for path: the
// sanitized segments joined with underscores.
func JSONLabelKey(path []string) string {
	key := sanitizeLabelKey(strings.Join(path, "_"))
	if key != "" && unicode.IsDigit(rune(key[0])) {
		key = "_" + key
	}
	return key
}

// JSONKeyPrefixes returns the label keys of every prefix of path, shortest
// first: [a b c] gives a, a_b, a_b_c.
func JSONKeyPrefixes(path []string) []string {
	out := make([]string, 0, len(path))
	for i := range path {
		out = append(out, JSONLabelKey(path[:i+1]))
	}
	return out
}

func sanitizeLabelKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
