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
	"regexp"
	"strings"

	"github.com/cardinalhq/logs-drilldown/filters"
)

var (
	re2Metacharacters = regexp.MustCompile(`[*+?()|\\.\[\]{}^$]`)

	exactEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

// EscapeExact makes s safe inside a double quoted LogQL string literal.
func EscapeExact(s string) string {
	return exactEscaper.Replace(s)
}

// UnescapeExact reverses EscapeExact.
func UnescapeExact(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// EscapeRegexMeta escapes RE2 metacharacters so s matches literally.
func EscapeRegexMeta(s string) string {
	return re2Metacharacters.ReplaceAllStringFunc(s, func(m string) string { return `\` + m })
}

// UnescapeRegexMeta reverses EscapeRegexMeta.
func UnescapeRegexMeta(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i < len(s)-1 {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// EscapeRegex makes a literal value usable inside a quoted regex matcher.
func EscapeRegex(s string) string {
	return EscapeExact(EscapeRegexMeta(s))
}

// UnescapeRegex reverses EscapeRegex.
func UnescapeRegex(s string) string {
	return UnescapeRegexMeta(UnescapeExact(s))
}

// escapeValue picks the escaper for a filter from its operator. Regular
// expressions typed by the user are kept intact; any other regex value is a
// literal that must match as is.
func escapeValue(f filters.Filter, value string) string {
	if f.Operator.IsRegex() && !f.Custom {
		return EscapeRegex(value)
	}
	return EscapeExact(value)
}

// EscapeLineFilter returns the operator and quoted-string body a line filter
// renders with. A case insensitive literal becomes a (?i) regex matching the
// escaped literal, so |= and != turn into |~ and !~.
func EscapeLineFilter(f filters.Filter) (filters.Operator, string) {
	insensitive := filters.LineFilterCaseOf(f) == filters.CaseInsensitive
	switch f.Operator {
	case filters.LineRegex, filters.LineNotRegex:
		if insensitive {
			return f.Operator, EscapeExact("(?i)" + f.Value)
		}
		return f.Operator, EscapeExact(f.Value)
	default:
		if !insensitive {
			return f.Operator, EscapeExact(f.Value)
		}
		op := filters.LineRegex
		if f.Operator == filters.LineNotContains {
			op = filters.LineNotRegex
		}
		return op, EscapeExact("(?i)" + EscapeRegexMeta(f.Value))
	}
}
