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
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	// EmptyValue is written for filters without a value. URL state drops
	// empty strings, so "no value" needs a visible stand-in.
	EmptyValue = " "

	// CustomValuePrefix marks user typed values on the wire.
	CustomValuePrefix = "~"

	commaToken = "__gfc__"
	pipeToken  = "__gfp__"
	// tildeToken stands in for a literal leading "~" of a value that is not
	// custom, so it is not read back as the custom marker.
	tildeToken = "__gft__"
)

var (
	delimiterEscaper   = strings.NewReplacer(",", commaToken, "|", pipeToken)
	delimiterUnescaper = strings.NewReplacer(commaToken, ",", pipeToken, "|")
)

// EscapeURLDelimiters replaces the characters used as separators in
// persisted filters.
func EscapeURLDelimiters(s string) string {
	return delimiterEscaper.Replace(s)
}

// UnescapeURLDelimiters reverses EscapeURLDelimiters.
func UnescapeURLDelimiters(s string) string {
	return delimiterUnescaper.Replace(s)
}

// EncodeFilter writes f as key|operator|value[,valueLabel...].
func EncodeFilter(f Filter) string {
	value := f.Value
	if value == "" {
		value = EmptyValue
	}
	switch {
	case f.Custom:
		value = CustomValuePrefix + value
	case strings.HasPrefix(value, CustomValuePrefix):
		value = tildeToken + strings.TrimPrefix(value, CustomValuePrefix)
	}

	var sb strings.Builder
	sb.WriteString(EscapeURLDelimiters(f.Key))
	sb.WriteByte('|')
	sb.WriteString(EscapeURLDelimiters(string(f.Operator)))
	sb.WriteByte('|')
	sb.WriteString(EscapeURLDelimiters(value))
	for _, l := range f.ValueLabels {
		sb.WriteByte(',')
		sb.WriteString(EscapeURLDelimiters(l))
	}
	return sb.String()
}

// DecodeFilter parses a value written by EncodeFilter.
func DecodeFilter(s string) (Filter, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Filter{}, fmt.Errorf("malformed filter %q: want key|operator|value", s)
	}
	op, err := ParseOperator(UnescapeURLDelimiters(parts[1]))
	if err != nil {
		return Filter{}, fmt.Errorf("malformed filter %q: %w", s, err)
	}

	values := strings.Split(parts[2], ",")
	f := Filter{
		Key:      UnescapeURLDelimiters(parts[0]),
		Operator: op,
	}

	value := UnescapeURLDelimiters(values[0])
	switch {
	case strings.HasPrefix(value, CustomValuePrefix):
		f.Custom = true
		value = strings.TrimPrefix(value, CustomValuePrefix)
	case strings.HasPrefix(value, tildeToken):
		value = CustomValuePrefix + strings.TrimPrefix(value, tildeToken)
	}
	if value == EmptyValue {
		value = ""
	}
	f.Value = value

	for _, l := range values[1:] {
		f.ValueLabels = append(f.ValueLabels, UnescapeURLDelimiters(l))
	}
	return f, nil
}

// Encode writes every filter of a collection.
func Encode(fs []Filter) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, EncodeFilter(f))
	}
	return out
}

// Decode parses persisted filters. Malformed entries are skipped and
// reported together in the returned error; the well formed ones are always
// returned.
func Decode(values []string) ([]Filter, error) {
	var errs *multierror.Error
	var out []Filter
	for _, v := range values {
		f, err := DecodeFilter(v)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, f)
	}
	return out, errs.ErrorOrNil()
}

// SetURLValues replaces the persisted filters of category c in v.
func SetURLValues(v url.Values, c Category, fs []Filter) {
	v.Del(c.URLParam())
	for _, s := range Encode(fs) {
		v.Add(c.URLParam(), s)
	}
}

// FromURLValues reads the persisted filters of category c from v.
func FromURLValues(v url.Values, c Category) ([]Filter, error) {
	fs, err := Decode(v[c.URLParam()])
	if err != nil {
		return fs, fmt.Errorf("decode %s: %w", c.URLParam(), err)
	}
	return fs, nil
}
