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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldValue is the envelope stored in the value of a Fields filter. A field
// filter has to remember which parser extracted it.
type FieldValue struct {
	Parser string `json:"parser"`
	Value  string `json:"value"`
}

// EncodeFieldValue returns the JSON envelope for a parsed field value.
func EncodeFieldValue(parser, value string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of two strings cannot fail.
	_ = enc.Encode(FieldValue{Parser: parser, Value: value})
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeFieldValue parses a field envelope. A leading custom value prefix is
// tolerated so values read straight from the wire decode too.
func DecodeFieldValue(s string) (FieldValue, error) {
	s = strings.TrimPrefix(s, CustomValuePrefix)
	var fv FieldValue
	if err := json.Unmarshal([]byte(s), &fv); err != nil {
		return FieldValue{}, fmt.Errorf("decode field value %q: %w", s, err)
	}
	return fv, nil
}

// NewFieldFilter builds a Fields filter. The value is wrapped in the parser
// envelope and marked as custom input, its label is the raw value.
func NewFieldFilter(key string, op Operator, parser, value string) Filter {
	return Filter{
		Key:         key,
		Operator:    op,
		Value:       EncodeFieldValue(parser, value),
		ValueLabels: []string{value},
		Custom:      true,
		Meta:        &Meta{Parser: parser},
	}
}

// FieldFilterValue returns the raw value of a Fields filter, or the stored
// value when it is not an envelope.
func FieldFilterValue(f Filter) string {
	fv, err := DecodeFieldValue(f.Value)
	if err != nil {
		return f.Value
	}
	return fv.Value
}

// FieldFilterParser returns the parser recorded for a Fields filter, looking
// at Meta first and then at the envelope.
func FieldFilterParser(f Filter) string {
	if f.Meta != nil && f.Meta.Parser != "" {
		return f.Meta.Parser
	}
	fv, err := DecodeFieldValue(f.Value)
	if err != nil {
		return ""
	}
	return fv.Parser
}

// IsMetadataFilter classifies a filter written through the merged
// Fields+Metadata view. Metadata values are never envelopes, so a value equal
// to its own label marks metadata. A field filter whose label equals its
// stored value is classified as metadata as well.
func IsMetadataFilter(f Filter) bool {
	if f.Key == LevelKey {
		return true
	}
	return len(f.ValueLabels) > 0 && f.Value == f.ValueLabels[0]
}
