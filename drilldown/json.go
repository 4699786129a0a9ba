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
	"errors"
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/logql"
)

// ErrNoNodeKeys is returned when a key path does not point below the root of
// the JSON tree.
var ErrNoNodeKeys = errors.New("key path has no node keys")

// KeyPath is the path the JSON tree reports for a node: the node keys leaf
// first, followed by the line field, the row index and "root". Keys are
// strings for object members and numbers for array elements.
type KeyPath []any

// keyPathTail is the number of trailing entries that are not node keys.
const keyPathTail = 3

// Keys returns the node keys in root to leaf order.
func (p KeyPath) Keys() []string {
	if len(p) <= keyPathTail {
		return nil
	}
	nodes := p[:len(p)-keyPathTail]
	out := make([]string, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		out = append(out, fmt.Sprint(nodes[i]))
	}
	return out
}

// FullKeyPath resolves a key path reported below the current drill-down root
// to the full chain of line format filters from the document root.
func FullKeyPath(keyPath KeyPath, lineFormat []filters.Filter) []filters.Filter {
	out := make([]filters.Filter, 0, len(lineFormat)+len(keyPath))
	for _, f := range lineFormat {
		out = append(out, pathNode(f.Key))
	}
	for _, k := range keyPath.Keys() {
		out = append(out, pathNode(k))
	}
	return out
}

func pathNode(key string) filters.Filter {
	return filters.Filter{Key: key, Operator: filters.Equal}
}

// SetNewRootNode re-roots the drill-down at the node of keyPath. A key path
// without node keys drills all the way up and clears the line format.
func (tx *Tx) SetNewRootNode(keyPath KeyPath) {
	if len(keyPath) <= keyPathTail {
		tx.logger.Debug("Drilling up to the document root")
		tx.setLineFormat(nil)
		return
	}
	full := FullKeyPath(keyPath, tx.state.LineFormat)
	tx.addJSONProp(logql.PathOf(full))
	tx.setLineFormat(full)
}

// AddDrillUp truncates the drill-down path after key. Unknown keys leave the
// path unchanged.
func (tx *Tx) AddDrillUp(key string) {
	idx := slices.IndexFunc(tx.state.LineFormat, func(f filters.Filter) bool { return f.Key == key })
	if idx < 0 {
		tx.logger.Warn("Drill up key is not part of the drill-down path", slog.String("key", key))
		return
	}
	tx.setLineFormat(filters.CloneAll(tx.state.LineFormat[:idx+1]))
}

// AddJSONFilter filters on the value of the JSON node at keyPath, recording
// the parser prop the json stage needs to extract it.
func (tx *Tx) AddJSONFilter(keyPath KeyPath, value string, typ filters.FilterType) error {
	full := FullKeyPath(keyPath, tx.state.LineFormat)
	if len(full) == len(tx.state.LineFormat) {
		return fmt.Errorf("%w: %v", ErrNoNodeKeys, keyPath)
	}
	key := tx.addJSONProp(logql.PathOf(full))
	return tx.AddFieldFilter(key, string(logql.ParserJSON), value, typ)
}

// AddJSONExistsFilter keeps only lines where the nested node at keyPath is
// present.
func (tx *Tx) AddJSONExistsFilter(keyPath KeyPath) error {
	full := FullKeyPath(keyPath, tx.state.LineFormat)
	if len(full) == len(tx.state.LineFormat) {
		return fmt.Errorf("%w: %v", ErrNoNodeKeys, keyPath)
	}
	key := tx.addJSONProp(logql.PathOf(full))
	return tx.Add(filters.Fields, filters.NewFieldFilter(key, filters.NotEqual, string(logql.ParserJSON), ""), filters.Exclude)
}

func (tx *Tx) setLineFormat(fs []filters.Filter) {
	tx.state.LineFormat = fs
	tx.written.Add(filters.LineFormat)
}

// addJSONProp records the json stage argument for path and returns its
// label key.
func (tx *Tx) addJSONProp(path []string) string {
	key := logql.JSONLabelKey(path)
	if !slices.ContainsFunc(tx.state.JSONFields, func(f filters.Filter) bool { return f.Key == key }) {
		tx.state.JSONFields = append(filters.CloneAll(tx.state.JSONFields), filters.Filter{
			Key:      key,
			Operator: filters.Equal,
			Value:    logql.JSONPathArraySyntax(path),
		})
		tx.written.Add(filters.JSONFields)
	}
	return key
}

// shouldCollectJSONProps reports whether parser props may have lost their
// last reference: fields were removed, the drill-down path moved, or neither
// fields nor a drill-down remain.
func shouldCollectJSONProps(before, after logql.State) bool {
	if len(after.JSONFields) == 0 {
		return false
	}
	return len(after.Fields) < len(before.Fields) ||
		(len(after.Fields) == 0 && len(after.LineFormat) == 0) ||
		!filters.EqualAll(before.LineFormat, after.LineFormat)
}

// collectJSONProps drops parser props no field filter and no drill-down path
// prefix refers to.
func collectJSONProps(state logql.State) []filters.Filter {
	referenced := mapset.NewThreadUnsafeSet(filters.Keys(state.Fields)...)
	referenced.Append(logql.JSONKeyPrefixes(logql.PathOf(state.LineFormat))...)

	var out []filters.Filter
	for _, f := range state.JSONFields {
		if referenced.Contains(f.Key) {
			out = append(out, f.Clone())
		}
	}
	return out
}
