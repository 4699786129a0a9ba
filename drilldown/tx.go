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
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/logql"
)

// Tx is a batch of mutations applied to a private copy of the session state.
type Tx struct {
	state   logql.State
	written mapset.Set[filters.Category]
	logger  *slog.Logger
}

func newTx(state logql.State, logger *slog.Logger) *Tx {
	return &Tx{
		state:   state,
		written: mapset.NewThreadUnsafeSet[filters.Category](),
		logger:  logger,
	}
}

// State returns a copy of the transaction's current state.
func (tx *Tx) State() logql.State {
	return tx.state.Clone()
}

// Get returns a copy of the collection for c. The merged Fields+Metadata view
// reads as metadata followed by fields.
func (tx *Tx) Get(c filters.Category) ([]filters.Filter, error) {
	fs, err := tx.state.Get(c)
	if err != nil {
		return nil, err
	}
	return filters.CloneAll(fs), nil
}

// Classify returns the backing category a filter written through the merged
// Fields+Metadata view is stored in.
func Classify(f filters.Filter) filters.Category {
	if filters.IsMetadataFilter(f) {
		return filters.Metadata
	}
	return filters.Fields
}

// Set replaces the collection for c. Writes to the merged view are split
// between metadata and fields by Classify, keeping their relative order.
func (tx *Tx) Set(c filters.Category, fs []filters.Filter) error {
	if c == filters.FieldsAndMetadata {
		var metadata, fields []filters.Filter
		for _, f := range fs {
			if Classify(f) == filters.Metadata {
				metadata = append(metadata, f.Clone())
			} else {
				fields = append(fields, f.Clone())
			}
		}
		if err := tx.set(filters.Metadata, metadata); err != nil {
			return err
		}
		return tx.set(filters.Fields, fields)
	}
	return tx.set(c, filters.CloneAll(fs))
}

func (tx *Tx) set(c filters.Category, fs []filters.Filter) error {
	if err := tx.state.Set(c, fs); err != nil {
		return err
	}
	tx.written.Add(c)
	return nil
}

// Add applies an include, exclude, toggle or clear interaction for f to
// category c. Filters added through the merged view land in their backing
// collection.
func (tx *Tx) Add(c filters.Category, f filters.Filter, typ filters.FilterType) error {
	if c == filters.FieldsAndMetadata {
		c = Classify(f)
	}
	if c == filters.Patterns {
		return fmt.Errorf("%w: patterns are changed with TogglePattern", filters.ErrUnknownCategory)
	}
	fs, err := tx.state.Get(c)
	if err != nil {
		return err
	}
	semantics := c
	if c == filters.Metadata && f.Key == filters.LevelKey {
		semantics = filters.Levels
	}
	return tx.set(c, filters.Add(fs, semantics, f, typ))
}

// AddFilter adds a plain key/value filter to c.
func (tx *Tx) AddFilter(c filters.Category, key, value string, typ filters.FilterType) error {
	return tx.Add(c, filters.Filter{Key: key, Value: value, ValueLabels: []string{value}}, typ)
}

// AddFieldFilter adds a parsed field filter.
func (tx *Tx) AddFieldFilter(key, parser, value string, typ filters.FilterType) error {
	return tx.Add(filters.Fields, filters.NewFieldFilter(key, filters.Equal, parser, value), typ)
}

// AddLevel adds a level filter. Several included levels are kept.
func (tx *Tx) AddLevel(level string, typ filters.FilterType) error {
	return tx.AddFilter(filters.Levels, filters.LevelKey, level, typ)
}

// AddLineFilter appends a line filter.
func (tx *Tx) AddLineFilter(op filters.Operator, value string, c filters.LineFilterCase) error {
	return tx.set(filters.LineFilters, append(filters.CloneAll(tx.state.LineFilters), filters.NewLineFilter(op, value, c)))
}

// SetPatterns replaces the applied patterns.
func (tx *Tx) SetPatterns(ps []filters.Pattern) {
	tx.state.Patterns = slices.Clone(ps)
	tx.written.Add(filters.Patterns)
}

// TogglePattern applies or removes a pattern.
func (tx *Tx) TogglePattern(p filters.Pattern) {
	tx.SetPatterns(filters.TogglePattern(tx.state.Patterns, p))
}

// Replace swaps in a whole state, e.g. restored from a URL.
func (tx *Tx) Replace(state logql.State) {
	tx.state = state.Clone()
	tx.written.Append(filters.AdHocCategories...)
	tx.written.Add(filters.Patterns)
}

// finish applies the synchronization rules and returns the categories that
// differ from before.
func (tx *Tx) finish(before logql.State) mapset.Set[filters.Category] {
	tx.syncLevels()
	if shouldCollectJSONProps(before, tx.state) {
		tx.state.JSONFields = collectJSONProps(tx.state)
	}

	changed := mapset.NewThreadUnsafeSet[filters.Category]()
	for _, c := range filters.AdHocCategories {
		a, _ := before.Get(c)
		b, _ := tx.state.Get(c)
		if !filters.EqualAll(a, b) {
			changed.Add(c)
		}
	}
	if !slices.Equal(before.Patterns, tx.state.Patterns) {
		changed.Add(filters.Patterns)
	}
	return changed
}

// syncLevels keeps the level filters in metadata and the levels shortcut
// identical. A direct levels write wins over a metadata write.
func (tx *Tx) syncLevels() {
	switch {
	case tx.written.Contains(filters.Levels):
		metadata := slices.DeleteFunc(filters.CloneAll(tx.state.Metadata), isLevel)
		tx.state.Metadata = append(metadata, filters.CloneAll(tx.state.Levels)...)
	case tx.written.Contains(filters.Metadata):
		var levels []filters.Filter
		for _, f := range tx.state.Metadata {
			if isLevel(f) {
				levels = append(levels, f.Clone())
			}
		}
		tx.state.Levels = levels
	}
}

func isLevel(f filters.Filter) bool {
	return f.Key == filters.LevelKey
}
