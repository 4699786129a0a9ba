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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cardinalhq/logs-drilldown/internal/logctx"
)

type PatternType string

const (
	PatternInclude PatternType = "include"
	PatternExclude PatternType = "exclude"
)

// Pattern is an applied Loki pattern filter.
type Pattern struct {
	Type    PatternType `json:"type"`
	Pattern string      `json:"pattern"`
}

// PatternsParam is the URL parameter holding the applied patterns as JSON.
const PatternsParam = "patterns"

// EncodePatterns serializes applied patterns for URL state.
func EncodePatterns(ps []Pattern) (string, error) {
	if len(ps) == 0 {
		return "", nil
	}
	b, err := json.Marshal(ps)
	if err != nil {
		return "", fmt.Errorf("encode patterns: %w", err)
	}
	return string(b), nil
}

// DecodePatterns parses persisted patterns. Malformed input is logged and
// fallback is returned in its place.
func DecodePatterns(ctx context.Context, raw string, fallback []Pattern) []Pattern {
	if raw == "" {
		return fallback
	}
	var ps []Pattern
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		logctx.FromContext(ctx).Error("Failed to decode persisted patterns, keeping current value",
			slog.String("raw", raw), slog.Any("error", err))
		return fallback
	}
	return ps
}

// TogglePattern adds p, or removes it when the same pattern is already
// applied with the same type. Applying a pattern with the other type
// replaces it.
func TogglePattern(ps []Pattern, p Pattern) []Pattern {
	out := slices.Clone(ps)
	idx := slices.IndexFunc(out, func(x Pattern) bool { return x.Pattern == p.Pattern })
	if idx >= 0 {
		if out[idx].Type == p.Type {
			return slices.Delete(out, idx, idx+1)
		}
		out[idx] = p
		return out
	}
	return append(out, p)
}
