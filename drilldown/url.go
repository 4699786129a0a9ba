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
	"context"
	"log/slog"
	"net/url"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/internal/logctx"
)

// URLValues persists the snapshot as var-<category> parameters plus the
// patterns JSON.
func (s Snapshot) URLValues() url.Values {
	v := url.Values{}
	for _, c := range filters.AdHocCategories {
		fs, _ := s.State.Get(c)
		filters.SetURLValues(v, c, fs)
	}
	if raw, err := filters.EncodePatterns(s.State.Patterns); err == nil && raw != "" {
		v.Set(filters.PatternsParam, raw)
	}
	return v
}

// LoadURLValues restores the categories present in v. Absent categories keep
// their value. Malformed entries are skipped; the returned error lists them
// and the well formed entries are applied regardless.
func (tx *Tx) LoadURLValues(ctx context.Context, v url.Values) error {
	var errs *multierror.Error
	for _, c := range filters.AdHocCategories {
		if _, ok := v[c.URLParam()]; !ok {
			continue
		}
		fs, err := filters.FromURLValues(v, c)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := tx.Set(c, fs); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if raw, ok := v[filters.PatternsParam]; ok && len(raw) > 0 {
		tx.SetPatterns(filters.DecodePatterns(ctx, raw[0], tx.state.Patterns))
	}
	return errs.ErrorOrNil()
}

// RestoreURL loads persisted state as a state-changed transaction. Decode
// errors are logged and returned after the well formed part is committed.
func (s *Session) RestoreURL(ctx context.Context, v url.Values) error {
	var decodeErr error
	err := s.Update(StateChanged, func(tx *Tx) error {
		decodeErr = tx.LoadURLValues(ctx, v)
		return nil
	})
	if err != nil {
		return err
	}
	if decodeErr != nil {
		logctx.FromContext(ctx).Warn("Skipped malformed persisted filters", slog.Any("error", decodeErr))
	}
	return decodeErr
}
