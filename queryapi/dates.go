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


package queryapi

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cardinalhq/logs-drilldown/lokiclient"
)

// DefaultLookback is the range used when a request names neither end.
const DefaultLookback = time.Hour

// StepForRange picks the resolution of a range query from its span.
func StepForRange(r lokiclient.TimeRange) time.Duration {
	span := r.End.Sub(r.Start)
	switch {
	case span <= 65*time.Minute:
		return 10 * time.Second
	case span <= 12*time.Hour:
		return time.Minute
	case span <= 24*time.Hour:
		return 5 * time.Minute
	case span <= 72*time.Hour:
		return 20 * time.Minute
	default:
		return time.Hour
	}
}

// parseTime accepts RFC3339 timestamps, unix seconds (optionally
// fractional) and unix nanoseconds, the forms Loki accepts.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if len(s) >= 19 {
		if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(0, ns), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)), nil
}

// resolveRange fills the missing ends of a range: end defaults to now and
// start to DefaultLookback before end.
func resolveRange(start, end string, now time.Time) (lokiclient.TimeRange, error) {
	s, err := parseTime(start)
	if err != nil {
		return lokiclient.TimeRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := parseTime(end)
	if err != nil {
		return lokiclient.TimeRange{}, fmt.Errorf("end: %w", err)
	}
	if e.IsZero() {
		e = now
	}
	if s.IsZero() {
		s = e.Add(-DefaultLookback)
	}
	if !s.Before(e) {
		return lokiclient.TimeRange{}, fmt.Errorf("start %s is not before end %s", s.Format(time.RFC3339), e.Format(time.RFC3339))
	}
	return lokiclient.TimeRange{Start: s, End: e}, nil
}
