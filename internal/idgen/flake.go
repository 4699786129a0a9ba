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


// Package idgen generates the instance id attached to this process's logs
// and telemetry.
package idgen

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

var flake = sync.OnceValue(func() *sonyflake.Sonyflake {
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil
	}
	return sf
})

// NextID returns a positive int64 that increases roughly in time order. It
// falls back to a random value when no machine id can be derived.
func NextID() int64 {
	sf := flake()
	if sf == nil {
		return rand.Int64()
	}
	v, err := sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}

// InstanceID identifies this process for its lifetime.
var InstanceID = sync.OnceValue(NextID)
