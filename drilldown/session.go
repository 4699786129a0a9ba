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


// Package drilldown owns the filter state of one exploration session. All
// collections are mutated through transactions; subscribers are notified once
// per committed transaction with the set of categories that changed.
package drilldown

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/cardinalhq/logs-drilldown/filters"
	"github.com/cardinalhq/logs-drilldown/internal/logctx"
	"github.com/cardinalhq/logs-drilldown/logql"
)

// ChangeKind tells subscribers where a change came from.
type ChangeKind int

const (
	// StateChanged is a programmatic change, e.g. restored URL state or a
	// renderer transition.
	StateChanged ChangeKind = iota
	// ValueChanged is a settled user edit.
	ValueChanged
)

func (k ChangeKind) String() string {
	if k == ValueChanged {
		return "value-changed"
	}
	return "state-changed"
}

// Change describes one committed transaction.
type Change struct {
	Kind       ChangeKind
	Categories mapset.Set[filters.Category]
	Version    uint64
	// RunQueries is false for state-changed transactions that only wrote
	// levels; those update level visibility but must not re-run queries.
	RunQueries bool
}

// Snapshot is a copy of the session state at one version.
type Snapshot struct {
	SessionID     uuid.UUID
	Version       uint64
	State         logql.State
	LevelsVisible bool
}

// QueryBuilder returns a query builder over the snapshot.
func (s Snapshot) QueryBuilder(detected logql.DetectedFields) *logql.QueryBuilder {
	return logql.NewQueryBuilder(s.State, detected)
}

// Subscriber receives committed changes. It runs outside the session lock and
// may start new transactions.
type Subscriber func(Snapshot, Change)

type subscription struct {
	id          int
	fn          Subscriber
	queriesOnly bool
}

// Session holds the filter collections of one exploration session.
type Session struct {
	id     uuid.UUID
	logger *slog.Logger

	mu            sync.Mutex
	state         logql.State
	version       uint64
	levelsVisible bool
	subs          []subscription
	nextSub       int
}

// NewSession creates an empty session. The logger is taken from ctx.
func NewSession(ctx context.Context) *Session {
	id := uuid.New()
	return &Session{
		id:     id,
		logger: logctx.FromContext(ctx).With(slog.String("sessionID", id.String())),
	}
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:     s.id,
		Version:       s.version,
		State:         s.state.Clone(),
		LevelsVisible: s.levelsVisible,
	}
}

// Subscribe registers fn for every committed change and returns a function
// removing it.
func (s *Session) Subscribe(fn Subscriber) (unsubscribe func()) {
	return s.subscribe(fn, false)
}

// SubscribeQueries registers fn for changes that require queries to run.
func (s *Session) SubscribeQueries(fn Subscriber) (unsubscribe func()) {
	return s.subscribe(fn, true)
}

func (s *Session) subscribe(fn Subscriber, queriesOnly bool) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn, queriesOnly: queriesOnly})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

// Update runs fn against a copy of the state. When fn returns nil the copy is
// committed and subscribers are notified once; otherwise nothing changes and
// the error is returned. A transaction that leaves the state unchanged
// notifies nobody.
func (s *Session) Update(kind ChangeKind, fn func(*Tx) error) error {
	change, snap, subs, err := s.commit(kind, fn)
	if err != nil || change == nil {
		return err
	}

	s.logger.Debug("Session state committed",
		slog.String("kind", kind.String()),
		slog.Any("categories", change.Categories.ToSlice()),
		slog.Uint64("version", change.Version))

	for _, sub := range subs {
		if sub.queriesOnly && !change.RunQueries {
			continue
		}
		snap := snap
		snap.State = snap.State.Clone()
		sub.fn(snap, *change)
	}
	return nil
}

// commit runs fn and stores its result under the lock. The change is nil
// when nothing was committed.
func (s *Session) commit(kind ChangeKind, fn func(*Tx) error) (*Change, Snapshot, []subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state
	tx := newTx(before.Clone(), s.logger)
	if err := fn(tx); err != nil {
		return nil, Snapshot{}, nil, err
	}

	changed := tx.finish(before)
	if changed.Cardinality() == 0 {
		return nil, Snapshot{}, nil, nil
	}

	s.state = tx.state
	s.version++
	if changed.Contains(filters.Levels) {
		s.levelsVisible = len(s.state.Levels) > 0
	}
	change := &Change{
		Kind:       kind,
		Categories: changed,
		Version:    s.version,
		RunQueries: kind == ValueChanged || !onlyLevels(tx.written),
	}
	return change, s.snapshotLocked(), slices.Clone(s.subs), nil
}

func onlyLevels(written mapset.Set[filters.Category]) bool {
	return written.Cardinality() == 1 && written.Contains(filters.Levels)
}
