package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnitNotFound = errors.New("unit not found")
	ErrDuplicateID  = errors.New("duplicate unit id")
)

// Mode is the voting state of the meeting.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeVoting Mode = "voting"
)

// Persister mirrors the roll into durable storage. It is called with the new
// roll before the store commits it.
type Persister interface {
	SaveUnits(ctx context.Context, units []Unit) error
}

// State is a copy of the store contents. Version changes whenever the whole
// roll is replaced, reset or voting changes, so clients know to redraw.
type State struct {
	Units   []Unit `json:"units"`
	Mode    Mode   `json:"mode"`
	Version int    `json:"version"`
}

// Store owns the in-memory roll. Every mutator persists the new roll first and
// only then swaps it in, so a failed write leaves the store untouched.
type Store struct {
	mu        sync.Mutex
	units     []Unit
	mode      Mode
	version   int
	persister Persister
}

func NewStore(units []Unit, persister Persister) (*Store, error) {
	if err := checkUniqueIDs(units); err != nil {
		return nil, err
	}
	units = cloneUnits(units)
	for i := range units {
		units[i].Vote = VoteNone
	}
	return &Store{
		units:     units,
		mode:      ModeIdle,
		persister: persister,
	}, nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	return State{
		Units:   cloneUnits(s.units),
		Mode:    s.mode,
		Version: s.version,
	}
}

// commitLocked persists next and installs it. Callers hold s.mu.
func (s *Store) commitLocked(ctx context.Context, next []Unit, mode Mode, bump bool) (State, error) {
	if s.persister != nil {
		if err := s.persister.SaveUnits(ctx, cloneUnits(next)); err != nil {
			return s.snapshotLocked(), fmt.Errorf("persist roll: %w", err)
		}
	}
	s.units = next
	s.mode = mode
	if bump {
		s.version++
	}
	return s.snapshotLocked(), nil
}

// ReplaceAll swaps in a whole new roll, as delivered by a sheet fetch or a
// file import. The voting mode is kept; absent units lose any vote.
func (s *Store) ReplaceAll(ctx context.Context, units []Unit) (State, error) {
	if err := checkUniqueIDs(units); err != nil {
		return s.Snapshot(), err
	}
	next := cloneUnits(units)
	for i := range next {
		if !next[i].IsPresent {
			next[i].Vote = VoteNone
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, next, s.mode, true)
}

// UpdateOne applies fn to a copy of the unit with the given id. Presence is
// authoritative for votes: a unit that ends up absent has its vote cleared.
func (s *Store) UpdateOne(ctx context.Context, id UnitID, fn func(*Unit)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, id, false, fn)
}

func (s *Store) updateLocked(ctx context.Context, id UnitID, bump bool, fn func(*Unit)) (State, error) {
	idx := s.indexLocked(id)
	if idx < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	next := cloneUnits(s.units)
	fn(&next[idx])
	next[idx].ID = s.units[idx].ID
	if !next[idx].IsPresent {
		next[idx].Vote = VoteNone
	}
	return s.commitLocked(ctx, next, s.mode, bump)
}

func (s *Store) TogglePresence(ctx context.Context, id UnitID) (State, error) {
	return s.UpdateOne(ctx, id, func(u *Unit) {
		u.IsPresent = !u.IsPresent
	})
}

func (s *Store) TogglePowerOfAttorney(ctx context.Context, id UnitID) (State, error) {
	return s.UpdateOne(ctx, id, func(u *Unit) {
		u.HasPowerOfAttorney = !u.HasPowerOfAttorney
	})
}

// RenameOwner changes the owner name only; the baseline stays so the edit
// shows up as pending for the next sheet sync.
func (s *Store) RenameOwner(ctx context.Context, id UnitID, name string) (State, error) {
	return s.UpdateOne(ctx, id, func(u *Unit) {
		u.OwnerName = name
	})
}

// ResetAll clears attendance, proxies and votes and leaves voting mode.
func (s *Store) ResetAll(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneUnits(s.units)
	for i := range next {
		next[i].IsPresent = false
		next[i].HasPowerOfAttorney = false
		next[i].Vote = VoteNone
	}
	return s.commitLocked(ctx, next, ModeIdle, true)
}

// StartVoting enters voting mode with every present unit voting PRO.
func (s *Store) StartVoting(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeVoting {
		return s.snapshotLocked(), nil
	}
	return s.startLocked(ctx)
}

func (s *Store) startLocked(ctx context.Context) (State, error) {
	next := cloneUnits(s.units)
	for i := range next {
		if next[i].IsPresent {
			next[i].Vote = VotePro
		} else {
			next[i].Vote = VoteNone
		}
	}
	return s.commitLocked(ctx, next, ModeVoting, true)
}

// StopVoting leaves voting mode and clears every vote.
func (s *Store) StopVoting(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeIdle {
		return s.snapshotLocked(), nil
	}
	return s.stopLocked(ctx)
}

func (s *Store) stopLocked(ctx context.Context) (State, error) {
	next := cloneUnits(s.units)
	for i := range next {
		next[i].Vote = VoteNone
	}
	return s.commitLocked(ctx, next, ModeIdle, true)
}

func (s *Store) ToggleVoting(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeVoting {
		return s.stopLocked(ctx)
	}
	return s.startLocked(ctx)
}

// CycleVote advances a present unit's vote while voting. Outside voting mode,
// or for an absent unit, it changes nothing.
func (s *Store) CycleVote(ctx context.Context, id UnitID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return s.snapshotLocked(), fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	if s.mode != ModeVoting || !s.units[idx].IsPresent {
		return s.snapshotLocked(), nil
	}
	return s.updateLocked(ctx, id, true, func(u *Unit) {
		u.Vote = u.Vote.Next()
	})
}

// PendingSync lists the units whose owner name was edited since the last
// confirmed sheet sync.
func (s *Store) PendingSync() []Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PendingNameChanges(s.units)
}

// MarkSynced moves the name baseline of the given units to their current
// owner name. Units not listed keep their baseline.
func (s *Store) MarkSynced(ctx context.Context, ids []UnitID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := make(map[UnitID]struct{}, len(ids))
	for _, id := range ids {
		synced[id] = struct{}{}
	}
	next := cloneUnits(s.units)
	for i := range next {
		if _, ok := synced[next[i].ID]; ok {
			next[i].OriginalOwnerName = next[i].OwnerName
		}
	}
	return s.commitLocked(ctx, next, s.mode, false)
}

func (s *Store) indexLocked(id UnitID) int {
	for i := range s.units {
		if s.units[i].ID == id {
			return i
		}
	}
	return -1
}

func checkUniqueIDs(units []Unit) error {
	seen := make(map[UnitID]struct{}, len(units))
	for _, u := range units {
		if _, ok := seen[u.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}
