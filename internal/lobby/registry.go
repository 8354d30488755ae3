// Package lobby holds the fixed set of lobbies shared by every connection
package lobby

import (
	"errors"
	"sync"

	"reversi-game/internal/game"
)

var (
	ErrInvalidLobby   = errors.New("invalid lobby id")
	ErrAlreadyInLobby = errors.New("connection already occupies a lobby")
)

// DefaultCount is the number of lobbies created when none is configured
const DefaultCount = 5

type entry struct {
	mu    sync.Mutex
	match *game.Match
}

// Registry owns one Match per lobby for the process lifetime.
//
// Locking: mu guards the membership index and is held for every operation
// that seats or unseats a connection; each lobby has its own mutex. When both
// are needed mu is taken first. Callbacks run with the lobby locked and must
// only copy values out of the match.
type Registry struct {
	mu      sync.Mutex
	lobbies []*entry
	members map[game.ConnID]int
}

// NewRegistry creates count lobbies with ids 0..count-1
func NewRegistry(count int) *Registry {
	if count <= 0 {
		count = DefaultCount
	}
	r := &Registry{
		lobbies: make([]*entry, count),
		members: make(map[game.ConnID]int),
	}
	for i := range r.lobbies {
		r.lobbies[i] = &entry{match: game.NewMatch(i)}
	}
	return r
}

// Count returns the number of lobbies
func (r *Registry) Count() int {
	return len(r.lobbies)
}

// Valid reports whether id names a lobby
func (r *Registry) Valid(id int) bool {
	return id >= 0 && id < len(r.lobbies)
}

// LobbyOf returns the lobby conn is seated in
func (r *Registry) LobbyOf(conn game.ConnID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.members[conn]
	return id, ok
}

// With runs fn on lobby id under that lobby's lock
func (r *Registry) With(id int, fn func(m *game.Match)) error {
	if !r.Valid(id) {
		return ErrInvalidLobby
	}
	e := r.lobbies[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.match)
	return nil
}

// Join seats p in lobby id unless its connection already occupies a lobby.
// fn receives the AssignSlot outcome, including SlotFull and Rejected.
func (r *Registry) Join(id int, p game.Player, fn func(m *game.Match, slot game.Slot)) error {
	if !r.Valid(id) {
		return ErrInvalidLobby
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[p.Conn]; ok {
		return ErrAlreadyInLobby
	}

	e := r.lobbies[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	slot := e.match.AssignSlot(p)
	if slot == game.SlotOne || slot == game.SlotTwo {
		r.members[p.Conn] = id
	}
	if fn != nil {
		fn(e.match, slot)
	}
	return nil
}

// Leave removes conn from lobby id. fn receives the slot that left, or
// NoSlot when conn was not seated there.
func (r *Registry) Leave(id int, conn game.ConnID, fn func(m *game.Match, slot game.Slot)) error {
	if !r.Valid(id) {
		return ErrInvalidLobby
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(id, conn, fn)
	return nil
}

// LeaveAll removes conn from whichever lobby it occupies and reports whether
// it occupied one
func (r *Registry) LeaveAll(conn game.ConnID, fn func(m *game.Match, slot game.Slot)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.members[conn]
	if !ok {
		return false
	}
	r.leaveLocked(id, conn, fn)
	return true
}

func (r *Registry) leaveLocked(id int, conn game.ConnID, fn func(m *game.Match, slot game.Slot)) {
	e := r.lobbies[id]
	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.match.Leave(conn)
	if slot != game.NoSlot {
		delete(r.members, conn)
	}
	if fn != nil {
		fn(e.match, slot)
	}
}

// Reconnect scans the lobbies in order for a detached seat named like p and
// rebinds the first match to p's connection
func (r *Registry) Reconnect(p game.Player, fn func(m *game.Match, slot game.Slot)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[p.Conn]; ok {
		return false
	}

	for id, e := range r.lobbies {
		e.mu.Lock()
		slot := e.match.Reconnect(p)
		if slot != game.NoSlot {
			r.members[p.Conn] = id
			if fn != nil {
				fn(e.match, slot)
			}
			e.mu.Unlock()
			return true
		}
		e.mu.Unlock()
	}
	return false
}
