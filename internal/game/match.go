package game

import (
	"fmt"
	"strings"
)

// Match is the game state of one lobby. It performs no I/O and no locking;
// the owner serializes access.
type Match struct {
	id                int
	board             Board
	status            Status
	statusBeforePause Status
	seats             [2]seat
}

// NewMatch creates the match for lobby id in its initial configuration
func NewMatch(id int) *Match {
	m := &Match{id: id}
	m.reset()
	return m
}

// reset restores the starting board and drops every identity, including
// detached ones
func (m *Match) reset() {
	m.board = NewBoard()
	ComputeHints(&m.board, PlayerOne)
	m.status = StatusEnded
	m.statusBeforePause = StatusEnded
	m.seats = [2]seat{}
}

// ID returns the lobby id
func (m *Match) ID() int {
	return m.id
}

// Status returns the current status
func (m *Match) Status() Status {
	return m.status
}

// Board returns a copy of the board
func (m *Match) Board() Board {
	return m.board
}

// AssignSlot seats a player in the first empty slot
func (m *Match) AssignSlot(p Player) Slot {
	if p.Username == "" || p.Conn == NoConn {
		return Rejected
	}
	for i := range m.seats {
		if m.seats[i].state == slotEmpty {
			m.seats[i] = seat{state: slotOccupied, conn: p.Conn, username: p.Username}
			return Slot(i + 1)
		}
	}
	return SlotFull
}

// IsOccupiedBy reports whether conn is seated live in this match
func (m *Match) IsOccupiedBy(conn ConnID) bool {
	return m.SlotOf(conn) != NoSlot
}

// SlotOf returns the slot conn is seated in, or NoSlot
func (m *Match) SlotOf(conn ConnID) Slot {
	if conn == NoConn {
		return NoSlot
	}
	for i := range m.seats {
		if m.seats[i].state == slotOccupied && m.seats[i].conn == conn {
			return Slot(i + 1)
		}
	}
	return NoSlot
}

// Reconnect rebinds a detached seat whose username matches p to p's
// connection and resumes a paused game. Returns NoSlot when nothing matched.
func (m *Match) Reconnect(p Player) Slot {
	if p.Username == "" || p.Conn == NoConn {
		return NoSlot
	}
	for i := range m.seats {
		s := &m.seats[i]
		if s.state != slotDetached || s.username != p.Username {
			continue
		}
		s.state = slotOccupied
		s.conn = p.Conn
		if m.status == StatusPaused {
			m.status = m.statusBeforePause
		}
		return Slot(i + 1)
	}
	return NoSlot
}

// Leave removes conn from the match. During an active game the seat is
// detached and the game paused; otherwise the identity is dropped and the
// lobby is reset once nobody live is left. Returns the slot that left.
func (m *Match) Leave(conn ConnID) Slot {
	slot := m.SlotOf(conn)
	if slot == NoSlot {
		return NoSlot
	}
	s := m.seat(slot)

	if m.status.Active() {
		m.statusBeforePause = m.status
		m.status = StatusPaused
		s.state = slotDetached
		s.conn = NoConn
		s.rematch = false
		return slot
	}

	*s = seat{}
	if m.vacant() {
		m.reset()
	}
	return slot
}

// vacant reports whether no seat holds a live connection
func (m *Match) vacant() bool {
	for i := range m.seats {
		if m.seats[i].state == slotOccupied {
			return false
		}
	}
	return true
}

// Full reports whether both seats hold live connections
func (m *Match) Full() bool {
	return m.seats[0].state == slotOccupied && m.seats[1].state == slotOccupied
}

// CanAct returns the slot of conn if it is that slot's turn, else NoSlot
func (m *Match) CanAct(conn ConnID) Slot {
	slot := m.SlotOf(conn)
	if slot == NoSlot || m.status != slot.Turn() {
		return NoSlot
	}
	return slot
}

// ApplyTurn plays (x,y) for slot and advances the turn. When the opponent has
// no move the same slot keeps the turn; when neither side can move the game ends.
func (m *Match) ApplyTurn(x, y int, slot Slot) bool {
	if slot != SlotOne && slot != SlotTwo || !inBounds(x, y) {
		return false
	}
	if c := m.board[y][x]; c != Empty && c != Hint {
		return false
	}
	if !ApplyMove(&m.board, x, y, slot.Piece()) {
		return false
	}

	opponent := slot.Other()
	switch {
	case ComputeHints(&m.board, opponent.Piece()):
		m.status = opponent.Turn()
	case ComputeHints(&m.board, slot.Piece()):
		m.status = slot.Turn()
	default:
		ClearHints(&m.board)
		m.status = StatusEnded
	}
	return true
}

// Score returns the disc count of slot
func (m *Match) Score(slot Slot) int {
	return Score(&m.board, slot.Piece())
}

// Winner returns the leading slot or Draw
func (m *Match) Winner() Slot {
	return Winner(&m.board)
}

// BoardStateDigest is the STATE payload: 64 cell digits, both scores and the status
func (m *Match) BoardStateDigest() string {
	var sb strings.Builder
	sb.Grow(BoardSize*BoardSize + 12)
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			sb.WriteByte(byte('0' + m.board[y][x]))
		}
	}
	fmt.Fprintf(&sb, " %d %d %d", m.Score(SlotOne), m.Score(SlotTwo), int(m.status))
	return sb.String()
}

// Start begins a fresh game once both seats are live
func (m *Match) Start() bool {
	if !m.Full() {
		return false
	}
	m.Restart()
	return true
}

// SetRematchVote records a rematch request from conn after a finished game
func (m *Match) SetRematchVote(conn ConnID) bool {
	slot := m.SlotOf(conn)
	if slot == NoSlot || m.status != StatusEnded {
		return false
	}
	m.seat(slot).rematch = true
	return true
}

// BothVoted reports whether both live players asked for a rematch
func (m *Match) BothVoted() bool {
	return m.Full() && m.seats[0].rematch && m.seats[1].rematch
}

// Restart clears votes and starts over from the opening position
func (m *Match) Restart() {
	for i := range m.seats {
		m.seats[i].rematch = false
	}
	m.board = NewBoard()
	ComputeHints(&m.board, PlayerOne)
	m.status = StatusPlayerOneTurn
	m.statusBeforePause = StatusEnded
}

// Username returns the name held by slot, live or detached
func (m *Match) Username(slot Slot) string {
	if s := m.seat(slot); s != nil {
		return s.username
	}
	return ""
}

// Conn returns the live connection of slot, or NoConn
func (m *Match) Conn(slot Slot) ConnID {
	if s := m.seat(slot); s != nil && s.state == slotOccupied {
		return s.conn
	}
	return NoConn
}

// Detached reports whether slot holds an identity waiting to reconnect
func (m *Match) Detached(slot Slot) bool {
	s := m.seat(slot)
	return s != nil && s.state == slotDetached
}

func (m *Match) seat(slot Slot) *seat {
	switch slot {
	case SlotOne:
		return &m.seats[0]
	case SlotTwo:
		return &m.seats[1]
	}
	return nil
}

// String summarizes the match for debug logs
func (m *Match) String() string {
	return fmt.Sprintf("lobby %d [%s] %q vs %q (%d-%d)",
		m.id, m.status, m.Username(SlotOne), m.Username(SlotTwo),
		m.Score(SlotOne), m.Score(SlotTwo))
}
