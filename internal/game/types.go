package game

import "github.com/google/uuid"

// BoardSize is the width and height of the board
const BoardSize = 8

// Cell is the content of one board square
type Cell int

const (
	Empty     Cell = 0
	PlayerOne Cell = 1
	PlayerTwo Cell = 2
	Hint      Cell = 3
)

// Board is stored row-major: board[y][x]
type Board [BoardSize][BoardSize]Cell

// Status is the lobby game status, also sent on the wire as its integer value
type Status int

const (
	StatusEnded         Status = 0
	StatusPlayerOneTurn Status = 1
	StatusPlayerTwoTurn Status = 2
	StatusPaused        Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusEnded:
		return "ended"
	case StatusPlayerOneTurn:
		return "player1_turn"
	case StatusPlayerTwoTurn:
		return "player2_turn"
	case StatusPaused:
		return "paused"
	}
	return "unknown"
}

// Active reports whether a player is expected to move
func (s Status) Active() bool {
	return s == StatusPlayerOneTurn || s == StatusPlayerTwoTurn
}

// Slot is a player position in a match. The integer values match the
// numbers used by the protocol (CONNECT, START, DISCONNECT, END).
type Slot int

const (
	NoSlot   Slot = 0
	SlotOne  Slot = 1
	SlotTwo  Slot = 2
	SlotFull Slot = 3
)

// Rejected is returned by AssignSlot for an identity that cannot be seated
const Rejected Slot = -1

// Piece returns the board cell owned by the slot
func (s Slot) Piece() Cell {
	if s == SlotTwo {
		return PlayerTwo
	}
	return PlayerOne
}

// Turn returns the status value meaning "this slot moves"
func (s Slot) Turn() Status {
	if s == SlotTwo {
		return StatusPlayerTwoTurn
	}
	return StatusPlayerOneTurn
}

// Other returns the opposing slot
func (s Slot) Other() Slot {
	if s == SlotOne {
		return SlotTwo
	}
	return SlotOne
}

// Draw is the winner value reported when both scores are equal
const Draw Slot = 0

// ConnID identifies one live connection. A reconnecting client gets a new one.
type ConnID = uuid.UUID

// NoConn is the zero connection id
var NoConn = uuid.Nil

// Player is the identity a connection plays under
type Player struct {
	Conn           ConnID
	Username       string
	MalformedCount int
}

// NewPlayer creates an unnamed identity bound to a fresh connection id
func NewPlayer() *Player {
	return &Player{Conn: uuid.New()}
}

// slotState tags what a match slot currently holds
type slotState int

const (
	slotEmpty slotState = iota
	slotOccupied
	slotDetached
)

// seat is one match slot. The identity is a copy owned by the slot.
type seat struct {
	state    slotState
	conn     ConnID
	username string
	rematch  bool
}
