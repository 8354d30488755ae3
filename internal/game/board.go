// Package game implements the Reversi board rules and the per-lobby match state machine
package game

import "strings"

var directions = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// NewBoard returns the standard four-disc opening
func NewBoard() Board {
	var b Board
	b[3][3] = PlayerTwo
	b[3][4] = PlayerOne
	b[4][3] = PlayerOne
	b[4][4] = PlayerTwo
	return b
}

func inBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func opponentOf(player Cell) Cell {
	if player == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// capturesToward returns how many opponent discs are sandwiched walking from
// (x,y) in direction (dx,dy), or 0 if the ray does not end on an own disc.
func capturesToward(b *Board, x, y, dx, dy int, player Cell) int {
	opponent := opponentOf(player)
	run := 0
	cx, cy := x+dx, y+dy
	for inBounds(cx, cy) {
		switch b[cy][cx] {
		case opponent:
			run++
		case player:
			return run
		default:
			return 0
		}
		cx += dx
		cy += dy
	}
	return 0
}

// IsLegalMove reports whether player may place a disc at column x, row y
func IsLegalMove(b *Board, x, y int, player Cell) bool {
	if !inBounds(x, y) {
		return false
	}
	if b[y][x] == PlayerOne || b[y][x] == PlayerTwo {
		return false
	}
	for _, d := range directions {
		if capturesToward(b, x, y, d[0], d[1], player) > 0 {
			return true
		}
	}
	return false
}

// ApplyMove places a disc for player at (x,y) and flips every sandwiched run.
// The board is untouched when the move is illegal.
func ApplyMove(b *Board, x, y int, player Cell) bool {
	if !inBounds(x, y) || b[y][x] == PlayerOne || b[y][x] == PlayerTwo {
		return false
	}

	var runs [8]int
	legal := false
	for i, d := range directions {
		runs[i] = capturesToward(b, x, y, d[0], d[1], player)
		if runs[i] > 0 {
			legal = true
		}
	}
	if !legal {
		return false
	}

	for i, d := range directions {
		for step := runs[i]; step >= 1; step-- {
			b[y+d[1]*step][x+d[0]*step] = player
		}
	}
	b[y][x] = player
	return true
}

// ComputeHints replaces all hint cells with the legal moves of player and
// reports whether there is at least one
func ComputeHints(b *Board, player Cell) bool {
	ClearHints(b)

	found := false
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if b[y][x] == Empty && IsLegalMove(b, x, y, player) {
				b[y][x] = Hint
				found = true
			}
		}
	}
	return found
}

// ClearHints turns every hint cell back into an empty cell
func ClearHints(b *Board) {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if b[y][x] == Hint {
				b[y][x] = Empty
			}
		}
	}
}

// Score counts the discs owned by player
func Score(b *Board, player Cell) int {
	count := 0
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if b[y][x] == player {
				count++
			}
		}
	}
	return count
}

// Winner returns the slot with more discs, or Draw
func Winner(b *Board) Slot {
	one, two := Score(b, PlayerOne), Score(b, PlayerTwo)
	switch {
	case one > two:
		return SlotOne
	case two > one:
		return SlotTwo
	}
	return Draw
}

// String renders the board one row per line for logs and tests
func (b Board) String() string {
	var sb strings.Builder
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			switch b[y][x] {
			case PlayerOne:
				sb.WriteByte('X')
			case PlayerTwo:
				sb.WriteByte('O')
			case Hint:
				sb.WriteByte('*')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
