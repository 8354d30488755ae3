package game

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) Player {
	return Player{Conn: uuid.New(), Username: name}
}

// startedMatch returns a match with alice in slot one and bob in slot two
// and the game running
func startedMatch(t *testing.T) (*Match, Player, Player) {
	t.Helper()
	m := NewMatch(0)
	alice, bob := named("alice"), named("bob")
	require.Equal(t, SlotOne, m.AssignSlot(alice))
	require.Equal(t, SlotTwo, m.AssignSlot(bob))
	require.True(t, m.Start())
	return m, alice, bob
}

func TestNewMatchInitialConfiguration(t *testing.T) {
	assert := assert.New(t)
	m := NewMatch(2)

	assert.Equal(2, m.ID())
	assert.Equal(StatusEnded, m.Status())
	b := m.Board()
	assert.Len(hintSet(&b), 4, "hints computed for player one")
	assert.Equal(2, m.Score(SlotOne))
	assert.Equal(2, m.Score(SlotTwo))
}

func TestAssignSlot(t *testing.T) {
	assert := assert.New(t)
	m := NewMatch(0)
	alice, bob, carol := named("alice"), named("bob"), named("carol")

	assert.Equal(Rejected, m.AssignSlot(Player{Conn: uuid.New()}), "empty username")
	assert.Equal(Rejected, m.AssignSlot(Player{Username: "ghost"}), "no connection")

	assert.Equal(SlotOne, m.AssignSlot(alice))
	assert.Equal(SlotTwo, m.AssignSlot(bob))
	assert.Equal(SlotFull, m.AssignSlot(carol))

	assert.Equal(alice.Conn, m.Conn(SlotOne))
	assert.Equal(bob.Conn, m.Conn(SlotTwo))
	assert.Equal("alice", m.Username(SlotOne))
	assert.Equal("bob", m.Username(SlotTwo))
	assert.False(m.IsOccupiedBy(carol.Conn))
	assert.True(m.IsOccupiedBy(alice.Conn))
	assert.False(m.IsOccupiedBy(NoConn))
}

func TestStartRequiresBothSeats(t *testing.T) {
	m := NewMatch(0)
	m.AssignSlot(named("alice"))

	assert.False(t, m.Start())
	assert.Equal(t, StatusEnded, m.Status())
}

func TestCanActEnforcesTurnOrder(t *testing.T) {
	assert := assert.New(t)
	m, alice, bob := startedMatch(t)

	assert.Equal(SlotOne, m.CanAct(alice.Conn))
	assert.Equal(NoSlot, m.CanAct(bob.Conn))
	assert.Equal(NoSlot, m.CanAct(uuid.New()))

	require.True(t, m.ApplyTurn(2, 3, SlotOne))
	assert.Equal(StatusPlayerTwoTurn, m.Status())
	assert.Equal(NoSlot, m.CanAct(alice.Conn))
	assert.Equal(SlotTwo, m.CanAct(bob.Conn))
}

func TestApplyTurnRejectsOccupiedAndIllegal(t *testing.T) {
	assert := assert.New(t)
	m, _, _ := startedMatch(t)
	before := m.Board()

	assert.False(m.ApplyTurn(3, 3, SlotOne), "occupied")
	assert.False(m.ApplyTurn(0, 0, SlotOne), "no capture")
	assert.False(m.ApplyTurn(8, 0, SlotOne), "out of bounds")
	assert.False(m.ApplyTurn(2, 3, NoSlot), "no slot")
	assert.Equal(before, m.Board())
	assert.Equal(StatusPlayerOneTurn, m.Status())
}

func TestApplyTurnPassesWhenOpponentIsStuck(t *testing.T) {
	assert := assert.New(t)
	m, alice, _ := startedMatch(t)
	m.board = parseBoard(t,
		"XO......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"......OX",
	)

	require.True(t, m.ApplyTurn(2, 0, SlotOne))

	assert.Equal(StatusPlayerOneTurn, m.Status(), "player two passes")
	assert.Equal(SlotOne, m.CanAct(alice.Conn))
	b := m.Board()
	assert.True(hintSet(&b)[[2]int{5, 7}])
}

func TestApplyTurnEndsGame(t *testing.T) {
	assert := assert.New(t)
	m, _, _ := startedMatch(t)
	m.board = parseBoard(t,
		"XO......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
	)

	require.True(t, m.ApplyTurn(2, 0, SlotOne))

	assert.Equal(StatusEnded, m.Status())
	assert.Equal(SlotOne, m.Winner())
	b := m.Board()
	assert.Empty(hintSet(&b))
}

func TestApplyTurnEndsInDraw(t *testing.T) {
	m, _, _ := startedMatch(t)
	m.board = parseBoard(t,
		"XO......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"OOO.....",
	)

	require.True(t, m.ApplyTurn(2, 0, SlotOne))

	assert.Equal(t, StatusEnded, m.Status())
	assert.Equal(t, Draw, m.Winner())
}

func TestBoardStateDigest(t *testing.T) {
	m, _, _ := startedMatch(t)

	fields := strings.Fields(m.BoardStateDigest())
	require.Len(t, fields, 4)
	assert.Equal(t, "0000000000000000000300000032100000012300000030000000000000000000", fields[0])
	assert.Equal(t, []string{"2", "2", "1"}, fields[1:])
}

func TestLeaveDuringGamePausesAndReconnectResumes(t *testing.T) {
	assert := assert.New(t)
	m, alice, bob := startedMatch(t)
	require.True(t, m.ApplyTurn(2, 3, SlotOne))
	board := m.Board()

	assert.Equal(SlotOne, m.Leave(alice.Conn))
	assert.Equal(StatusPaused, m.Status())
	assert.True(m.Detached(SlotOne))
	assert.Equal(NoConn, m.Conn(SlotOne))
	assert.Equal("alice", m.Username(SlotOne))
	assert.Equal(NoSlot, m.CanAct(bob.Conn), "paused game is frozen")
	assert.Equal(SlotFull, m.AssignSlot(named("carol")), "detached seat is not vacant")

	assert.Equal(NoSlot, m.Reconnect(named("mallory")))
	back := named("alice")
	assert.Equal(SlotOne, m.Reconnect(back))
	assert.Equal(StatusPlayerTwoTurn, m.Status())
	assert.Equal(board, m.Board(), "board survives the pause")
	assert.Equal(back.Conn, m.Conn(SlotOne))
	assert.False(m.IsOccupiedBy(alice.Conn), "old connection is gone")
}

func TestReconnectIgnoresLiveSeats(t *testing.T) {
	m, alice, _ := startedMatch(t)

	assert.Equal(t, NoSlot, m.Reconnect(named("alice")))
	assert.Equal(t, alice.Conn, m.Conn(SlotOne))
}

func TestBothLeavingPausedGameResetsLobby(t *testing.T) {
	assert := assert.New(t)
	m, alice, bob := startedMatch(t)
	m.ApplyTurn(2, 3, SlotOne)

	m.Leave(alice.Conn)
	assert.Equal(SlotTwo, m.Leave(bob.Conn))

	assert.Equal(StatusEnded, m.Status())
	assert.False(m.Detached(SlotOne), "zombie discarded")
	assert.Equal("", m.Username(SlotOne))
	assert.Equal(NewMatch(0).Board(), m.Board())
	assert.Equal(NoSlot, m.Reconnect(named("alice")))
}

func TestLeaveAfterGameEndDropsIdentity(t *testing.T) {
	assert := assert.New(t)
	m, alice, bob := startedMatch(t)
	m.status = StatusEnded

	assert.Equal(SlotOne, m.Leave(alice.Conn))
	assert.False(m.Detached(SlotOne))
	assert.Equal("", m.Username(SlotOne))
	assert.Equal(bob.Conn, m.Conn(SlotTwo))

	carol := named("carol")
	assert.Equal(SlotOne, m.AssignSlot(carol))
	require.True(t, m.Start())
	assert.Equal(NewMatch(0).Board(), m.Board(), "new game starts from the opening")
}

func TestLeaveUnknownConnection(t *testing.T) {
	m, _, _ := startedMatch(t)
	assert.Equal(t, NoSlot, m.Leave(uuid.New()))
	assert.Equal(t, StatusPlayerOneTurn, m.Status())
}

func TestRematch(t *testing.T) {
	assert := assert.New(t)
	m, alice, bob := startedMatch(t)

	assert.False(m.SetRematchVote(alice.Conn), "game still running")

	m.status = StatusEnded
	assert.True(m.SetRematchVote(alice.Conn))
	assert.False(m.BothVoted())
	assert.False(m.SetRematchVote(uuid.New()))
	assert.True(m.SetRematchVote(bob.Conn))
	assert.True(m.BothVoted())

	m.Restart()
	assert.False(m.BothVoted())
	assert.Equal(StatusPlayerOneTurn, m.Status())
	assert.Equal(NewMatch(0).Board(), m.Board())
}

func TestRematchVoteClearedWhenPlayerLeaves(t *testing.T) {
	m, alice, bob := startedMatch(t)
	m.status = StatusEnded
	m.SetRematchVote(alice.Conn)
	m.SetRematchVote(bob.Conn)

	m.Leave(alice.Conn)
	carol := named("carol")
	m.AssignSlot(carol)

	assert.False(t, m.BothVoted())
}
