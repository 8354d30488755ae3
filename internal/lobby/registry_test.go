package lobby

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reversi-game/internal/game"
)

func named(name string) game.Player {
	return game.Player{Conn: uuid.New(), Username: name}
}

func TestNewRegistry(t *testing.T) {
	assert := assert.New(t)

	r := NewRegistry(3)
	assert.Equal(3, r.Count())
	assert.True(r.Valid(0))
	assert.True(r.Valid(2))
	assert.False(r.Valid(3))
	assert.False(r.Valid(-1))

	assert.Equal(DefaultCount, NewRegistry(0).Count())
}

func TestWithRejectsInvalidLobby(t *testing.T) {
	r := NewRegistry(2)
	called := false

	err := r.With(2, func(m *game.Match) { called = true })

	assert.ErrorIs(t, err, ErrInvalidLobby)
	assert.False(t, called)
}

func TestJoinSingleMembership(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(5)
	alice := named("alice")

	var got game.Slot
	require.NoError(t, r.Join(0, alice, func(m *game.Match, slot game.Slot) { got = slot }))
	assert.Equal(game.SlotOne, got)

	err := r.Join(1, alice, func(m *game.Match, slot game.Slot) { t.Fatal("must not assign") })
	assert.ErrorIs(err, ErrAlreadyInLobby)

	id, ok := r.LobbyOf(alice.Conn)
	assert.True(ok)
	assert.Equal(0, id)

	assert.ErrorIs(r.Join(9, named("bob"), nil), ErrInvalidLobby)
}

func TestJoinFullLobbyDoesNotRecordMembership(t *testing.T) {
	r := NewRegistry(2)
	require.NoError(t, r.Join(0, named("alice"), nil))
	require.NoError(t, r.Join(0, named("bob"), nil))

	carol := named("carol")
	var got game.Slot
	require.NoError(t, r.Join(0, carol, func(m *game.Match, slot game.Slot) { got = slot }))

	assert.Equal(t, game.SlotFull, got)
	_, ok := r.LobbyOf(carol.Conn)
	assert.False(t, ok)
	assert.NoError(t, r.Join(1, carol, nil), "may still join elsewhere")
}

func TestLeaveFreesMembership(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(2)
	alice := named("alice")
	require.NoError(t, r.Join(0, alice, nil))

	var left game.Slot
	require.NoError(t, r.Leave(0, alice.Conn, func(m *game.Match, slot game.Slot) { left = slot }))
	assert.Equal(game.SlotOne, left)

	_, ok := r.LobbyOf(alice.Conn)
	assert.False(ok)
	assert.NoError(r.Join(1, alice, nil))
}

func TestLeaveWrongLobbyKeepsMembership(t *testing.T) {
	r := NewRegistry(2)
	alice := named("alice")
	require.NoError(t, r.Join(0, alice, nil))

	var left game.Slot = -2
	require.NoError(t, r.Leave(1, alice.Conn, func(m *game.Match, slot game.Slot) { left = slot }))

	assert.Equal(t, game.NoSlot, left)
	id, ok := r.LobbyOf(alice.Conn)
	assert.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestLeaveAllAndReconnect(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(3)
	alice, bob := named("alice"), named("bob")
	require.NoError(t, r.Join(2, alice, nil))
	require.NoError(t, r.Join(2, bob, nil))
	require.NoError(t, r.With(2, func(m *game.Match) { require.True(t, m.Start()) }))

	var status game.Status
	assert.True(r.LeaveAll(alice.Conn, func(m *game.Match, slot game.Slot) { status = m.Status() }))
	assert.Equal(game.StatusPaused, status)
	assert.False(r.LeaveAll(alice.Conn, nil))

	assert.False(r.Reconnect(named("carol"), nil))

	back := named("alice")
	var lobbyID int
	var slot game.Slot
	assert.True(r.Reconnect(back, func(m *game.Match, s game.Slot) {
		lobbyID, slot, status = m.ID(), s, m.Status()
	}))
	assert.Equal(2, lobbyID)
	assert.Equal(game.SlotOne, slot)
	assert.Equal(game.StatusPlayerOneTurn, status)

	id, ok := r.LobbyOf(back.Conn)
	assert.True(ok)
	assert.Equal(2, id)
}

func TestReconnectRefusedForSeatedConnection(t *testing.T) {
	r := NewRegistry(2)
	alice, bob := named("alice"), named("bob")
	require.NoError(t, r.Join(0, alice, nil))
	require.NoError(t, r.Join(0, bob, nil))
	require.NoError(t, r.With(0, func(m *game.Match) { m.Start() }))
	r.LeaveAll(alice.Conn, nil)

	carol := named("carol")
	require.NoError(t, r.Join(1, carol, nil))
	carol.Username = "alice"

	assert.False(t, r.Reconnect(carol, nil))
}

func TestConcurrentJoinsKeepSingleMembership(t *testing.T) {
	r := NewRegistry(5)
	p := named("racer")

	var wg sync.WaitGroup
	var seated atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.Join(id%r.Count(), p, func(m *game.Match, slot game.Slot) {
				if slot == game.SlotOne || slot == game.SlotTwo {
					seated.Add(1)
				}
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), seated.Load())
}

func TestConcurrentJoinsFillEachLobbyOnce(t *testing.T) {
	r := NewRegistry(1)

	var wg sync.WaitGroup
	var seated, full atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Join(0, named("p"), func(m *game.Match, slot game.Slot) {
				switch slot {
				case game.SlotOne, game.SlotTwo:
					seated.Add(1)
				case game.SlotFull:
					full.Add(1)
				}
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), seated.Load())
	assert.Equal(t, int32(18), full.Load())
}
