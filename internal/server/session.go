package server

import (
	"errors"

	"reversi-game/internal/events"
	"reversi-game/internal/game"
	"reversi-game/internal/lobby"
	"reversi-game/internal/network"
	"reversi-game/pkg/logger"
)

// maxUsernameLength bounds the name chosen with CREATE
const maxUsernameLength = 20

// Outbound is one line addressed to a connection
type Outbound struct {
	To   game.ConnID
	Line string
}

// Coordinator turns decoded commands into registry operations and the lines
// that must be sent as a result. It never performs network I/O itself and
// publishes events only after the registry has released its locks.
type Coordinator struct {
	registry     *lobby.Registry
	codec        *network.Codec
	events       events.Publisher
	maxMalformed int
	log          *logger.Logger
}

// NewCoordinator wires a coordinator. A nil publisher discards events.
func NewCoordinator(registry *lobby.Registry, codec *network.Codec, pub events.Publisher, maxMalformed int) *Coordinator {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Coordinator{
		registry:     registry,
		codec:        codec,
		events:       pub,
		maxMalformed: maxMalformed,
		log:          logger.Game,
	}
}

// batch collects the outcome of one command while a lobby is locked
type batch struct {
	out    []Outbound
	events []events.Event
}

func (b *batch) send(to game.ConnID, lines ...string) {
	if to == game.NoConn {
		return
	}
	for _, line := range lines {
		b.out = append(b.out, Outbound{To: to, Line: line})
	}
}

// broadcast sends lines to every live seat of m
func (b *batch) broadcast(m *game.Match, lines ...string) {
	b.send(m.Conn(game.SlotOne), lines...)
	b.send(m.Conn(game.SlotTwo), lines...)
}

func (b *batch) emit(m *game.Match, kind events.Kind) *events.Event {
	b.events = append(b.events, events.Event{
		Kind:    kind,
		Lobby:   m.ID(),
		Player1: m.Username(game.SlotOne),
		Player2: m.Username(game.SlotTwo),
		Score1:  m.Score(game.SlotOne),
		Score2:  m.Score(game.SlotTwo),
		Status:  int(m.Status()),
	})
	return &b.events[len(b.events)-1]
}

func (c *Coordinator) flush(b *batch) []Outbound {
	for _, e := range b.events {
		c.events.Publish(e)
	}
	return b.out
}

// turnOf maps an active status to the slot about to move
func turnOf(s game.Status) game.Slot {
	switch s {
	case game.StatusPlayerOneTurn:
		return game.SlotOne
	case game.StatusPlayerTwoTurn:
		return game.SlotTwo
	}
	return game.NoSlot
}

func (c *Coordinator) startLines(m *game.Match) []string {
	return []string{
		c.codec.Start(turnOf(m.Status()), m.Username(game.SlotOne), m.Username(game.SlotTwo), m.ID()),
		c.codec.State(m.BoardStateDigest()),
	}
}

// Handle processes one inbound line for p. closeConn is set once p has sent
// more malformed lines than tolerated.
func (c *Coordinator) Handle(p *game.Player, line string) (out []Outbound, closeConn bool) {
	cmd, err := c.codec.Decode(line)
	if err != nil {
		switch {
		case errors.Is(err, network.ErrEmptyLine):
		case errors.Is(err, network.ErrMissingMarker):
			p.MalformedCount++
			logger.Network.Warn("Malformed message from %s (%d/%d): %v",
				p.Conn, p.MalformedCount, c.maxMalformed, err)
			if p.MalformedCount > c.maxMalformed {
				logger.Network.Warn("Closing %s: too many malformed messages", p.Conn)
				return nil, true
			}
		default:
			logger.Network.Warn("Dropped message from %s: %v", p.Conn, err)
		}
		return nil, false
	}

	logger.Network.Debug("Received %s from %s", cmd.Type, p.Conn)

	switch cmd.Type {
	case network.MsgCreate:
		return c.handleCreate(p, cmd.Username), false
	case network.MsgJoin:
		return c.handleJoin(p, cmd.LobbyID), false
	case network.MsgExit:
		return c.handleExit(p, cmd.LobbyID), false
	case network.MsgMove:
		return c.handleMove(p, cmd.X, cmd.Y, cmd.LobbyID), false
	case network.MsgRematch:
		return c.handleRematch(p, cmd.LobbyID), false
	case network.MsgHeartbeat:
		return nil, false
	}
	return nil, false
}

// handleCreate names the player and either resumes a paused game held
// under that name or lists the lobbies
func (c *Coordinator) handleCreate(p *game.Player, username string) []Outbound {
	if len(username) > maxUsernameLength {
		c.log.Warn("Rejected username of %d characters from %s", len(username), p.Conn)
		return nil
	}
	if p.Username != "" && p.Username != username {
		c.log.Warn("%s tried to rename %q to %q", p.Conn, p.Username, username)
		return nil
	}
	p.Username = username

	var b batch
	resumed := c.registry.Reconnect(*p, func(m *game.Match, slot game.Slot) {
		b.send(p.Conn, c.startLines(m)...)
		b.send(m.Conn(slot.Other()), c.codec.Reconnect())
		b.emit(m, events.GameResumed).Slot = int(slot)
	})
	if resumed {
		c.log.Info("Player %s resumed a paused game", username)
		return c.flush(&b)
	}

	c.log.Info("Player %s created on %s", username, p.Conn)
	b.send(p.Conn, c.codec.Lobby(c.registry.Count()))
	return c.flush(&b)
}

func (c *Coordinator) handleJoin(p *game.Player, lobbyID int) []Outbound {
	var b batch
	err := c.registry.Join(lobbyID, *p, func(m *game.Match, slot game.Slot) {
		switch slot {
		case game.SlotOne, game.SlotTwo:
			b.send(p.Conn, c.codec.Connect(slot))
			c.log.Info("Player %s joined lobby %d as player %d", p.Username, lobbyID, slot)
			if m.Full() && m.Start() {
				b.broadcast(m, c.startLines(m)...)
				b.emit(m, events.GameStarted)
				c.log.Info("Lobby %d: game started between %s and %s",
					lobbyID, m.Username(game.SlotOne), m.Username(game.SlotTwo))
			}
		case game.SlotFull:
			b.send(p.Conn, c.codec.Connect(slot))
			c.log.Info("Lobby %d is full, %s turned away", lobbyID, p.Username)
		default:
			c.log.Warn("Lobby %d rejected %s: choose a name with CREATE first", lobbyID, p.Conn)
		}
	})
	switch {
	case errors.Is(err, lobby.ErrAlreadyInLobby):
		c.log.Warn("Player %s is already in a lobby", p.Username)
	case err != nil:
		c.log.Warn("JOIN from %s: %v (%d)", p.Conn, err, lobbyID)
	}
	return c.flush(&b)
}

// leaveOutcome notifies the remaining opponent and records what the leave did
func (c *Coordinator) leaveOutcome(b *batch, m *game.Match, slot game.Slot) {
	if slot == game.NoSlot {
		return
	}
	b.send(m.Conn(slot.Other()), c.codec.Disconnect(slot))

	switch {
	case m.Status() == game.StatusPaused && m.Detached(slot):
		b.emit(m, events.GamePaused).Slot = int(slot)
		c.log.Info("Lobby %d paused: player %d disconnected", m.ID(), slot)
	case m.Username(game.SlotOne) == "" && m.Username(game.SlotTwo) == "":
		b.emit(m, events.GameReset)
		c.log.Info("Lobby %d is empty and was reset", m.ID())
	default:
		c.log.Info("Player %d left lobby %d", slot, m.ID())
	}
}

func (c *Coordinator) handleExit(p *game.Player, lobbyID int) []Outbound {
	var b batch
	err := c.registry.Leave(lobbyID, p.Conn, func(m *game.Match, slot game.Slot) {
		if slot == game.NoSlot {
			c.log.Warn("EXIT from %s: not seated in lobby %d", p.Conn, lobbyID)
		}
		c.leaveOutcome(&b, m, slot)
	})
	if err != nil {
		c.log.Warn("EXIT from %s: %v (%d)", p.Conn, err, lobbyID)
	}
	return c.flush(&b)
}

func (c *Coordinator) handleMove(p *game.Player, x, y, lobbyID int) []Outbound {
	if x < 0 || x >= game.BoardSize || y < 0 || y >= game.BoardSize {
		c.log.Warn("MOVE from %s outside the board: (%d, %d)", p.Conn, x, y)
		return nil
	}

	var b batch
	err := c.registry.With(lobbyID, func(m *game.Match) {
		slot := m.CanAct(p.Conn)
		if slot == game.NoSlot {
			c.log.Info("Lobby %d: not %s's turn", lobbyID, p.Username)
			return
		}
		if !m.ApplyTurn(x, y, slot) {
			c.log.Info("Lobby %d: illegal move (%d, %d) by player %d", lobbyID, x, y, slot)
			return
		}

		b.broadcast(m, c.codec.State(m.BoardStateDigest()))
		b.emit(m, events.MoveApplied).Move = &events.Move{X: x, Y: y}

		switch m.Status() {
		case game.StatusEnded:
			winner := m.Winner()
			b.broadcast(m, c.codec.End(winner))
			w := int(winner)
			b.emit(m, events.GameEnded).Winner = &w
			c.log.Info("Lobby %d: game over, winner %d (%d-%d)",
				lobbyID, winner, m.Score(game.SlotOne), m.Score(game.SlotTwo))
		case slot.Turn():
			b.broadcast(m, c.codec.Pass())
			b.emit(m, events.TurnPassed).Slot = int(slot.Other())
			c.log.Info("Lobby %d: player %d has no move and passes", lobbyID, slot.Other())
		}
	})
	if err != nil {
		c.log.Warn("MOVE from %s: %v (%d)", p.Conn, err, lobbyID)
	}
	return c.flush(&b)
}

func (c *Coordinator) handleRematch(p *game.Player, lobbyID int) []Outbound {
	var b batch
	err := c.registry.With(lobbyID, func(m *game.Match) {
		if !m.SetRematchVote(p.Conn) {
			c.log.Info("Lobby %d: rematch vote from %s ignored", lobbyID, p.Conn)
			return
		}
		if !m.BothVoted() {
			return
		}
		m.Restart()
		b.broadcast(m, c.startLines(m)...)
		b.emit(m, events.GameStarted)
		c.log.Info("Lobby %d: rematch started", lobbyID)
	})
	if err != nil {
		c.log.Warn("REMATCH from %s: %v (%d)", p.Conn, err, lobbyID)
	}
	return c.flush(&b)
}

// Disconnect releases whatever lobby seat p holds after its connection is gone
func (c *Coordinator) Disconnect(p *game.Player) []Outbound {
	var b batch
	c.registry.LeaveAll(p.Conn, func(m *game.Match, slot game.Slot) {
		c.leaveOutcome(&b, m, slot)
	})
	return c.flush(&b)
}
