// Package network implements the line-based text protocol spoken with clients
package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reversi-game/internal/game"
)

// MessageType is the command word following the protocol marker
type MessageType string

const (
	// Client commands
	MsgCreate    MessageType = "CREATE"
	MsgJoin      MessageType = "JOIN"
	MsgExit      MessageType = "EXIT"
	MsgMove      MessageType = "MOVE"
	MsgRematch   MessageType = "REMATCH"
	MsgHeartbeat MessageType = "HEARTBEAT"

	// Server messages
	MsgConnect    MessageType = "CONNECT"
	MsgDisconnect MessageType = "DISCONNECT"
	MsgReconnect  MessageType = "RECONNECT"
	MsgStart      MessageType = "START"
	MsgState      MessageType = "STATE"
	MsgLobby      MessageType = "LOBBY"
	MsgEnd        MessageType = "END"
	MsgPass       MessageType = "PASS"
)

// DefaultMarker prefixes every message
const DefaultMarker = "REV"

var (
	ErrEmptyLine      = errors.New("empty line")
	ErrMissingMarker  = errors.New("missing protocol marker")
	ErrUnknownCommand = errors.New("unknown command")
	ErrArity          = errors.New("wrong number of arguments")
	ErrBadNumber      = errors.New("numeric argument expected")
)

// arity is the number of arguments after the command word
var arity = map[MessageType]int{
	MsgCreate:    1,
	MsgJoin:      1,
	MsgExit:      1,
	MsgMove:      3,
	MsgRematch:   1,
	MsgHeartbeat: 0,
}

// Command is one decoded client line
type Command struct {
	Type     MessageType
	Username string
	LobbyID  int
	X        int
	Y        int
}

// Codec decodes client lines and encodes server lines for one marker
type Codec struct {
	Marker string
}

// NewCodec creates a codec; an empty marker selects DefaultMarker
func NewCodec(marker string) *Codec {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Codec{Marker: marker}
}

// Decode parses a single line without its trailing newline. The marker must
// be a whole token: "REVCREATE" or "REVX CREATE" is a missing marker.
func (c *Codec) Decode(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrEmptyLine
	}
	if fields[0] != c.Marker {
		return nil, fmt.Errorf("%w: %q", ErrMissingMarker, fields[0])
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: no command", ErrArity)
	}

	cmd := &Command{Type: MessageType(fields[1])}
	want, ok := arity[cmd.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[1])
	}
	args := fields[2:]
	if len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, cmd.Type, want, len(args))
	}

	var err error
	switch cmd.Type {
	case MsgCreate:
		cmd.Username = args[0]
	case MsgJoin, MsgExit, MsgRematch:
		cmd.LobbyID, err = parseInt(args[0])
	case MsgMove:
		if cmd.X, err = parseInt(args[0]); err != nil {
			break
		}
		if cmd.Y, err = parseInt(args[1]); err != nil {
			break
		}
		cmd.LobbyID, err = parseInt(args[2])
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Type, err)
	}
	return cmd, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return n, nil
}

// Encode builds a server line (newline not included)
func (c *Codec) Encode(msgType MessageType, args ...interface{}) string {
	var sb strings.Builder
	sb.WriteString(c.Marker)
	sb.WriteByte(' ')
	sb.WriteString(string(msgType))
	for _, a := range args {
		sb.WriteByte(' ')
		fmt.Fprint(&sb, a)
	}
	return sb.String()
}

// Helpers for each server message

func (c *Codec) Connect(slot game.Slot) string {
	return c.Encode(MsgConnect, int(slot))
}

func (c *Codec) Disconnect(slot game.Slot) string {
	return c.Encode(MsgDisconnect, int(slot))
}

func (c *Codec) Reconnect() string {
	return c.Encode(MsgReconnect)
}

// Start announces a game; turn is the slot about to move
func (c *Codec) Start(turn game.Slot, player1, player2 string, lobbyID int) string {
	return c.Encode(MsgStart, int(turn), player1, player2, lobbyID)
}

// State sends a board digest. Hint cells go out as empty; clients derive
// their own legal moves.
func (c *Codec) State(digest string) string {
	board, rest, found := strings.Cut(digest, " ")
	board = strings.Map(func(r rune) rune {
		if r == rune('0'+game.Hint) {
			return rune('0' + game.Empty)
		}
		return r
	}, board)
	if found {
		return c.Encode(MsgState, board, rest)
	}
	return c.Encode(MsgState, board)
}

func (c *Codec) Lobby(count int) string {
	return c.Encode(MsgLobby, count)
}

func (c *Codec) End(winner game.Slot) string {
	return c.Encode(MsgEnd, int(winner))
}

func (c *Codec) Pass() string {
	return c.Encode(MsgPass)
}
