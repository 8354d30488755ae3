// Package events publishes match lifecycle events for external consumers
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"reversi-game/pkg/logger"
)

// Kind names a lifecycle event
type Kind string

const (
	GameStarted Kind = "game_started"
	MoveApplied Kind = "move_applied"
	TurnPassed  Kind = "turn_passed"
	GameEnded   Kind = "game_ended"
	GamePaused  Kind = "game_paused"
	GameResumed Kind = "game_resumed"
	GameReset   Kind = "lobby_reset"
)

// Move is the square played by a MoveApplied event
type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event describes something that happened in a lobby
type Event struct {
	Kind      Kind      `json:"kind"`
	Lobby     int       `json:"lobby"`
	Player1   string    `json:"player1,omitempty"`
	Player2   string    `json:"player2,omitempty"`
	Slot      int       `json:"slot,omitempty"`
	Move      *Move     `json:"move,omitempty"`
	Winner    *int      `json:"winner,omitempty"`
	Score1    int       `json:"score1"`
	Score2    int       `json:"score2"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher receives events after the lobby lock has been released
type Publisher interface {
	Publish(e Event)
	Close()
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Close()        {}

// NATSPublisher publishes each event as JSON on <subject>.lobby.<id>
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// ConnectNATS dials the NATS server at url
func ConnectNATS(url, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("reversi-server"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Network.Warn("NATS disconnected: %v", err)
			}
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) encode(e Event) (string, []byte, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s.lobby.%d", p.subject, e.Lobby), data, nil
}

// Publish sends e; failures are logged and dropped
func (p *NATSPublisher) Publish(e Event) {
	subject, data, err := p.encode(e)
	if err != nil {
		logger.Network.Error("Failed to encode %s event: %v", e.Kind, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		logger.Network.Error("Failed to publish %s to %s: %v", e.Kind, subject, err)
	}
}

// Close flushes pending events and closes the connection
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.Network.Warn("NATS drain failed: %v", err)
	}
}
