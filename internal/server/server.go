// Package server implements the TCP server for the Reversi lobbies
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"reversi-game/internal/config"
	"reversi-game/internal/events"
	"reversi-game/internal/game"
	"reversi-game/internal/lobby"
	"reversi-game/internal/network"
	"reversi-game/pkg/logger"
)

// Server accepts clients over TCP and, optionally, WebSocket
type Server struct {
	cfg         *config.Config
	listener    net.Listener
	wsListener  net.Listener
	httpServer  *http.Server
	clients     map[game.ConnID]*Client
	registry    *lobby.Registry
	coordinator *Coordinator
	mu          sync.RWMutex
	isRunning   atomic.Bool
	wg          sync.WaitGroup
	logger      *logger.Logger
}

// Client represents a connected client
type Client struct {
	ID     game.ConnID
	Player *game.Player
	Conn   LineConn
	mu     sync.Mutex
}

// NewServer creates a server for cfg. pub may be nil.
func NewServer(cfg *config.Config, pub events.Publisher) *Server {
	registry := lobby.NewRegistry(cfg.LobbyCount)
	return &Server{
		cfg:         cfg,
		clients:     make(map[game.ConnID]*Client),
		registry:    registry,
		coordinator: NewCoordinator(registry, network.NewCodec(cfg.Marker), pub, cfg.MaxMalformed),
		logger:      logger.Server,
	}
}

// Listen binds the TCP listener and, when configured, the WebSocket listener
func (s *Server) Listen() error {
	var err error
	s.listener, err = net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.isRunning.Store(true)
	s.logger.Info("Server listening on %s with %d lobbies", s.listener.Addr(), s.registry.Count())

	if addr := s.cfg.WSAddress(); addr != "" {
		s.wsListener, err = net.Listen("tcp", addr)
		if err != nil {
			s.listener.Close()
			return fmt.Errorf("failed to start websocket listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.HandleWebSocket)
		s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := s.httpServer.Serve(s.wsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("WebSocket server failed: %v", err)
			}
		}()
		s.logger.Info("WebSocket bridge listening on %s/ws", s.wsListener.Addr())
	}
	return nil
}

// Addr returns the bound TCP address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts TCP clients until Stop is called
func (s *Server) Serve() error {
	for s.isRunning.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning.Load() {
				return nil
			}
			s.logger.Error("Failed to accept connection: %v", err)
			continue
		}

		if !s.track() {
			conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			s.serveConn(newTCPConn(conn))
		}()
	}
	return nil
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// track registers a connection goroutine with Stop. It fails once the server
// is stopping; the caller then owns the connection and must not serve it.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning.Load() {
		return false
	}
	s.wg.Add(1)
	return true
}

// Stop shuts down the server
func (s *Server) Stop() error {
	s.mu.Lock()
	wasRunning := s.isRunning.Swap(false)
	s.mu.Unlock()
	if !wasRunning {
		return nil
	}

	var errs []error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	// Close all client connections
	s.mu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.mu.RUnlock()

	s.wg.Wait()
	s.logger.Info("Server stopped")
	return errors.Join(errs...)
}

// serveConn runs the read loop of one client on any transport. The caller
// has already registered it with track.
func (s *Server) serveConn(conn LineConn) {
	defer conn.Close()

	player := game.NewPlayer()
	client := &Client{
		ID:     player.Conn,
		Player: player,
		Conn:   conn,
	}

	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()
	s.logger.Info("New client connected: %s from %s", client.ID, conn.RemoteAddr())

	reason := "closed by peer"
	for s.isRunning.Load() {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			reason = err.Error()
			break
		}
		line, err := conn.ReadLine()
		if err != nil {
			switch {
			case isTimeout(err):
				reason = fmt.Sprintf("idle for %s", s.cfg.IdleTimeout)
			case errors.Is(err, io.EOF):
			default:
				reason = err.Error()
			}
			break
		}
		out, closeConn := s.coordinator.Handle(player, line)
		s.deliver(out)
		if closeConn {
			reason = "too many malformed messages"
			break
		}
	}

	s.removeClient(client.ID)
	s.deliver(s.coordinator.Disconnect(player))
	s.logger.Info("Client disconnected: %s (%s)", client.ID, reason)
}

// deliver writes each line to its recipient. Recipients that are gone are
// skipped.
func (s *Server) deliver(out []Outbound) {
	for _, o := range out {
		s.mu.RLock()
		client, ok := s.clients[o.To]
		s.mu.RUnlock()
		if !ok {
			s.logger.Debug("Dropping message for departed client %s", o.To)
			continue
		}
		if err := s.sendMessage(client, o.Line); err != nil {
			s.logger.Warn("Failed to send to %s: %v", client.ID, err)
		}
	}
}

func (s *Server) sendMessage(client *Client, line string) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	s.logger.Debug("Sending to %s: %s", client.ID, line)
	return client.Conn.WriteLine(line)
}

func (s *Server) removeClient(id game.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
