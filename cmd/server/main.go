// Reversi Lobby Server - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reversi-game/internal/config"
	"reversi-game/internal/events"
	"reversi-game/internal/server"
	"reversi-game/pkg/logger"
)

var (
	version    = "1.0.0"
	buildTime  = "dev"
	configPath = flag.String("config", "", "YAML config file (optional)")
	port       = flag.Int("port", 10001, "Server port")
	host       = flag.String("host", "0.0.0.0", "Server host")
	wsPort     = flag.Int("ws-port", 0, "WebSocket bridge port (0 disables it)")
	lobbies    = flag.Int("lobbies", 5, "Number of lobbies")
	natsURL    = flag.String("nats-url", "", "NATS server URL for game events (optional)")
	logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "Log file path (optional)")
	help       = flag.Bool("help", false, "Show help information")
	ver        = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *help {
		showHelp()
		return
	}
	if *ver {
		showVersion()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger.Server.Info("Starting Reversi Server v%s", version)

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		np, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Server.Fatal("Failed to connect event publisher: %v", err)
		}
		pub = np
		logger.Server.Info("Publishing game events to %s on %s.>", cfg.NATSURL, cfg.NATSSubject)
	}

	gameServer := server.NewServer(cfg, pub)
	setupGracefulShutdown(gameServer, pub)

	if err := gameServer.Start(); err != nil {
		logger.Server.Fatal("Server failed to start: %v", err)
	}
}

// loadConfig reads the config file and applies flags that were set explicitly
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "host":
			cfg.Host = *host
		case "ws-port":
			cfg.WSPort = *wsPort
		case "lobbies":
			cfg.LobbyCount = *lobbies
		case "nats-url":
			cfg.NATSURL = *natsURL
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		}
	})
	return cfg, cfg.Validate()
}

// initLogging sets up the logging system
func initLogging(cfg *config.Config) error {
	level, ok := logger.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logger.INFO
	}
	logger.SetGlobalLogLevel(level)

	if cfg.LogFile != "" {
		if err := logger.Server.SetFile(cfg.LogFile); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Server.Info("Logging to file: %s", cfg.LogFile)
	} else if cfg.LogDir != "" {
		if err := logger.InitializeFileLogging(cfg.LogDir); err != nil {
			// Console logging still works
			logger.Server.Warn("Could not initialize file logging: %v", err)
		}
	}
	return nil
}

// setupGracefulShutdown handles graceful shutdown on interrupt signals
func setupGracefulShutdown(gameServer *server.Server, pub events.Publisher) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Server.Info("Received shutdown signal, stopping server...")
		if err := gameServer.Stop(); err != nil {
			logger.Server.Warn("Shutdown finished with errors: %v", err)
		}
		pub.Close()
		os.Exit(0)
	}()
}

func showHelp() {
	fmt.Printf(`Reversi Server v%s

USAGE:
    %s [OPTIONS]

OPTIONS:
    -config string       YAML config file (optional)
    -port int            Server port (default 10001)
    -host string         Server host (default "0.0.0.0")
    -ws-port int         WebSocket bridge port, 0 disables it (default 0)
    -lobbies int         Number of lobbies (default 5)
    -nats-url string     NATS server URL for game events (optional)
    -log-level string    Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string     Set log file path (optional)
    -help                Show this help message
    -version             Show version information

Flags override values read from -config.

EXAMPLES:
    # Start server with default settings
    %s

    # Debug logging with a WebSocket bridge on 10002
    %s -log-level DEBUG -ws-port 10002

    # Publish game events to a local NATS server
    %s -nats-url nats://127.0.0.1:4222

PROTOCOL:
    Every line starts with the marker REV, for example:
    REV CREATE alice
    REV JOIN 0
    REV MOVE 2 3 0
`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func showVersion() {
	fmt.Printf(`Reversi Server
Version: %s
Build Time: %s
`, version, buildTime)
}
