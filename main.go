// Command navalduel starts the Naval Duel server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, the WebSocket gateway, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, rule sets, the match archive, logging, optional
// NATS event publishing, and optional ngrok tunneling for easy external
// access during development. Every flag can also be set from the environment
// or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/naval-duel/api"
	"github.com/wricardo/naval-duel/game/config"
	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/events"
	"github.com/wricardo/naval-duel/game/service"
	"github.com/wricardo/naval-duel/game/session"
	"github.com/wricardo/naval-duel/transport/mcp"
	"github.com/wricardo/naval-duel/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Naval Duel Server"
)

// options is the resolved command line
type options struct {
	host        string
	port        int
	configDir   string
	rules       string
	matchesDir  string
	staticDir   string
	debug       bool
	logFormat   string
	natsURL     string
	natsPrefix  string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        int(cmd.Int("port")),
		configDir:   cmd.String("config-dir"),
		rules:       cmd.String("rules"),
		matchesDir:  cmd.String("matches-dir"),
		staticDir:   cmd.String("static-dir"),
		debug:       cmd.Bool("debug"),
		logFormat:   cmd.String("log-format"),
		natsURL:     cmd.String("nats-url"),
		natsPrefix:  cmd.String("nats-prefix"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing rule sets", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "rules", Usage: "rule set new rooms use (default: classic)", Sources: cli.EnvVars("RULES")},
		&cli.StringFlag{Name: "matches-dir", Value: "matches", Usage: "directory for archived match results, empty to disable", Sources: cli.EnvVars("MATCHES_DIR")},
		&cli.StringFlag{Name: "static-dir", Value: api.DefaultStaticDir, Usage: "directory served at /", Sources: cli.EnvVars("STATIC_DIR")},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.StringFlag{Name: "log-format", Value: "text", Usage: "log format: text or json", Sources: cli.EnvVars("LOG_FORMAT")},
		&cli.StringFlag{Name: "nats-url", Usage: "publish match lifecycle events to this NATS server", Sources: cli.EnvVars("NATS_URL")},
		&cli.StringFlag{Name: "nats-prefix", Value: events.DefaultPrefix, Usage: "NATS subject prefix", Sources: cli.EnvVars("NATS_PREFIX")},
		&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "navalduel",
		Usage:   "two-player naval combat over WebSocket",
		Version: Version,
		Flags:   flags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with API, WebSocket and MCP endpoint (default)",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server, starting an internal HTTP API if none is running",
				Action:  stdioAction,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger. Debug adds source locations.
func setupLogger(w io.Writer, debug bool, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: debug,
	}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// services holds the wired components of one server process
type services struct {
	logger    *slog.Logger
	rules     engine.Rules
	registry  *session.Registry
	publisher events.Publisher
	hub       *websocket.Hub
	gateway   *websocket.Gateway
	lobby     service.LobbyService
	api       *api.Server
}

// initializeServices wires the registry, gateway, archive and REST API
func initializeServices(opts options, logger *slog.Logger) (*services, error) {
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	rules := configManager.GetDefault()
	if opts.rules != "" {
		if rules, err = configManager.LoadConfig(opts.rules); err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
	}
	logger.Info("rule set loaded", "rules", rules.Name, "board_size", rules.BoardSize,
		"grace_seconds", rules.GraceSeconds, "strict_turns", rules.StrictTurns)

	var publisher events.Publisher = events.NopPublisher{}
	if opts.natsURL != "" {
		nc, err := events.Connect(opts.natsURL, opts.natsPrefix, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("publishing match events", "nats_url", opts.natsURL, "prefix", opts.natsPrefix)
		publisher = nc
	}

	registry := session.NewRegistry(*rules, logger)
	hub := websocket.NewHub(logger)

	gatewayOpts := []websocket.GatewayOption{
		websocket.WithGatewayLogger(logger),
		websocket.WithPublisher(publisher),
	}
	var archive service.MatchArchive
	if opts.matchesDir != "" {
		fa, err := session.NewFileArchive(opts.matchesDir)
		if err != nil {
			publisher.Close()
			return nil, err
		}
		archive = fa
		gatewayOpts = append(gatewayOpts, websocket.WithArchive(fa))
	}

	gateway := websocket.NewGateway(registry, hub, gatewayOpts...)
	hub.SetHandler(gateway)

	lobby := service.NewLobbyService(registry, archive, configManager, hub, *rules)
	apiServer := api.NewServer(lobby,
		api.WithWebSocket(http.HandlerFunc(hub.ServeWS)),
		api.WithStaticDir(opts.staticDir),
	)

	return &services{
		logger:    logger,
		rules:     *rules,
		registry:  registry,
		publisher: publisher,
		hub:       hub,
		gateway:   gateway,
		lobby:     lobby,
		api:       apiServer,
	}, nil
}

// Close stops grace timers, drops every connection and flushes the publisher
func (s *services) Close() {
	s.gateway.Close()
	s.hub.Close()
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("publisher close failed", "error", err)
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API at / and the MCP endpoint at /mcp
func newRouter(s *services, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", s.api)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

func bootstrap(cmd *cli.Command, logOut io.Writer) (options, *services, error) {
	opts := optionsFrom(cmd)
	logger := setupLogger(logOut, opts.debug, opts.logFormat)
	slog.SetDefault(logger)

	svc, err := initializeServices(opts, logger)
	if err != nil {
		return opts, nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return opts, svc, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts, svc, err := bootstrap(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHTTPServer(ctx, opts, svc)
}

// runHTTPServer serves until ctx is cancelled. If ngrok is enabled it also
// provisions a public tunnel onto the same handler.
func runHTTPServer(ctx context.Context, opts options, svc *services) error {
	logger := svc.logger
	addr := opts.addr()
	handler := newRouter(svc, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logger.Info("starting", "app", AppName, "version", Version, "addr", addr)
	logger.Info("endpoints",
		"rest", fmt.Sprintf("http://%s/api", addr),
		"websocket", fmt.Sprintf("ws://%s/ws", addr),
		"mcp", fmt.Sprintf("http://%s/mcp", addr))

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("HTTP server failed", "error", err)
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled
func runNgrok(ctx context.Context, opts options, handler http.Handler, logger *slog.Logger) {
	if opts.ngrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		logger.Info("using custom ngrok domain", "domain", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established", "url", ngrokURL, "websocket", ngrokURL+"/ws", "mcp", ngrokURL+"/mcp")

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
		tun.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	opts, svc, err := bootstrap(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer svc.Close()

	return runStdioMCP(ctx, opts, svc)
}

// findExternalServer reports whether a naval duel server already answers at baseURL
func findExternalServer(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the REST API on a random loopback port and
// returns its base URL
func startInternalServer(svc *services) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	httpServer := &http.Server{Handler: svc.api}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.logger.Error("internal HTTP server error", "error", err)
		}
	}()

	return "http://" + listener.Addr().String(), httpServer, nil
}

// runStdioMCP runs an MCP stdio server against an external API at the
// configured address, or against an internal one when none answers.
func runStdioMCP(ctx context.Context, opts options, svc *services) error {
	logger := svc.logger
	baseURL := "http://" + opts.addr()

	if findExternalServer(baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		internalURL, httpServer, err := startInternalServer(svc)
		if err != nil {
			return err
		}
		defer httpServer.Close()
		baseURL = internalURL
		logger.Info("no external API server found, started internal HTTP server", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
