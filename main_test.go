package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/transport/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(t *testing.T) options {
	t.Helper()
	return options{
		host:       "127.0.0.1",
		port:       0,
		configDir:  "configs",
		matchesDir: filepath.Join(t.TempDir(), "matches"),
		staticDir:  t.TempDir(),
		logFormat:  "text",
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Naval Duel Server" {
		t.Errorf("Expected app name Naval Duel Server, got %s", AppName)
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := setupLogger(&buf, false, "json")
	logger.Debug("hidden")
	logger.Info("shown", "room_id", "r1")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("Debug lines should be dropped without --debug")
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &line); err != nil {
		t.Fatalf("Expected one JSON log line, got %q", output)
	}
	if line["room_id"] != "r1" {
		t.Errorf("Expected room_id attribute, got %v", line)
	}

	buf.Reset()
	setupLogger(&buf, true, "text").Debug("visible")
	if !strings.Contains(buf.String(), "visible") || !strings.Contains(buf.String(), "source=") {
		t.Errorf("Expected debug text line with source, got %q", buf.String())
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := initializeServices(testOptions(t), discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	if svc.rules.Name != "classic" {
		t.Errorf("Expected classic rules by default, got %s", svc.rules.Name)
	}
	if svc.registry.Rules().GraceSeconds != engine.DefaultGraceSeconds {
		t.Errorf("Expected %ds grace, got %d", engine.DefaultGraceSeconds, svc.registry.Rules().GraceSeconds)
	}
}

func TestInitializeServices_Rules(t *testing.T) {
	opts := testOptions(t)
	opts.rules = "strict"

	svc, err := initializeServices(opts, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	if !svc.registry.Rules().StrictTurns {
		t.Error("Expected strict turns from the strict rule set")
	}
}

func TestInitializeServices_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*options)
	}{
		{"missing config dir", func(o *options) { o.configDir = "/non/existent/path" }},
		{"unknown rule set", func(o *options) { o.rules = "no-such-rules" }},
		{"unreachable nats", func(o *options) { o.natsURL = "nats://127.0.0.1:1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.modify(&opts)
			if _, err := initializeServices(opts, discardLogger()); err == nil {
				t.Error("Expected initialization error")
			}
		})
	}
}

func TestInitializeServices_ArchiveDisabled(t *testing.T) {
	opts := testOptions(t)
	opts.matchesDir = ""

	svc, err := initializeServices(opts, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	router := newRouter(svc, mcp.NewClient("http://unused"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/matches/any", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without an archive, got %d", w.Code)
	}
}

func TestRouter(t *testing.T) {
	svc, err := initializeServices(testOptions(t), discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	server := httptest.NewUnstartedServer(nil)
	server.Config.Handler = newRouter(svc, mcp.NewClient("http://"+server.Listener.Addr().String()))
	server.Start()
	defer server.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", "GET", "/health", "", http.StatusOK, "healthy"},
		{"rules", "GET", "/api/rules", "", http.StatusOK, `"name":"classic"`},
		{"lobby", "GET", "/api/rooms", "", http.StatusOK, `"count":0`},
		{"mcp ping", "POST", "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, http.StatusOK, `"result"`},
		{"mcp requires POST", "GET", "/mcp", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("Expected %q in body, got %s", tt.wantBody, body)
			}
		})
	}
}

func TestFindExternalServer(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
		}
	}))
	defer healthy.Close()

	if !findExternalServer(healthy.URL) {
		t.Error("Expected the healthy server to be found")
	}
	if findExternalServer("http://127.0.0.1:1") {
		t.Error("Expected no server on a closed port")
	}
}

func TestStartInternalServer(t *testing.T) {
	svc, err := initializeServices(testOptions(t), discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	baseURL, httpServer, err := startInternalServer(svc)
	if err != nil {
		t.Fatalf("startInternalServer: %v", err)
	}
	defer httpServer.Close()

	if !strings.HasPrefix(baseURL, "http://127.0.0.1:") {
		t.Errorf("Expected a loopback URL, got %s", baseURL)
	}
	if !findExternalServer(baseURL) {
		t.Error("Expected the internal server to answer /health")
	}
}

func TestApp(t *testing.T) {
	t.Setenv("NGROK_DOMAIN", "duel.example.com")
	t.Setenv("NATS_PREFIX", "test.rooms")

	var got options
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		got = optionsFrom(cmd)
		return nil
	}

	if err := app.Run(context.Background(), []string{"navalduel", "--port", "9090", "--rules", "strict", "--debug"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.port != 9090 || got.rules != "strict" || !got.debug {
		t.Errorf("Expected flags to be parsed, got %+v", got)
	}
	if got.ngrokDomain != "duel.example.com" || got.natsPrefix != "test.rooms" {
		t.Errorf("Expected env sources to apply, got %+v", got)
	}
	if got.addr() != got.host+":9090" {
		t.Errorf("Unexpected addr %s", got.addr())
	}
}

func TestApp_Version(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	if err := app.Run(context.Background(), []string{"navalduel", "version"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), AppName+" v"+Version) {
		t.Errorf("Unexpected version output %q", out.String())
	}
}

func TestApp_Commands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"server", "http", "stdio-mcp", "mcp-stdio", "mcp", "version"} {
		if app.Command(name) == nil {
			t.Errorf("Expected command %q", name)
		}
	}
}
