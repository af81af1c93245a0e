package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/naval-duel/api"
	"github.com/wricardo/naval-duel/game/config"
	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
	"github.com/wricardo/naval-duel/game/session"
)

// testStack runs the real REST API over a registry, archive and config dir
type testStack struct {
	registry *session.Registry
	archive  *session.FileArchive
	server   *httptest.Server
	client   *Client
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	configDir := t.TempDir()
	rules := "name: Strict\ndescription: No shooting out of turn\nboard_size: 10\ngrace_seconds: 20\nstrict_turns: true\n"
	if err := os.WriteFile(filepath.Join(configDir, "strict.yaml"), []byte(rules), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	configs, err := config.NewManager(configDir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	archive, err := session.NewFileArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileArchive: %v", err)
	}

	active, err := configs.LoadConfig("strict")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := session.NewRegistry(*active, logger)

	lobby := service.NewLobbyService(registry, archive, configs, nil, *active)
	server := httptest.NewServer(api.NewServer(lobby, api.WithStaticDir(t.TempDir())))
	t.Cleanup(server.Close)

	return &testStack{
		registry: registry,
		archive:  archive,
		server:   server,
		client:   NewClient(server.URL),
	}
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	if args == nil {
		args = map[string]interface{}{}
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("tool returned error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			json.NewEncoder(w).Encode(map[string]string{"id": "r1"})
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "room not found"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var response map[string]string
	if err := client.apiCall(ctx, "GET", "/ok", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "r1" {
		t.Errorf("Expected id r1, got %v", response["id"])
	}

	err := client.apiCall(ctx, "GET", "/missing", nil, nil)
	if err == nil || err.Error() != "room not found" {
		t.Errorf("Expected the API error message, got %v", err)
	}

	err = client.apiCall(ctx, "GET", "/broken", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error', got %v", err)
	}

	if err := NewClient("http://127.0.0.1:1").apiCall(ctx, "GET", "/", nil, nil); err == nil {
		t.Error("Expected error for unreachable server")
	}
}

func TestClient_Rooms(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	text := resultText(t, stack.client.handleListRooms(ctx, callTool("list_rooms", nil)))
	if !strings.Contains(text, "No rooms") {
		t.Errorf("Expected empty lobby, got: %s", text)
	}

	waiting, err := stack.registry.Create("alice's room", "alice", "c1", engine.RowFleet())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	playing, err := stack.registry.Create("carol's room", "carol", "c3", engine.RowFleet())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := stack.registry.Join(playing.ID, "dave", "c4", engine.RowFleet()); err != nil {
		t.Fatalf("Join: %v", err)
	}

	text = resultText(t, stack.client.handleListRooms(ctx, callTool("list_rooms", nil)))
	if !strings.Contains(text, waiting.ID) || strings.Contains(text, playing.ID) {
		t.Errorf("Expected only the waiting room, got: %s", text)
	}

	text = resultText(t, stack.client.handleListAllRooms(ctx, callTool("list_all_rooms", nil)))
	for _, want := range []string{"Live Rooms (2)", "alice's room", "carol, dave", "turn: carol"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %s", want, text)
		}
	}

	text = resultText(t, stack.client.handleGetRoom(ctx, callTool("get_room", map[string]interface{}{"room_id": playing.ID})))
	if !strings.Contains(text, "carol to shoot") {
		t.Errorf("Expected turn in room summary, got: %s", text)
	}
	if strings.Contains(text, "Carrier") {
		t.Errorf("Room summary must not leak fleets: %s", text)
	}

	result, err := stack.client.handleGetRoom(ctx, callTool("get_room", map[string]interface{}{"room_id": "nope"}))
	if err != nil || !result.IsError {
		t.Errorf("Expected a tool error for an unknown room, got %+v, %v", result, err)
	}

	result, _ = stack.client.handleGetRoom(ctx, callTool("get_room", nil))
	if !result.IsError {
		t.Error("Expected a tool error without room_id")
	}

	text = resultText(t, stack.client.handleServerStats(ctx, callTool("server_stats", nil)))
	for _, want := range []string{"Rules: Strict", "Rooms: 2 (1 waiting", "Active matches: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %s", want, text)
		}
	}
}

func TestClient_Matches(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	finished := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []*service.MatchRecord{
		{ID: "m1", Name: "first", Rules: "Strict", Winner: "alice", StartedAt: finished.Add(-5 * time.Minute), FinishedAt: finished,
			Players: []service.PlayerStats{{Nick: "alice", ShotsFired: 20, Hits: 17, ShipsSunk: 5}, {Nick: "bob", ShotsFired: 19, Hits: 9, ShipsLost: 5}}},
		{ID: "m2", Name: "second", Rules: "Strict", Winner: "bob", StartedAt: finished, FinishedAt: finished.Add(time.Hour)},
	}
	for _, r := range records {
		if err := stack.archive.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	text := resultText(t, stack.client.handleListMatches(ctx, callTool("list_matches", nil)))
	if !strings.Contains(text, "(2 of 2)") || strings.Index(text, "m2") > strings.Index(text, "m1") {
		t.Errorf("Expected both matches newest first, got: %s", text)
	}

	text = resultText(t, stack.client.handleListMatches(ctx, callTool("list_matches", map[string]interface{}{"winner": "alice", "limit": float64(5)})))
	if !strings.Contains(text, "m1") || strings.Contains(text, "m2:") {
		t.Errorf("Expected only alice's win, got: %s", text)
	}

	text = resultText(t, stack.client.handleGetMatch(ctx, callTool("get_match", map[string]interface{}{"match_id": "m1"})))
	for _, want := range []string{"Winner: alice", "Duration: 5m0s", "alice: 20 shots, 17 hits (85%)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %s", want, text)
		}
	}

	result, _ := stack.client.handleGetMatch(ctx, callTool("get_match", map[string]interface{}{"match_id": "missing"}))
	if !result.IsError {
		t.Error("Expected a tool error for an unknown match")
	}
}

func TestClient_Rules(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	text := resultText(t, stack.client.handleListConfigs(ctx, callTool("list_configs", nil)))
	for _, want := range []string{"Strict (ID: strict, File: strict.yaml)", "20s reconnect grace", "strict turns: true"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %s", want, text)
		}
	}

	text = resultText(t, stack.client.handleGameRules(ctx, callTool("game_rules", nil)))
	expectedContent := []string{
		"NAVAL DUEL",
		"Carrier (5 cells)",
		"Destroyer (2 cells)",
		"MISS: no ship on the cell",
		"ACTIVE RULE SET: Strict",
		"Reconnect grace: 20s",
		"Strict turns: shooting out of turn",
	}
	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in rules, got: %s", content, text)
		}
	}
}

func TestFormatRoomLine(t *testing.T) {
	tests := []struct {
		name string
		room *service.RoomInfo
		want string
	}{
		{"waiting", &service.RoomInfo{ID: "r1", Name: "a", Players: []string{"alice"}}, "waiting"},
		{"in play", &service.RoomInfo{ID: "r1", Name: "a", Players: []string{"alice", "bob"}, Ready: true, Turn: "bob"}, "turn: bob"},
		{"won", &service.RoomInfo{ID: "r1", Name: "a", Ready: true, Winner: "alice"}, "won by alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRoomLine(tt.room); !strings.Contains(got, tt.want) {
				t.Errorf("formatRoomLine() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
