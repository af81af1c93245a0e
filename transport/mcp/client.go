package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Naval Duel",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Naval Duel - MCP Interface

This is a thin, read-only client that proxies requests to the REST API of a
naval duel server. Matches themselves are played by browsers over WebSocket.

AVAILABLE TOOLS:
- list_rooms: Rooms waiting for a second player
- list_all_rooms: Every live room with players, turn and shot count
- get_room: One room summary
- server_stats: Rooms, active matches and open connections
- list_matches: Archived results, newest first
- get_match: One archived result with per-player accuracy
- list_configs: Rule-set files the server can load
- game_rules: The rules of the game and the active rule set`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List rooms that are waiting for a second player",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_all_rooms",
		Description: "List every live room with its players, turn owner and shots fired",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListAllRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the summary of one live room. Fleet positions are never exposed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get room, match and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	// Archived matches
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List archived match results, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of matches to return",
					"minimum":     1,
				},
				"winner": map[string]interface{}{
					"type":        "string",
					"description": "Only matches won by this nick",
				},
			},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get one archived match with per-player statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": map[string]interface{}{
					"type":        "string",
					"description": "Match ID (the id of the room it was played in)",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List the rule-set files the server can load with --rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules of naval duel and show the active rule set",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments, or an empty map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                   `json:"count"`
		Rooms []service.RoomListing `json:"rooms"`
	}

	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No rooms are waiting for a player."), nil
	}

	result := fmt.Sprintf("Joinable Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		result += fmt.Sprintf("- %s (%s)\n", r.Name, r.ID)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListAllRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                 `json:"count"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}

	if err := c.apiCall(ctx, "GET", "/api/rooms/all", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		result += formatRoomLine(r)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := arguments(request)["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var room service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&room)), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Rules: %s\nRooms: %d (%d waiting for a player)\nActive matches: %d\nConnections: %d\nArchived matches: %d\n",
		stats.Rules, stats.Rooms, stats.JoinableRooms, stats.ActiveMatches, stats.Connections, stats.ArchivedMatches)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if winner, ok := args["winner"].(string); ok && winner != "" {
		query.Set("winner", winner)
	}

	path := "/api/matches"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count   int                    `json:"count"`
		Total   int                    `json:"total"`
		Matches []*service.MatchRecord `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Archived Matches (%d of %d):\n\n", response.Count, response.Total)
	for _, m := range response.Matches {
		result += fmt.Sprintf("- %s: %s won (%s, %s, %s)\n",
			m.ID, m.Winner, m.Rules, m.FinishedAt.Format(time.RFC3339), m.Duration().Round(time.Second))
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, _ := arguments(request)["match_id"].(string)
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var match service.MatchRecord
	if err := c.apiCall(ctx, "GET", "/api/matches/"+url.PathEscape(matchID), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatch(&match)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []*service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Rule Sets:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("- %s (ID: %s, File: %s)\n", cfg.Name, cfg.ConfigID, cfg.Filename)
		result += fmt.Sprintf("  Board %dx%d, %ds reconnect grace, strict turns: %v\n",
			cfg.BoardSize, cfg.BoardSize, cfg.GraceSeconds, cfg.StrictTurns)
		if cfg.Description != "" {
			result += fmt.Sprintf("  %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rules engine.Rules
	if err := c.apiCall(ctx, "GET", "/api/rules", nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("NAVAL DUEL\n\n")
	b.WriteString("Two players each place a fleet of five ships on their own board, then take\n")
	b.WriteString("turns firing at cells of the opponent's board.\n\n")
	b.WriteString("FLEET:\n")
	for _, t := range engine.RequiredShipTypes {
		b.WriteString(fmt.Sprintf("- %s (%d cells)\n", t, t.Size()))
	}
	b.WriteString("\nSHOTS:\n")
	b.WriteString("- MISS: no ship on the cell; the turn passes to the opponent\n")
	b.WriteString("- HIT: a ship was struck; the shooter fires again\n")
	b.WriteString("- DESTROY: the hit sank a ship; the shooter fires again\n")
	b.WriteString("\nThe first player to sink all five enemy ships wins. A player who loses their\n")
	b.WriteString("connection has a grace period to reconnect before the room is closed.\n")

	b.WriteString(fmt.Sprintf("\nACTIVE RULE SET: %s\n", rules.Name))
	if rules.Description != "" {
		b.WriteString(rules.Description + "\n")
	}
	b.WriteString(fmt.Sprintf("- Board: %dx%d\n", rules.BoardSize, rules.BoardSize))
	b.WriteString(fmt.Sprintf("- Reconnect grace: %ds\n", rules.GraceSeconds))
	if rules.StrictTurns {
		b.WriteString("- Strict turns: shooting out of turn or at a cell already shot is rejected\n")
	} else {
		b.WriteString("- Strict turns: off\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

func formatRoomLine(r *service.RoomInfo) string {
	status := "waiting"
	switch {
	case r.Winner != "":
		status = "won by " + r.Winner
	case r.Ready:
		status = "turn: " + r.Turn
	}
	return fmt.Sprintf("- %s (%s) players=[%s] %s shots=%d\n",
		r.Name, r.ID, strings.Join(r.Players, ", "), status, r.ShotsFired)
}

func formatRoomInfo(r *service.RoomInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Room: %s\nID: %s\nCreated: %s\n", r.Name, r.ID, r.CreatedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Players: %s\n", strings.Join(r.Players, ", ")))
	if !r.Ready {
		b.WriteString("Status: waiting for a second player\n")
		return b.String()
	}
	if r.Winner != "" {
		b.WriteString(fmt.Sprintf("Status: won by %s\n", r.Winner))
	} else {
		b.WriteString(fmt.Sprintf("Status: in play, %s to shoot\n", r.Turn))
	}
	b.WriteString(fmt.Sprintf("Shots fired: %d\n", r.ShotsFired))
	return b.String()
}

func formatMatch(m *service.MatchRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Match: %s (%s)\nRules: %s\nWinner: %s\nDuration: %s\n\n",
		m.Name, m.ID, m.Rules, m.Winner, m.Duration().Round(time.Second)))
	for _, p := range m.Players {
		b.WriteString(fmt.Sprintf("%s: %d shots, %d hits (%.0f%%), sank %d, lost %d\n",
			p.Nick, p.ShotsFired, p.Hits, p.Accuracy()*100, p.ShipsSunk, p.ShipsLost))
	}
	return b.String()
}
