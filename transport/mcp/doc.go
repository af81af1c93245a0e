// Package mcp exposes a naval duel server to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool is one REST call plus a plain-text
// rendering of the result. Tools are read-only; matches are played over
// WebSocket.
//
// MCP Tools:
//   - list_rooms, list_all_rooms, get_room: live rooms
//   - server_stats: room, match and connection counts
//   - list_matches, get_match: archived results
//   - list_configs, game_rules: rule sets
//
// Transport Modes:
//   - Stdio: `navalduel stdio-mcp` serves the MCP server on stdin/stdout
//   - HTTP: the main server accepts MCP messages on POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
