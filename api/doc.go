// Package api provides the HTTP REST API for naval duel servers.
//
// The REST surface is read-only. Rooms are created, joined and played over
// the WebSocket endpoint; the API lets operators, dashboards and the MCP
// proxy look at what is going on.
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - Rooms waiting for a second player
//   - GET /api/rooms/all - Summaries of every live room
//   - GET /api/rooms/{id} - One room summary (never fleet positions)
//
// Matches:
//   - GET /api/matches - Archived results, newest first (?winner=, ?limit=)
//   - GET /api/matches/{id} - One archived result
//
// Configuration:
//   - GET /api/rules - Rule set new rooms use
//   - GET /api/configs - Rule-set files in the config directory
//   - GET /api/configs/{name} - One rule set
//
// Other:
//   - GET /api/stats - Room, match and connection counts
//   - GET /health - Liveness
//   - /ws - WebSocket upgrade, when mounted with WithWebSocket
//
// Errors are returned as {"error": message} with 404 for unknown rooms,
// matches and configs, and 503 when no match archive is configured.
//
// Usage:
//
//	server := api.NewServer(lobby, api.WithWebSocket(http.HandlerFunc(hub.ServeWS)))
//	http.ListenAndServe(":8080", server)
package api
