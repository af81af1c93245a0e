// Package service provides the read-only lobby layer for Naval Duel.
//
// The service package implements:
//   - Listing joinable and live rooms
//   - Reading archived match results
//   - Rule-set discovery and loading
//   - Server activity statistics
//
// Core Interfaces:
//
// LobbyService is what the REST API and the MCP tools talk to. RoomStore,
// MatchArchive and ConfigManager are the storage contracts it depends on,
// satisfied by the session and config packages.
//
// Architecture:
//
// Live play never goes through this package. Shots, turns and reconnects
// flow over the WebSocket gateway straight into the room registry; the
// service layer only observes registry summaries, which never contain fleet
// coordinates.
//
// Usage:
//
//	registry := session.NewRegistry(rules, logger)
//	archive, _ := session.NewFileArchive("matches")
//	configs, _ := config.NewManager("configs")
//	lobby := service.NewLobbyService(registry, archive, configs, hub, rules)
//
//	rooms, err := lobby.ListJoinable(ctx)
package service
