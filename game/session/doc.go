// Package session provides room management for Naval Duel.
//
// The session package implements:
//   - The registry of live rooms with unguessable ids
//   - Room creation and joining with fleet validation
//   - The joinable-rooms lobby list in creation order
//   - Exactly-once room removal
//   - Archiving of finished matches to JSON files
//
// Core Types:
//
// Registry is the table of live rooms. Room wraps one engine.Game behind a
// mutex; every read or write of the game goes through Room.Do so that shot
// resolution, win detection and the turn flip are observed as one step.
// FileArchive stores a MatchRecord for every decided match.
//
// Room Identifiers:
//
// Rooms are identified by random v4 UUIDs so that a room cannot be found or
// hijacked by guessing a sequential id.
//
// Concurrency:
//
// The registry map has its own read/write lock and never takes a room lock
// while holding it, which lets callers add or remove rooms from inside
// Room.Do. The number of seated players is mirrored in an atomic so lobby
// listings never wait on a busy room.
//
// Usage:
//
//	registry := session.NewRegistry(rules, logger)
//
//	room, err := registry.Create("alice", "alice", connID, fleet)
//	if err != nil {
//		return err
//	}
//
//	_, err = registry.Join(room.ID, "bob", otherConnID, otherFleet)
//
//	err = room.Do(func(g *engine.Game) error {
//		_, err := g.Play("alice", engine.Coordinate{X: 3, Y: 4})
//		return err
//	})
//
// Lifecycle:
//
// A room is removed exactly once: when a player leaves, when a match is won,
// or when a disconnected player's grace period runs out. Remove reports true
// only to the caller that actually removed the room. Live rooms are never
// persisted; only finished matches reach the archive.
package session
