package service

import (
	"context"

	"github.com/wricardo/naval-duel/game/engine"
)

// LobbyService defines the read-only operations exposed over REST and MCP.
// Match play itself happens over the WebSocket gateway.
type LobbyService interface {
	// Rooms
	ListJoinable(ctx context.Context) ([]RoomListing, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetRoom(ctx context.Context, roomID string) (*RoomInfo, error)

	// Archived matches
	ListMatches(ctx context.Context) ([]*MatchRecord, error)
	GetMatch(ctx context.Context, matchID string) (*MatchRecord, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Rules, error)
	ActiveRules(ctx context.Context) engine.Rules

	Stats(ctx context.Context) (*Stats, error)
}

// RoomStore is the read side of the room registry
type RoomStore interface {
	ListJoinable() []RoomListing
	Summaries() []*RoomInfo
	Summary(roomID string) (*RoomInfo, error)
	Count() int
}

// MatchArchive stores finished matches
type MatchArchive interface {
	// Save persists a match record
	Save(record *MatchRecord) error

	// Load retrieves a match record by ID
	Load(id string) (*MatchRecord, error)

	// ListAll returns all archived match IDs
	ListAll() ([]string, error)

	// Exists checks if a match record exists
	Exists(id string) bool
}

// ConfigManager handles rule-set loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Rules, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Rules
}

// ConnectionCounter reports the number of open client connections
type ConnectionCounter interface {
	ConnectionCount() int
}
