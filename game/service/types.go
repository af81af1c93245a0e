package service

import (
	"time"
)

// RoomListing is a room reference as sent to clients: the lobby entries and
// the room a player sits in
type RoomListing struct {
	ID   string `json:"roomId"`
	Name string `json:"displayName"`
}

// RoomInfo is a read-only summary of a live room. It never carries fleets.
type RoomInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	Players    []string  `json:"players"`
	Ready      bool      `json:"ready"`
	Turn       string    `json:"turn,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	ShotsFired int       `json:"shots_fired"`
}

// PlayerStats summarizes one side of a finished match
type PlayerStats struct {
	Nick       string `json:"nick"`
	ShotsFired int    `json:"shots_fired"`
	Hits       int    `json:"hits"`
	ShipsSunk  int    `json:"ships_sunk"`
	ShipsLost  int    `json:"ships_lost"`
}

// Accuracy returns hits per shot fired, or 0 when nothing was fired
func (p PlayerStats) Accuracy() float64 {
	if p.ShotsFired == 0 {
		return 0
	}
	return float64(p.Hits) / float64(p.ShotsFired)
}

// MatchRecord is the archived outcome of a won match
type MatchRecord struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Rules      string        `json:"rules"`
	Winner     string        `json:"winner"`
	Players    []PlayerStats `json:"players"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Duration returns how long the match lasted
func (m *MatchRecord) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}

// ConfigInfo provides information about a rule-set file
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to pass to --rules
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	BoardSize    int    `json:"board_size"`
	GraceSeconds int    `json:"grace_seconds"`
	StrictTurns  bool   `json:"strict_turns"`
}

// Stats is a point-in-time snapshot of server activity
type Stats struct {
	Rooms           int    `json:"rooms"`
	JoinableRooms   int    `json:"joinable_rooms"`
	ActiveMatches   int    `json:"active_matches"`
	Connections     int    `json:"connections"`
	ArchivedMatches int    `json:"archived_matches"`
	Rules           string `json:"rules"`
}
