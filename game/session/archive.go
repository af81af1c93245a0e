package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

// ErrMatchNotFound is returned when no archived record has the requested id
var ErrMatchNotFound = errors.New("match not found")

// FileArchive implements service.MatchArchive with one JSON file per match.
// It only ever holds finished matches; live rooms are never written.
type FileArchive struct {
	dir string
}

// NewFileArchive creates a file-backed archive, creating dir if needed
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create matches directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// Save writes a match record to <dir>/<id>.json
func (fa *FileArchive) Save(record *service.MatchRecord) error {
	if record == nil {
		return fmt.Errorf("match record cannot be nil")
	}
	if !validMatchID(record.ID) {
		return fmt.Errorf("invalid match id %q", record.ID)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match record: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial record
	tmp := fa.getFilePath(record.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write match file: %w", err)
	}
	if err := os.Rename(tmp, fa.getFilePath(record.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write match file: %w", err)
	}

	return nil
}

// Load reads a match record by id
func (fa *FileArchive) Load(id string) (*service.MatchRecord, error) {
	if !validMatchID(id) {
		return nil, ErrMatchNotFound
	}

	data, err := os.ReadFile(fa.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to read match file: %w", err)
	}

	var record service.MatchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match record: %w", err)
	}
	return &record, nil
}

// Delete removes a match record
func (fa *FileArchive) Delete(id string) error {
	if !fa.Exists(id) {
		return ErrMatchNotFound
	}
	if err := os.Remove(fa.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove match file: %w", err)
	}
	return nil
}

// ListAll returns the ids of all archived matches
func (fa *FileArchive) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fa.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// Exists checks if a match record exists
func (fa *FileArchive) Exists(id string) bool {
	if !validMatchID(id) {
		return false
	}
	_, err := os.Stat(fa.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a match id
func (fa *FileArchive) getFilePath(id string) string {
	return filepath.Join(fa.dir, id+".json")
}

func validMatchID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}

// NewMatchRecord summarizes a decided game. Call it from inside Room.Do.
func NewMatchRecord(room *Room, g *engine.Game, finishedAt time.Time) *service.MatchRecord {
	record := &service.MatchRecord{
		ID:         room.ID,
		Name:       room.Name,
		Rules:      g.Rules().Name,
		Winner:     g.Winner(),
		StartedAt:  room.CreatedAt,
		FinishedAt: finishedAt,
		Players:    make([]service.PlayerStats, 0, engine.MaxPlayers),
	}

	for _, nick := range g.Nicks() {
		p := g.Player(nick)
		stats := service.PlayerStats{
			Nick:      nick,
			ShipsLost: len(p.DestroyedShips()),
		}
		for _, s := range p.Shots() {
			stats.ShotsFired++
			if s.Result != engine.Miss {
				stats.Hits++
			}
		}
		if opp := g.Opponent(nick); opp != nil {
			stats.ShipsSunk = len(opp.DestroyedShips())
		}
		record.Players = append(record.Players, stats)
	}

	return record
}
