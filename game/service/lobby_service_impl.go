package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wricardo/naval-duel/game/engine"
)

// ErrArchiveDisabled is returned by match lookups when no archive is configured
var ErrArchiveDisabled = errors.New("match archive disabled")

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	rooms   RoomStore
	archive MatchArchive
	configs ConfigManager
	conns   ConnectionCounter
	rules   engine.Rules
}

// NewLobbyService creates a lobby service. archive and conns may be nil.
func NewLobbyService(rooms RoomStore, archive MatchArchive, configs ConfigManager, conns ConnectionCounter, rules engine.Rules) LobbyService {
	return &lobbyServiceImpl{
		rooms:   rooms,
		archive: archive,
		configs: configs,
		conns:   conns,
		rules:   rules,
	}
}

// ListJoinable returns rooms waiting for a second player in creation order
func (s *lobbyServiceImpl) ListJoinable(ctx context.Context) ([]RoomListing, error) {
	return s.rooms.ListJoinable(), nil
}

// ListRooms returns summaries of every live room
func (s *lobbyServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	return s.rooms.Summaries(), nil
}

// GetRoom returns the summary of one live room
func (s *lobbyServiceImpl) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	info, err := s.rooms.Summary(roomID)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	return info, nil
}

// ListMatches returns archived matches, most recently finished first
func (s *lobbyServiceImpl) ListMatches(ctx context.Context) ([]*MatchRecord, error) {
	if s.archive == nil {
		return []*MatchRecord{}, nil
	}

	ids, err := s.archive.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	records := make([]*MatchRecord, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := s.archive.Load(id)
		if err != nil {
			// Skip unreadable records
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})
	return records, nil
}

// GetMatch loads one archived match
func (s *lobbyServiceImpl) GetMatch(ctx context.Context, matchID string) (*MatchRecord, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.Load(matchID)
}

// ListConfigs returns every rule set in the config directory
func (s *lobbyServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig returns a rule set by name
func (s *lobbyServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Rules, error) {
	if configName == "" {
		return s.configs.GetDefault(), nil
	}

	rules, err := s.configs.LoadConfig(configName)
	if err != nil {
		available, listErr := s.configs.ListConfigs()
		if listErr == nil && len(available) > 0 {
			ids := make([]string, 0, len(available))
			for _, cfg := range available {
				ids = append(ids, cfg.ConfigID)
			}
			return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, err, ids)
		}
		return nil, fmt.Errorf("config '%s': %w", configName, err)
	}
	return rules, nil
}

// ActiveRules returns the rule set new rooms are created with
func (s *lobbyServiceImpl) ActiveRules(ctx context.Context) engine.Rules {
	return s.rules
}

// Stats reports current activity
func (s *lobbyServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	summaries := s.rooms.Summaries()

	stats := &Stats{
		Rooms:         len(summaries),
		JoinableRooms: len(s.rooms.ListJoinable()),
		Rules:         s.rules.Name,
	}
	for _, info := range summaries {
		if info.Ready && info.Winner == "" {
			stats.ActiveMatches++
		}
	}
	if s.conns != nil {
		stats.Connections = s.conns.ConnectionCount()
	}
	if s.archive != nil {
		ids, err := s.archive.ListAll()
		if err != nil {
			return nil, fmt.Errorf("failed to count matches: %w", err)
		}
		stats.ArchivedMatches = len(ids)
	}

	return stats, nil
}
