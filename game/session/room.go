package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

// Room is a live match: an unguessable id, a display name, and the game it
// guards. All access to the game goes through Do, which serializes it.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu      sync.Mutex
	game    *engine.Game
	players atomic.Int32
	closed  atomic.Bool
}

func newRoom(id, name string, createdAt time.Time, rules engine.Rules) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		game:      engine.NewGame(rules),
	}
}

// Do runs fn with exclusive access to the room's game. It returns
// ErrRoomNotFound without calling fn once the room has been removed.
func (r *Room) Do(fn func(g *engine.Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrRoomNotFound
	}
	err := fn(r.game)
	r.players.Store(int32(r.game.PlayerCount()))
	return err
}

// PlayerCount returns the number of seated players without taking the room lock
func (r *Room) PlayerCount() int {
	return int(r.players.Load())
}

// Closed reports whether the room has been removed from its registry
func (r *Room) Closed() bool {
	return r.closed.Load()
}

// Listing returns the lobby entry for the room
func (r *Room) Listing() service.RoomListing {
	return service.RoomListing{ID: r.ID, Name: r.Name}
}

// Summary returns a fleet-free description of the room
func (r *Room) Summary() *service.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := &service.RoomInfo{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		Players:   r.game.Nicks(),
		Ready:     r.game.Ready(),
		Turn:      r.game.Turn(),
		Winner:    r.game.Winner(),
	}
	for _, nick := range info.Players {
		info.ShotsFired += len(r.game.Player(nick).Shots())
	}
	return info
}
