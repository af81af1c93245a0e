package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrNickTaken    = errors.New("nick already seated in room")
)

// Option configures a Registry
type Option func(*Registry)

// WithIDGenerator replaces the random room id source
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// WithClock replaces time.Now for room creation timestamps
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) {
		r.now = fn
	}
}

// Registry is the table of live rooms. Its map is guarded by its own lock,
// and it never acquires a room lock while holding it, so callers may call
// into the registry from inside Room.Do.
type Registry struct {
	rules  engine.Rules
	logger *slog.Logger
	newID  func() string
	now    func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

// NewRegistry creates an empty registry whose rooms follow rules
func NewRegistry(rules engine.Rules, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		rules:  rules,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
		rooms:  make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns the rule set new rooms are created with
func (r *Registry) Rules() engine.Rules {
	return r.rules
}

// Create opens a room named displayName with nick seated as player one
func (r *Registry) Create(displayName, nick, connID string, fleet engine.Fleet) (*Room, error) {
	if err := engine.ValidateFleet(fleet, r.rules.BoardSize); err != nil {
		return nil, err
	}

	room := newRoom(r.newID(), displayName, r.now(), r.rules)
	room.game.AddPlayer(engine.NewPlayer(nick, connID, fleet))
	room.players.Store(1)

	r.mu.Lock()
	if _, exists := r.rooms[room.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("room id collision: %s", room.ID)
	}
	r.rooms[room.ID] = room
	r.order = append(r.order, room.ID)
	r.mu.Unlock()

	r.logger.Info("room created", "room_id", room.ID, "name", displayName, "nick", nick)
	return room, nil
}

// Join seats nick as player two. The optional then callbacks run under the
// room lock right after the seat is taken, so anything they enqueue is
// ordered before any later operation on the room.
func (r *Registry) Join(roomID, nick, connID string, fleet engine.Fleet, then ...func(room *Room, g *engine.Game)) (*Room, error) {
	room := r.Get(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if err := engine.ValidateFleet(fleet, r.rules.BoardSize); err != nil {
		return nil, err
	}

	err := room.Do(func(g *engine.Game) error {
		if g.Ready() {
			return ErrRoomFull
		}
		if g.Player(nick) != nil {
			return fmt.Errorf("%w: %s", ErrNickTaken, nick)
		}
		g.AddPlayer(engine.NewPlayer(nick, connID, fleet))
		for _, fn := range then {
			fn(room, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("room ready", "room_id", roomID, "nick", nick)
	return room, nil
}

// Get returns the live room with id, or nil
func (r *Registry) Get(roomID string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// Remove deletes a room. It is idempotent and reports true only to the call
// that actually removed it.
func (r *Registry) Remove(roomID string) bool {
	r.mu.Lock()
	room, exists := r.rooms[roomID]
	if !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.rooms, roomID)
	for i, id := range r.order {
		if id == roomID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	room.closed.Store(true)
	r.mu.Unlock()

	r.logger.Info("room removed", "room_id", roomID)
	return true
}

// ListJoinable returns rooms with exactly one seated player in creation order
func (r *Registry) ListJoinable() []service.RoomListing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []service.RoomListing{}
	for _, id := range r.order {
		room := r.rooms[id]
		if room.PlayerCount() == 1 {
			out = append(out, room.Listing())
		}
	}
	return out
}

// Summaries describes every live room in creation order
func (r *Registry) Summaries() []*service.RoomInfo {
	rooms := r.snapshot()
	out := make([]*service.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	return out
}

// Summary describes one live room
func (r *Registry) Summary(roomID string) (*service.RoomInfo, error) {
	room := r.Get(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.Summary(), nil
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// snapshot copies the room list so room locks are taken outside r.mu
func (r *Registry) snapshot() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*Room, 0, len(r.order))
	for _, id := range r.order {
		rooms = append(rooms, r.rooms[id])
	}
	return rooms
}
