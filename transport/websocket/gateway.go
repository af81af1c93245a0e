package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/events"
	"github.com/wricardo/naval-duel/game/service"
	"github.com/wricardo/naval-duel/game/session"
)

// Sender delivers events to connections. *Hub implements it.
type Sender interface {
	Send(connID, event string, data any) bool
	Broadcast(event string, data any)
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithGracePeriod overrides how long a dropped player may take to come back
func WithGracePeriod(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.grace = d
	}
}

// Archiver stores finished matches
type Archiver interface {
	Save(record *service.MatchRecord) error
}

// WithArchive records won matches
func WithArchive(archive Archiver) GatewayOption {
	return func(g *Gateway) {
		g.archive = archive
	}
}

// WithPublisher forwards room lifecycle events to an external bus
func WithPublisher(p events.Publisher) GatewayOption {
	return func(g *Gateway) {
		g.publisher = p
	}
}

// WithGatewayLogger sets the gateway logger
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

type binding struct {
	roomID string
	nick   string
}

// graceTimer is compared by pointer; a fired timer that is no longer the
// current one for its key does nothing.
type graceTimer struct {
	t *time.Timer
}

// Gateway binds connections to seats and translates protocol events into
// room operations.
//
// Lock order is g.mu, then a room lock, then the hub. The registry is a
// leaf. lobbyMu only wraps registry reads and hub broadcasts.
type Gateway struct {
	registry  *session.Registry
	out       Sender
	logger    *slog.Logger
	grace     time.Duration
	archive   Archiver
	publisher events.Publisher
	now       func() time.Time

	mu       sync.Mutex
	bindings map[string]binding
	timers   map[binding]*graceTimer

	lobbyMu sync.Mutex
}

// NewGateway creates a gateway over registry sending through out. The grace
// period defaults to the registry's rule set.
func NewGateway(registry *session.Registry, out Sender, opts ...GatewayOption) *Gateway {
	rules := registry.Rules()
	g := &Gateway{
		registry:  registry,
		out:       out,
		logger:    slog.Default(),
		grace:     rules.GracePeriod(),
		publisher: events.NopPublisher{},
		now:       time.Now,
		bindings:  make(map[string]binding),
		timers:    make(map[binding]*graceTimer),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnConnect implements Handler
func (g *Gateway) OnConnect(connID string) {
	g.logger.Debug("connection opened", "conn_id", connID)
}

// OnMessage implements Handler. Failures are logged and otherwise silent.
func (g *Gateway) OnMessage(connID string, msg Inbound) {
	var err error
	switch msg.Event {
	case EventCreateRoom:
		var req CreateRoomRequest
		if err = msg.Bind(&req); err == nil {
			g.CreateRoom(connID, req)
		}
	case EventJoinRoom:
		var req JoinRoomRequest
		if err = msg.Bind(&req); err == nil {
			g.JoinRoom(connID, req)
		}
	case EventAfterConnect:
		var req AfterConnectRequest
		if err = msg.Bind(&req); err == nil {
			g.AfterConnect(connID, req)
		}
	case EventAvailableRooms:
		g.BroadcastLobby()
	case EventShoot:
		var req ShootRequest
		if err = msg.Bind(&req); err == nil {
			g.Shoot(connID, req)
		}
	case EventTurnEnded:
		var req TurnEndedRequest
		if msg.HasData() {
			err = msg.Bind(&req)
		}
		if err == nil {
			g.EndTurn(connID, req)
		}
	case EventApplyDisconnect:
		g.Leave(connID)
	default:
		g.logger.Debug("unknown event", "conn_id", connID, "event", msg.Event)
	}
	if err != nil {
		g.logger.Debug("dropping event", "conn_id", connID, "event", msg.Event, "error", err)
	}
}

// OnDisconnect implements Handler. A seated player whose live connection
// drops gets a grace period to reconnect before the room is torn down.
func (g *Gateway) OnDisconnect(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.bindings[connID]
	if !ok {
		return
	}
	delete(g.bindings, connID)

	room := g.registry.Get(b.roomID)
	if room == nil {
		return
	}
	current := false
	_ = room.Do(func(game *engine.Game) error {
		p := game.Player(b.nick)
		current = p != nil && p.ConnID == connID
		return nil
	})
	// A player who already reconnected elsewhere keeps their seat
	if !current {
		return
	}

	g.startGraceLocked(b)
	g.logger.Info("player disconnected, grace started", "room_id", b.roomID, "nick", b.nick, "grace", g.grace)
}

// CreateRoom opens a room with the caller seated as player one and replies
// with yourRoom.
func (g *Gateway) CreateRoom(connID string, req CreateRoomRequest) {
	if req.Nick == "" {
		g.logger.Debug("create without nick", "conn_id", connID)
		return
	}

	g.mu.Lock()
	room, err := g.registry.Create(req.Nick, req.Nick, connID, req.Fleet)
	if err != nil {
		g.mu.Unlock()
		g.logger.Info("create room rejected", "conn_id", connID, "nick", req.Nick, "error", err)
		return
	}
	left := g.rebindLocked(connID, binding{roomID: room.ID, nick: req.Nick})
	g.out.Send(connID, EventYourRoom, room.Listing())
	g.mu.Unlock()

	g.closed(left)
	g.publish(events.Event{Type: events.RoomCreated, RoomID: room.ID, Nick: req.Nick, Data: room.Listing()})
	g.BroadcastLobby()
}

// JoinRoom seats the caller as player two. Both players get roomReady with
// their own view. Any failure leaves the room untouched and sends nothing.
func (g *Gateway) JoinRoom(connID string, req JoinRoomRequest) {
	if req.Nick == "" {
		g.logger.Debug("join without nick", "conn_id", connID)
		return
	}

	g.mu.Lock()
	room, err := g.registry.Join(req.RoomID, req.Nick, connID, req.Fleet, func(room *session.Room, game *engine.Game) {
		g.out.Send(connID, EventYourRoom, room.Listing())
		g.fanOutLocked(room.ID, game, EventRoomReady, game.Views())
	})
	if err != nil {
		g.mu.Unlock()
		g.logger.Info("join room rejected", "conn_id", connID, "room_id", req.RoomID, "nick", req.Nick, "error", err)
		return
	}
	left := g.rebindLocked(connID, binding{roomID: room.ID, nick: req.Nick})
	g.mu.Unlock()

	g.closed(left)
	g.publish(events.Event{Type: events.RoomReady, RoomID: room.ID, Nick: req.Nick})
	g.BroadcastLobby()
}

// AfterConnect binds a (re)connecting client to its seat, cancelling any
// pending grace timer first.
func (g *Gateway) AfterConnect(connID string, req AfterConnectRequest) {
	g.mu.Lock()
	left := g.afterConnectLocked(connID, req)
	g.mu.Unlock()

	g.closed(left)
}

// afterConnectLocked does the work of AfterConnect. A connection that sat in
// another room leaves it, and that room is returned for notification.
func (g *Gateway) afterConnectLocked(connID string, req AfterConnectRequest) *closedRoom {
	reply := AfterConnectReply{JoinableRooms: []service.RoomListing{}}
	b := binding{roomID: req.RoomID, nick: req.Nick}

	room := g.registry.Get(req.RoomID)
	if room == nil {
		reply.JoinableRooms = g.registry.ListJoinable()
		g.out.Send(connID, EventAfterConnect, reply)
		return nil
	}

	g.cancelGraceLocked(b)

	seated := false
	err := room.Do(func(game *engine.Game) error {
		seated = game.RebindConnection(req.Nick, connID)
		listing := room.Listing()
		reply.Room = &listing
		if game.Ready() {
			reply.View = game.ViewFor(req.Nick)
		} else {
			reply.JoinableRooms = g.registry.ListJoinable()
		}
		g.out.Send(connID, EventAfterConnect, reply)
		return nil
	})
	if err != nil {
		// Removed between Get and Do
		reply = AfterConnectReply{JoinableRooms: g.registry.ListJoinable()}
		g.out.Send(connID, EventAfterConnect, reply)
		return nil
	}
	if !seated {
		return nil
	}

	for other, ob := range g.bindings {
		if ob == b && other != connID {
			delete(g.bindings, other)
		}
	}
	left := g.rebindLocked(connID, b)
	g.logger.Info("player bound", "conn_id", connID, "room_id", b.roomID, "nick", b.nick)
	return left
}

// Shoot fires at the opponent of the bound player. Both players get the
// shoot event with their own view; a winning shot archives and closes the
// room.
func (g *Gateway) Shoot(connID string, req ShootRequest) {
	b, room, ok := g.seat(connID, req.Nick)
	if !ok {
		return
	}

	var (
		shot   engine.Shot
		record *service.MatchRecord
		won    bool
	)
	err := room.Do(func(game *engine.Game) error {
		s, err := game.Play(b.nick, req.Coordinate)
		if err != nil {
			return err
		}
		shot = s
		g.fanOutLocked(room.ID, game, EventShoot, game.Views())
		if game.Winner() != "" {
			record = session.NewMatchRecord(room, game, g.now())
			won = g.registry.Remove(room.ID)
		}
		return nil
	})
	if err != nil {
		g.logger.Debug("shot rejected", "room_id", b.roomID, "nick", b.nick, "error", err)
		return
	}

	g.publish(events.Event{Type: events.ShotFired, RoomID: room.ID, Nick: b.nick, Data: shot})
	if won {
		g.finish(room.ID, record)
	}
}

// EndTurn passes the turn to the opponent and sends both players their view
func (g *Gateway) EndTurn(connID string, req TurnEndedRequest) {
	b, room, ok := g.seat(connID, req.Nick)
	if !ok {
		return
	}

	err := room.Do(func(game *engine.Game) error {
		views, err := game.EndTurn(b.nick)
		if err != nil {
			return err
		}
		g.fanOutLocked(room.ID, game, EventTurnEnded, views)
		return nil
	})
	if err != nil {
		g.logger.Debug("end turn rejected", "room_id", b.roomID, "nick", b.nick, "error", err)
	}
}

// Leave tears the caller's room down immediately. The leaver is unbound and
// does not receive playerDisconnected.
func (g *Gateway) Leave(connID string) {
	g.mu.Lock()
	b, ok := g.bindings[connID]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.bindings, connID)
	members, removed := g.teardownLocked(b.roomID)
	g.mu.Unlock()

	if !removed {
		return
	}
	g.logger.Info("player left", "room_id", b.roomID, "nick", b.nick)
	g.notifyDisconnected(b.roomID, members)
}

// BroadcastLobby sends the current joinable rooms to every connection
func (g *Gateway) BroadcastLobby() {
	g.lobbyMu.Lock()
	defer g.lobbyMu.Unlock()
	g.out.Broadcast(EventAvailableRooms, g.registry.ListJoinable())
}

// PendingGrace returns how many players are currently inside their grace
// period
func (g *Gateway) PendingGrace() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

// Close stops every pending grace timer
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, timer := range g.timers {
		timer.t.Stop()
		delete(g.timers, key)
	}
}

// seat resolves the caller's binding. A payload nick that differs from the
// bound one is refused.
func (g *Gateway) seat(connID, nick string) (binding, *session.Room, bool) {
	g.mu.Lock()
	b, ok := g.bindings[connID]
	g.mu.Unlock()

	if !ok {
		g.logger.Debug("event from unbound connection", "conn_id", connID)
		return binding{}, nil, false
	}
	if nick != "" && nick != b.nick {
		g.logger.Warn("nick does not match binding", "conn_id", connID, "nick", nick, "bound", b.nick)
		return binding{}, nil, false
	}
	room := g.registry.Get(b.roomID)
	if room == nil {
		return binding{}, nil, false
	}
	return b, room, true
}

// fanOutLocked sends each view to its player's current connection. It runs
// under the room lock.
func (g *Gateway) fanOutLocked(roomID string, game *engine.Game, event string, views []*engine.View) {
	for _, view := range views {
		p := game.Player(view.Nick)
		if p == nil {
			continue
		}
		g.out.Send(p.ConnID, event, RoomUpdate{RoomID: roomID, View: view})
	}
}

// rebindLocked binds connID to b. If the connection sat in another room,
// that room is torn down and its remaining members are returned.
func (g *Gateway) rebindLocked(connID string, b binding) *closedRoom {
	prev, had := g.bindings[connID]
	g.bindings[connID] = b
	if !had || prev.roomID == b.roomID {
		return nil
	}
	members, removed := g.teardownLocked(prev.roomID)
	if !removed {
		return nil
	}
	return &closedRoom{roomID: prev.roomID, members: members}
}

type closedRoom struct {
	roomID  string
	members []string
}

func (g *Gateway) closed(c *closedRoom) {
	if c != nil {
		g.notifyDisconnected(c.roomID, c.members)
	}
}

// teardownLocked removes the room and unbinds its connections. Only the
// caller that actually removed the room gets removed == true.
func (g *Gateway) teardownLocked(roomID string) (members []string, removed bool) {
	if !g.registry.Remove(roomID) {
		return nil, false
	}
	return g.unbindRoomLocked(roomID), true
}

func (g *Gateway) unbindRoomLocked(roomID string) []string {
	var members []string
	for connID, b := range g.bindings {
		if b.roomID == roomID {
			members = append(members, connID)
			delete(g.bindings, connID)
		}
	}
	for key, timer := range g.timers {
		if key.roomID == roomID {
			timer.t.Stop()
			delete(g.timers, key)
		}
	}
	return members
}

func (g *Gateway) notifyDisconnected(roomID string, members []string) {
	payload := PlayerDisconnected{JoinableRooms: g.registry.ListJoinable()}
	for _, connID := range members {
		g.out.Send(connID, EventPlayerDisconnected, payload)
	}
	g.publish(events.Event{Type: events.RoomClosed, RoomID: roomID, Data: "disconnect"})
	g.BroadcastLobby()
}

func (g *Gateway) startGraceLocked(b binding) {
	g.cancelGraceLocked(b)
	timer := &graceTimer{}
	timer.t = time.AfterFunc(g.grace, func() { g.expire(b, timer) })
	g.timers[b] = timer
}

func (g *Gateway) cancelGraceLocked(b binding) {
	if timer, ok := g.timers[b]; ok {
		timer.t.Stop()
		delete(g.timers, b)
	}
}

// expire runs when a grace timer fires. It is a no-op unless timer is still
// the current timer for b.
func (g *Gateway) expire(b binding, timer *graceTimer) {
	g.mu.Lock()
	if current, ok := g.timers[b]; !ok || current != timer {
		g.mu.Unlock()
		return
	}
	delete(g.timers, b)
	members, removed := g.teardownLocked(b.roomID)
	g.mu.Unlock()

	if !removed {
		return
	}
	g.logger.Info("grace period expired, room closed", "room_id", b.roomID, "nick", b.nick)
	g.notifyDisconnected(b.roomID, members)
}

// finish archives a won match and releases its connections
func (g *Gateway) finish(roomID string, record *service.MatchRecord) {
	g.mu.Lock()
	g.unbindRoomLocked(roomID)
	g.mu.Unlock()

	if g.archive != nil && record != nil {
		if err := g.archive.Save(record); err != nil {
			g.logger.Error("failed to archive match", "room_id", roomID, "error", err)
		}
	}
	if record != nil {
		g.logger.Info("match won", "room_id", roomID, "winner", record.Winner, "duration", record.Duration())
		g.publish(events.Event{Type: events.MatchWon, RoomID: roomID, Nick: record.Winner, Data: record})
	}
	g.publish(events.Event{Type: events.RoomClosed, RoomID: roomID, Data: "won"})
}

func (g *Gateway) publish(e events.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = g.now().UTC()
	}
	if err := g.publisher.Publish(context.Background(), e); err != nil {
		g.logger.Warn("failed to publish event", "event", e.Type, "room_id", e.RoomID, "error", err)
	}
}
