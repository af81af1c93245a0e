package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", hub.ConnectionCount())
	}
	if hub.Send("nobody", EventYourRoom, nil) {
		t.Error("Send to an unknown connection should report false")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(quietLogger())

	client := &Client{
		hub:   hub,
		id:    "slow",
		send:  make(chan frame, 1),
		codec: JSONCodec{},
	}
	hub.clients[client.id] = client

	if !hub.Send("slow", EventYourRoom, nil) {
		t.Fatal("first Send should fit the buffer")
	}
	if hub.Send("slow", EventYourRoom, nil) {
		t.Error("Send to a full buffer should report false")
	}
	if hub.ConnectionCount() != 0 {
		t.Errorf("slow client should be unregistered, %d remain", hub.ConnectionCount())
	}

	// The queued frame is still delivered before the close
	if _, ok := <-client.send; !ok {
		t.Error("expected the buffered frame")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// Unregistering again must not close twice
	hub.unregister(client)
}

// brokenCodec fails every encode
type brokenCodec struct{ JSONCodec }

func (brokenCodec) Name() string { return "broken" }

func (brokenCodec) Encode(string, any) ([]byte, error) {
	return nil, errors.New("encoder unavailable")
}

func TestHubBroadcastSkipsFailingCodec(t *testing.T) {
	hub := NewHub(quietLogger())

	codecs := map[string]Codec{
		"json-1":   JSONCodec{},
		"broken-1": brokenCodec{},
		"broken-2": brokenCodec{},
		"msgpack":  MsgpackCodec{},
		"json-2":   JSONCodec{},
	}
	for id, codec := range codecs {
		hub.clients[id] = &Client{hub: hub, id: id, send: make(chan frame, 1), codec: codec}
	}

	hub.Broadcast(EventAvailableRooms, []string{"room-1"})

	for id, codec := range codecs {
		client := hub.clients[id]
		if client == nil {
			t.Fatalf("client %s was dropped", id)
		}
		got := len(client.send)
		want := 1
		if codec.Name() == "broken" {
			want = 0
		}
		if got != want {
			t.Errorf("client %s has %d queued frames, want %d", id, got, want)
		}
	}
}

func TestHubRejectsUnknownCodec(t *testing.T) {
	hub := NewHub(quietLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?codec=xml"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", resp)
	}
}

// testClient wraps a dialed connection with its codec
type testClient struct {
	t     *testing.T
	conn  *websocket.Conn
	codec Codec
}

func dial(t *testing.T, server *httptest.Server, codec Codec) *testClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?codec=" + codec.Name()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, codec: codec}
}

func (c *testClient) emit(event string, data any) {
	c.t.Helper()
	payload, err := c.codec.Encode(event, data)
	if err != nil {
		c.t.Fatalf("encode %s: %v", event, err)
	}
	if err := c.conn.WriteMessage(c.codec.MessageType(), payload); err != nil {
		c.t.Fatalf("write %s: %v", event, err)
	}
}

// await reads frames until one named event arrives and binds it into v
func (c *testClient) await(event string, v any) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", event, err)
		}
		if messageType != c.codec.MessageType() {
			c.t.Fatalf("got frame type %d, want %d", messageType, c.codec.MessageType())
		}
		in, err := c.codec.Decode(data)
		if err != nil {
			c.t.Fatalf("decode: %v", err)
		}
		if in.Event != event {
			continue
		}
		if v != nil {
			if err := in.Bind(v); err != nil {
				c.t.Fatalf("bind %s: %v", event, err)
			}
		}
		return
	}
}

func newTestServer(t *testing.T, grace time.Duration) (*Hub, *session.Registry, *httptest.Server) {
	t.Helper()
	registry := session.NewRegistry(engine.DefaultRules(), quietLogger())
	hub := NewHub(quietLogger())
	gateway := NewGateway(registry, hub, WithGracePeriod(grace), WithGatewayLogger(quietLogger()))
	hub.SetHandler(gateway)
	t.Cleanup(gateway.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)
	return hub, registry, server
}

func TestWebSocketMatch(t *testing.T) {
	hub, registry, server := newTestServer(t, time.Minute)

	alice := dial(t, server, JSONCodec{})
	bob := dial(t, server, MsgpackCodec{})

	alice.emit(EventCreateRoom, CreateRoomRequest{Nick: "alice", Fleet: engine.RowFleet()})
	var yours struct {
		RoomID      string `json:"roomId"`
		DisplayName string `json:"displayName"`
	}
	alice.await(EventYourRoom, &yours)
	if yours.RoomID == "" || yours.DisplayName != "alice" {
		t.Fatalf("yourRoom = %+v", yours)
	}

	bob.emit(EventJoinRoom, JoinRoomRequest{RoomID: yours.RoomID, Nick: "bob", Fleet: engine.RowFleet()})

	var aliceReady, bobReady RoomUpdate
	alice.await(EventRoomReady, &aliceReady)
	bob.await(EventRoomReady, &bobReady)
	if aliceReady.View == nil || aliceReady.View.Turn != "alice" {
		t.Fatalf("alice roomReady = %+v", aliceReady)
	}
	if bobReady.View == nil || bobReady.View.Nick != "bob" || len(bobReady.View.Ships) != engine.FleetSize {
		t.Fatalf("bob roomReady = %+v", bobReady.View)
	}
	if bobReady.View.Opponent == nil || len(bobReady.View.Opponent.DestroyedShips) != 0 {
		t.Errorf("bob must not see alice's ships: %+v", bobReady.View.Opponent)
	}

	alice.emit(EventShoot, ShootRequest{Nick: "alice", Coordinate: engine.Coordinate{X: 0, Y: 8}})
	var shot RoomUpdate
	bob.await(EventShoot, &shot)
	if len(shot.View.EnemyShots) != 1 || shot.View.EnemyShots[0].Result != engine.Hit {
		t.Errorf("bob enemyShots = %+v", shot.View.EnemyShots)
	}

	if hub.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount() = %d, want 2", hub.ConnectionCount())
	}

	alice.emit(EventApplyDisconnect, nil)
	var gone map[string]any
	bob.await(EventPlayerDisconnected, &gone)
	if gone["room"] != nil || gone["data"] != nil {
		t.Errorf("playerDisconnected = %v", gone)
	}
	if registry.Count() != 0 {
		t.Errorf("room should be removed, %d remain", registry.Count())
	}
}

func TestWebSocketReconnect(t *testing.T) {
	_, registry, server := newTestServer(t, time.Minute)

	alice := dial(t, server, JSONCodec{})
	bob := dial(t, server, JSONCodec{})

	alice.emit(EventCreateRoom, CreateRoomRequest{Nick: "alice", Fleet: engine.RowFleet()})
	var yours map[string]string
	alice.await(EventYourRoom, &yours)
	bob.emit(EventJoinRoom, JoinRoomRequest{RoomID: yours["roomId"], Nick: "bob", Fleet: engine.RowFleet()})
	bob.await(EventRoomReady, nil)

	bob.conn.Close()

	again := dial(t, server, JSONCodec{})
	again.emit(EventAfterConnect, AfterConnectRequest{RoomID: yours["roomId"], Nick: "bob"})
	var reply AfterConnectReply
	again.await(EventAfterConnect, &reply)
	if reply.Room == nil || reply.View == nil || reply.View.Nick != "bob" {
		t.Fatalf("afterConnect = %+v", reply)
	}

	alice.emit(EventShoot, ShootRequest{Nick: "alice", Coordinate: engine.Coordinate{X: 9, Y: 9}})
	var update RoomUpdate
	again.await(EventShoot, &update)
	if update.View.Turn != "bob" {
		t.Errorf("turn = %q, want bob after a miss", update.View.Turn)
	}
	if registry.Count() != 1 {
		t.Errorf("room should survive the reconnect")
	}
}

func TestWebSocketMalformedFrames(t *testing.T) {
	_, _, server := newTestServer(t, time.Minute)
	client := dial(t, server, JSONCodec{})

	for _, frame := range []string{`nope`, `{"event":"shoot","data":[1,2]}`, `{"event":"joinRoom","data":{"roomId":"x"}}`} {
		if err := client.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// The connection still works afterwards
	client.emit(EventAvailableRooms, nil)
	var rooms []map[string]string
	client.await(EventAvailableRooms, &rooms)
	if len(rooms) != 0 {
		t.Errorf("availableRooms = %v, want empty", rooms)
	}
}

func TestWebSocketBroadcastReachesBothCodecs(t *testing.T) {
	_, _, server := newTestServer(t, time.Minute)

	text := dial(t, server, JSONCodec{})
	binary := dial(t, server, MsgpackCodec{})

	text.emit(EventCreateRoom, CreateRoomRequest{Nick: "alice", Fleet: engine.RowFleet()})

	var fromText []map[string]string
	text.await(EventAvailableRooms, &fromText)
	var fromBinary []map[string]string
	binary.await(EventAvailableRooms, &fromBinary)

	if len(fromText) != 1 || len(fromBinary) != 1 || fromText[0]["roomId"] != fromBinary[0]["roomId"] {
		t.Errorf("lobby mismatch: json %v, msgpack %v", fromText, fromBinary)
	}

	raw, _ := json.Marshal(fromText)
	if !strings.Contains(string(raw), "displayName") {
		t.Errorf("lobby entries should carry displayName: %s", raw)
	}

	// msgpack frames decode with a plain decoder too
	payload, _ := MsgpackCodec{}.Encode(EventAvailableRooms, fromBinary)
	var generic map[string]any
	if err := msgpack.Unmarshal(payload, &generic); err != nil {
		t.Errorf("plain msgpack decode failed: %v", err)
	}
}
