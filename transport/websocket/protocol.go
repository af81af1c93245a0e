package websocket

import (
	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

// Event names. Some names travel in both directions with different payloads.
const (
	EventCreateRoom         = "createRoom"
	EventYourRoom           = "yourRoom"
	EventJoinRoom           = "joinRoom"
	EventRoomReady          = "roomReady"
	EventAfterConnect       = "afterConnect"
	EventAvailableRooms     = "availableRooms"
	EventShoot              = "shoot"
	EventTurnEnded          = "turnEnded"
	EventApplyDisconnect    = "applyDisconnect"
	EventPlayerDisconnected = "playerDisconnected"
)

// Client to server payloads

type CreateRoomRequest struct {
	Nick  string       `json:"nick"`
	Fleet engine.Fleet `json:"fleet"`
}

type JoinRoomRequest struct {
	RoomID string       `json:"roomId"`
	Nick   string       `json:"nick"`
	Fleet  engine.Fleet `json:"fleet"`
}

type AfterConnectRequest struct {
	RoomID string `json:"roomId"`
	Nick   string `json:"nick"`
}

type ShootRequest struct {
	Nick       string            `json:"nick"`
	Coordinate engine.Coordinate `json:"coordinate"`
}

type TurnEndedRequest struct {
	Nick string `json:"nick"`
}

// Server to client payloads

// RoomUpdate carries one recipient's view after a room event
type RoomUpdate struct {
	RoomID string       `json:"roomId"`
	View   *engine.View `json:"view"`
}

// AfterConnectReply answers an identify. Room is nil when the room is gone,
// View is nil until the room is ready.
type AfterConnectReply struct {
	Room          *service.RoomListing  `json:"room"`
	View          *engine.View          `json:"view"`
	JoinableRooms []service.RoomListing `json:"joinableRooms"`
}

// PlayerDisconnected tells the remaining connections their room is gone
type PlayerDisconnected struct {
	Room          *service.RoomListing  `json:"room"`
	Data          *engine.View          `json:"data"`
	JoinableRooms []service.RoomListing `json:"joinableRooms"`
}
