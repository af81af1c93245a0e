// Package websocket provides the realtime transport for naval duels.
//
// The package has two halves:
//   - Hub owns the raw connections: upgrade, read and write pumps,
//     keepalive pings, per-connection codecs and slow-client eviction.
//   - Gateway owns the protocol: it binds connections to (room, nick)
//     seats, runs room operations and fans views back out.
//
// Message Protocol:
//
// Every frame is an envelope {"event": name, "data": payload}. Connections
// speak JSON text frames by default; ?codec=msgpack switches a connection to
// MessagePack binary frames with the same field names.
//
//	-> {"event":"createRoom","data":{"nick":"alice","fleet":[...]}}
//	<- {"event":"yourRoom","data":{"roomId":"...","displayName":"alice"}}
//	<- {"event":"availableRooms","data":[{"roomId":"...","displayName":"alice"}]}
//
// Reconnection:
//
// When a seated player's connection drops, the gateway starts a grace
// timer for that seat. An afterConnect for the same room and nick before
// it fires cancels it and rebinds the seat to the new connection. If it
// fires, the room is removed and the remaining connections receive
// playerDisconnected once.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	gateway := websocket.NewGateway(registry, hub, websocket.WithArchive(archive))
//	hub.SetHandler(gateway)
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
