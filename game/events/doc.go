// Package events publishes room lifecycle notifications to NATS.
//
// Every room produces room.created, room.ready, shot.fired, match.won and
// room.closed events. When a NATS URL is configured they are published as
// JSON on <prefix>.<roomID>.<type>; otherwise NopPublisher drops them.
// Publishing is best effort and never blocks or fails match play.
package events
