package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs    []published
	fail    error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "games.navy.", nil)

	err := p.Publish(context.Background(), Event{
		Type:   ShotFired,
		RoomID: "r1",
		Nick:   "alice",
		Data:   map[string]any{"result": "HIT"},
	})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "games.navy.r1.shot.fired", conn.msgs[0].subject)

	var decoded Event
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &decoded))
	assert.Equal(t, ShotFired, decoded.Type)
	assert.Equal(t, "alice", decoded.Nick)
	assert.False(t, decoded.Timestamp.IsZero(), "timestamp is filled in")
}

func TestNATSPublisher_DefaultPrefix(t *testing.T) {
	p := newNATSPublisher(&fakeConn{}, "", nil)
	assert.Equal(t, DefaultPrefix+".r9.room.closed", p.Subject(Event{Type: RoomClosed, RoomID: "r9"}))
}

func TestNATSPublisher_Errors(t *testing.T) {
	conn := &fakeConn{fail: errors.New("connection closed")}
	p := newNATSPublisher(conn, "", nil)

	err := p.Publish(context.Background(), Event{Type: RoomReady, RoomID: "r1"})
	assert.ErrorContains(t, err, "connection closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{Type: RoomReady}), context.Canceled)
}

func TestNATSPublisher_Close(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, newNATSPublisher(conn, "", nil).Close())
	assert.True(t, conn.drained)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: RoomCreated}))
	assert.NoError(t, p.Close())
}
