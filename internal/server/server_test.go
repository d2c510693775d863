// internal/server/server_test.go
package server

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer returns a running directory that shuts down with the test.
func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()

	if opts.Log == nil {
		log := logrus.New()
		log.SetLevel(logrus.ErrorLevel)
		opts.Log = log
	}

	s := NewServer(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Run(ctx) }()
	<-s.ready

	return s
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t, Options{})

	room, err := s.CreateRoom("Test", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, "Test", room.Name)
	assert.NotEmpty(t, room.ID)

	// A fresh room already has a playable board.
	room.mu.Lock()
	require.NotNil(t, room.state.Board)
	assert.Equal(t, 5, room.state.Board.Rows)
	room.mu.Unlock()

	assert.True(t, room.CheckPassword("hunter2"))
	assert.False(t, room.CheckPassword("wrong"))
}

func TestCreateRoomNameConflict(t *testing.T) {
	s := newTestServer(t, Options{})

	_, err := s.CreateRoom("Test", "pw")
	require.NoError(t, err)

	// Names are unique case-insensitively.
	_, err = s.CreateRoom("TEST", "pw")
	assert.ErrorIs(t, err, ErrRoomExists)
	_, err = s.CreateRoom("test", "pw")
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestFindRoom(t *testing.T) {
	s := newTestServer(t, Options{})

	room, err := s.CreateRoom("MyRoom", "pw")
	require.NoError(t, err)

	assert.Same(t, room, s.FindRoom("myroom"))
	assert.Same(t, room, s.FindRoom("MYROOM"))
	assert.Same(t, room, s.FindRoomByID(room.ID))
	assert.Nil(t, s.FindRoom("other"))
	assert.Nil(t, s.FindRoomByID("nope"))
}

func TestMaxRooms(t *testing.T) {
	s := newTestServer(t, Options{MaxRooms: 2})

	_, err := s.CreateRoom("one", "pw")
	require.NoError(t, err)
	_, err = s.CreateRoom("two", "pw")
	require.NoError(t, err)

	_, err = s.CreateRoom("three", "pw")
	assert.ErrorIs(t, err, ErrTooManyRooms)
}

func TestPruneIdleRooms(t *testing.T) {
	s := newTestServer(t, Options{RoomTTL: time.Minute})

	stale, err := s.CreateRoom("stale", "pw")
	require.NoError(t, err)
	fresh, err := s.CreateRoom("fresh", "pw")
	require.NoError(t, err)

	stale.lastSeen.Store(time.Now().Add(-2 * time.Minute))

	s.prune()

	assert.Nil(t, s.FindRoom("stale"))
	assert.Same(t, fresh, s.FindRoom("fresh"))

	// The reaped room's context is cancelled so its sessions unwind.
	select {
	case <-stale.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("pruned room context not cancelled")
	}

	rooms, _ := s.Stats()
	assert.Equal(t, 1, rooms)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, Options{})

	rooms, clients := s.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)

	_, err := s.CreateRoom("a", "pw")
	require.NoError(t, err)

	rooms, _ = s.Stats()
	assert.Equal(t, 1, rooms)
}
