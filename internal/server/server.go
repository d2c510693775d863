// internal/server/server.go

// Package server hosts the process-wide room directory and the per-room
// sessions that serialize game state mutations and fan state back out to
// connected clients.
package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/speps/go-hashids/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/eltmon/codies/internal/game"
)

// Directory-level errors, surfaced to the HTTP layer before any session
// begins.
var (
	ErrRoomExists   = errors.New("server: room already exists")
	ErrTooManyRooms = errors.New("server: too many rooms")
)

// Options configures a Server. Zero fields take the defaults below.
type Options struct {
	Log         *logrus.Logger
	MaxRooms    int           // Upper bound on concurrent rooms.
	RoomTTL     time.Duration // Idle time before a room is reaped.
	TurnSeconds int           // Default turn length for new rooms.
}

const (
	defaultMaxRooms    = 1000
	defaultRoomTTL     = 10 * time.Minute
	defaultTurnSeconds = 60

	pruneInterval = 5 * time.Minute
)

// Server is the process-wide room directory. Room names are unique
// case-insensitively; rooms are addressed externally by short opaque IDs.
type Server struct {
	log *logrus.Logger

	maxRooms    int
	roomTTL     time.Duration
	turnSeconds int

	clientCount atomic.Int64
	doPrune     chan struct{}
	ready       chan struct{}

	mu      sync.Mutex
	ctx     context.Context
	rooms   map[string]*Room // Keyed by lowercased name.
	roomIDs map[string]*Room

	hid    *hashids.HashID
	nextID int64
}

// NewServer creates an empty directory. Run must be called before rooms can
// be created or found.
func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.MaxRooms <= 0 {
		opts.MaxRooms = defaultMaxRooms
	}
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = defaultRoomTTL
	}
	if opts.TurnSeconds <= 0 {
		opts.TurnSeconds = defaultTurnSeconds
	}

	hd := hashids.NewData()
	hd.MinLength = 8
	// Room IDs only live as long as this process, so a random salt is fine.
	hd.Salt = uuid.NewString()
	hid, err := hashids.NewWithData(hd)
	if err != nil {
		panic(err)
	}

	return &Server{
		log:         opts.Log,
		maxRooms:    opts.MaxRooms,
		roomTTL:     opts.RoomTTL,
		turnSeconds: opts.TurnSeconds,
		doPrune:     make(chan struct{}, 1),
		ready:       make(chan struct{}),
		rooms:       make(map[string]*Room),
		roomIDs:     make(map[string]*Room),
		hid:         hid,
	}
}

// Run owns the reap loop. Rooms created by this server are children of ctx;
// cancelling it shuts every session down.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	close(s.ready)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.doPrune:
			s.prune()
		case <-ticker.C:
			s.prune()
		}
	}
}

// CreateRoom registers a new room with the given display name. The password
// is stored as a bcrypt hash.
func (s *Server) CreateRoom(name, password string) (*Room, error) {
	<-s.ready

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(name)
	if s.rooms[key] != nil {
		return nil, ErrRoomExists
	}
	if len(s.rooms) >= s.maxRooms {
		return nil, ErrTooManyRooms
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.nextID++
	id, err := s.hid.EncodeInt64([]int64{s.nextID})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(s.ctx)

	room := &Room{
		Name:         name,
		ID:           id,
		log:          s.log.WithFields(logrus.Fields{"room": name, "id": id}),
		ctx:          ctx,
		cancel:       cancel,
		passwordHash: hash,
		clientCount:  &s.clientCount,
		state:        game.NewRoom(nil),
		clients:      make(map[game.PlayerID]map[int64]*client),
		turnSeconds:  s.turnSeconds,
	}
	room.lastSeen.Store(time.Now())
	room.state.NewGame()

	s.rooms[key] = room
	s.roomIDs[id] = room
	metricRooms.Inc()

	room.log.Info("created room")

	if s.nextID%100 == 0 {
		s.triggerPrune()
	}

	return room, nil
}

// FindRoom looks a room up by name, case-insensitively.
func (s *Server) FindRoom(name string) *Room {
	<-s.ready

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[strings.ToLower(name)]
}

// FindRoomByID looks a room up by its opaque ID.
func (s *Server) FindRoomByID(id string) *Room {
	<-s.ready

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomIDs[id]
}

// Stats returns the current room and client counts.
func (s *Server) Stats() (rooms, clients int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms), int(s.clientCount.Load())
}

func (s *Server) triggerPrune() {
	select {
	case s.doPrune <- struct{}{}:
	default:
	}
}

// prune removes rooms with no activity for the TTL. Connected clients keep
// their room alive through the ping loop's lastSeen updates, so only
// genuinely abandoned rooms go.
func (s *Server) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toRemove []*Room
	for _, room := range s.rooms {
		lastSeen := room.lastSeen.Load().(time.Time)
		if time.Since(lastSeen) > s.roomTTL {
			toRemove = append(toRemove, room)
		}
	}

	if len(toRemove) == 0 {
		return
	}

	for _, room := range toRemove {
		room.shutdown()
		delete(s.rooms, strings.ToLower(room.Name))
		delete(s.roomIDs, room.ID)
		metricRooms.Dec()
		room.log.Info("pruned room")
	}
}
