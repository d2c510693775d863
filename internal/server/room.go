// internal/server/room.go
package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/eltmon/codies/internal/game"
	"github.com/eltmon/codies/internal/protocol"
)

const (
	// sendQueueSize bounds the per-connection outbound queue. A connection
	// that falls this far behind is dropped instead of stalling the room.
	sendQueueSize = 16

	writeTimeout = 5 * time.Second
	pingInterval = time.Minute

	// minCustomPackWords is the smallest custom pack a room will accept;
	// smaller packs could not fill a board on their own.
	minCustomPackWords = 25
)

// Room is one live session: it owns the authoritative game state, the
// connection registry for its players, and the turn timer. All state
// mutations are serialized through mu.
type Room struct {
	Name string
	ID   string

	log    *logrus.Entry
	ctx    context.Context
	cancel context.CancelFunc

	passwordHash []byte

	clientCount *atomic.Int64 // Process-wide counter, shared with the Server.
	lastSeen    atomic.Value  // time.Time of the last client activity.

	mu       sync.Mutex
	state    *game.Room
	clients  map[game.PlayerID]map[int64]*client
	nextConn int64
	cache    *stateCache

	timed        bool
	turnSeconds  int
	turnDeadline *time.Time
	turnTimer    *time.Timer
	timerSeq     int64

	hideBomb bool
}

// client is one live connection's presence in the registry. Multiple clients
// may share a player ID (several tabs, reconnect overlap).
type client struct {
	id     int64
	player game.PlayerID
	notes  chan *protocol.ServerNote
	cancel context.CancelFunc
}

// push queues a note without blocking. A full queue means the consumer is too
// slow to keep; the connection is cancelled and the note discarded.
func (cl *client) push(note *protocol.ServerNote) {
	select {
	case cl.notes <- note:
	default:
		if cl.cancel != nil {
			cl.cancel()
		}
	}
}

// CheckPassword reports whether pass matches the room's password.
func (r *Room) CheckPassword(pass string) bool {
	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(pass)) == nil
}

// HandleConn runs a player's connection until it closes or the room shuts
// down. The player joins the room on first connect; closing the connection
// removes only the connection, never the player.
func (r *Room) HandleConn(ctx context.Context, playerID game.PlayerID, nickname string, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	metricClients.Inc()
	defer metricClients.Dec()

	count := r.clientCount.Add(1)
	log := r.log.WithField("player", playerID)
	log.WithField("clients", count).Info("client connected")
	defer func() {
		log.WithField("clients", r.clientCount.Add(-1)).Info("client disconnected")
	}()

	defer conn.Close(websocket.StatusGoingAway, "going away")

	r.lastSeen.Store(time.Now())

	r.mu.Lock()
	cl := r.registerLocked(playerID, cancel)
	r.state.AddPlayer(playerID, nickname)
	r.sendAllLocked()
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.unregisterLocked(cl)
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return conn.Close(websocket.StatusGoingAway, "going away")
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case note := <-cl.notes:
				wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(wctx, conn, note)
				wcancel()
				if err != nil {
					return err
				}
				metricSent.Inc()
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			if err := conn.Ping(ctx); err != nil {
				return err
			}
			r.lastSeen.Store(time.Now())
		}
	})

	g.Go(func() error {
		for {
			var note protocol.ClientNote
			if err := wsjson.Read(ctx, conn, &note); err != nil {
				return err
			}

			r.lastSeen.Store(time.Now())
			metricReceived.Inc()

			if err := r.handleNote(playerID, &note); err != nil {
				metricHandleErrors.Inc()
				log.WithError(err).Warn("dropping connection after bad command")
				return err
			}
		}
	})

	_ = g.Wait()
}

// registerLocked adds a connection for playerID to the registry.
func (r *Room) registerLocked(playerID game.PlayerID, cancel context.CancelFunc) *client {
	r.nextConn++
	cl := &client{
		id:     r.nextConn,
		player: playerID,
		notes:  make(chan *protocol.ServerNote, sendQueueSize),
		cancel: cancel,
	}

	conns := r.clients[playerID]
	if conns == nil {
		conns = make(map[int64]*client)
		r.clients[playerID] = conns
	}
	conns[cl.id] = cl
	return cl
}

// unregisterLocked removes a connection. The player entity stays in the game
// state so a reconnect with the same ID resumes where it left off.
func (r *Room) unregisterLocked(cl *client) {
	conns := r.clients[cl.player]
	delete(conns, cl.id)
	if len(conns) == 0 {
		delete(r.clients, cl.player)
	}
}

// ConnCount returns the number of live connections in this room.
func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, conns := range r.clients {
		n += len(conns)
	}
	return n
}

// handleNote validates and applies one client command. Only malformed
// payloads produce an error (which drops the connection); game-level
// rejections are silent.
func (r *Room) handleNote(playerID game.PlayerID, note *protocol.ClientNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Not a member: ignore. The room may have been torn down and recreated
	// under this connection.
	if _, ok := r.state.Players[playerID]; !ok {
		return nil
	}

	// Stale version: no mutation; resync just the sender so it can catch up
	// and retry.
	if note.Version != r.state.Version {
		metricStale.Inc()
		r.sendPlayerLocked(playerID)
		return nil
	}

	before := r.state.Version
	prevTurn := r.state.Turn
	resetTimer := false

	defer func() {
		if r.state.Version == before {
			return
		}
		if r.timed {
			switch {
			case r.state.Winner != nil:
				r.stopTimerLocked()
			case resetTimer || r.state.Turn != prevTurn:
				r.startTimerLocked()
			}
		}
		r.sendAllLocked()
	}()

	switch note.Method {
	case protocol.NewGameMethod:
		var params protocol.NewGameParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		resetTimer = true
		r.state.NewGame()

	case protocol.EndTurnMethod:
		var params protocol.EndTurnParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.EndTurn(playerID)

	case protocol.RandomizeTeamsMethod:
		var params protocol.RandomizeTeamsParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.RandomizeTeams()

	case protocol.RevealMethod:
		var params protocol.RevealParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.Reveal(playerID, params.Row, params.Col)

	case protocol.ChangeTeamMethod:
		var params protocol.ChangeTeamParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.ChangeTeam(playerID, params.Team)

	case protocol.ChangeNicknameMethod:
		var params protocol.ChangeNicknameParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		if len(params.Nickname) == 0 || len(params.Nickname) > 16 {
			return nil
		}
		r.state.AddPlayer(playerID, params.Nickname)

	case protocol.ChangeRoleMethod:
		var params protocol.ChangeRoleParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.ChangeRole(playerID, params.Spymaster)

	case protocol.ChangePackMethod:
		var params protocol.ChangePackParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.ChangePack(params.Num, params.Enable)

	case protocol.ChangeTurnModeMethod:
		var params protocol.ChangeTurnModeParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.changeTurnModeLocked(params.Timed)

	case protocol.ChangeTurnTimeMethod:
		var params protocol.ChangeTurnTimeParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.changeTurnTimeLocked(params.Seconds)

	case protocol.AddPacksMethod:
		var params protocol.AddPacksParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		for _, p := range params.Packs {
			if len(p.Words) < minCustomPackWords {
				continue
			}
			r.state.AddPack(p.Name, p.Words)
		}

	case protocol.RemovePackMethod:
		var params protocol.RemovePackParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.state.RemovePack(params.Num)

	case protocol.ChangeHideBombMethod:
		var params protocol.ChangeHideBombParams
		if err := json.Unmarshal(note.Params, &params); err != nil {
			return err
		}
		r.changeHideBombLocked(params.HideBomb)

	default:
		r.log.WithField("method", note.Method).Warn("unhandled method")
	}

	return nil
}

// changeTurnModeLocked toggles timed mode, arming or cancelling the countdown.
func (r *Room) changeTurnModeLocked(timed bool) {
	if r.timed == timed {
		return
	}

	r.timed = timed
	if timed {
		r.startTimerLocked()
	} else {
		r.stopTimerLocked()
	}
	r.state.Version++
}

// changeTurnTimeLocked resizes the countdown. The deadline restarts from now.
func (r *Room) changeTurnTimeLocked(seconds int) {
	if seconds <= 0 || r.turnSeconds == seconds {
		return
	}

	r.turnSeconds = seconds
	if r.timed {
		r.startTimerLocked()
	}
	r.state.Version++
}

// changeHideBombLocked toggles whether the bomb tile is disguised as neutral
// in every pre-reveal view.
func (r *Room) changeHideBombLocked(hideBomb bool) {
	if r.hideBomb == hideBomb {
		return
	}

	r.hideBomb = hideBomb
	r.state.Version++
}

// startTimerLocked (re)arms the turn countdown from now.
func (r *Room) startTimerLocked() {
	r.timerSeq++
	seq := r.timerSeq

	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}

	dur := time.Duration(r.turnSeconds) * time.Second
	deadline := time.Now().Add(dur)
	r.turnDeadline = &deadline
	r.turnTimer = time.AfterFunc(dur, func() {
		r.timerFire(seq)
	})
}

// stopTimerLocked cancels the countdown. A timer that already fired will see
// its sequence number is stale and do nothing.
func (r *Room) stopTimerLocked() {
	r.timerSeq++
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turnDeadline = nil
}

// timerFire is the deadline callback. It forces the end of the turn exactly
// as a player-issued endTurn would, unless the armed timer has since been
// cancelled or replaced.
func (r *Room) timerFire(seq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.timerSeq || !r.timed {
		return
	}

	if r.state.Winner != nil {
		r.stopTimerLocked()
		return
	}

	r.state.ForceEndTurn()
	r.startTimerLocked()
	r.sendAllLocked()
}

// sendAllLocked pushes the current role-filtered state to every connection.
func (r *Room) sendAllLocked() {
	for playerID := range r.clients {
		r.sendPlayerLocked(playerID)
	}
}

// sendPlayerLocked pushes the current state to all of one player's
// connections.
func (r *Room) sendPlayerLocked(playerID game.PlayerID) {
	state := r.stateForLocked(playerID)
	if state == nil {
		return
	}

	note := protocol.StateNote(state)
	for _, cl := range r.clients[playerID] {
		cl.push(&note)
	}
}

// stateCache holds the two projections for one version; computing them once
// per version keeps fan-out cheap no matter how many players are connected.
type stateCache struct {
	version   int
	guesser   *protocol.State
	spymaster *protocol.State
}

// stateForLocked returns the projection appropriate for the player's role,
// or nil if the player is not a room member.
func (r *Room) stateForLocked(playerID game.PlayerID) *protocol.State {
	p := r.state.Players[playerID]
	if p == nil {
		return nil
	}

	if r.cache == nil || r.cache.version != r.state.Version {
		r.cache = &stateCache{
			version:   r.state.Version,
			guesser:   r.projectLocked(false),
			spymaster: r.projectLocked(true),
		}
	}

	if p.Spymaster {
		return r.cache.spymaster
	}
	return r.cache.guesser
}

// projectLocked builds the state snapshot visible to one role. Guessers only
// receive tile ownership for revealed tiles (or once the game is over);
// while hideBomb is set, the unrevealed bomb masquerades as a neutral tile in
// every view.
func (r *Room) projectLocked(spymaster bool) *protocol.State {
	state := r.state

	s := &protocol.State{
		Version:  state.Version,
		Teams:    make([][]*protocol.StatePlayer, len(state.Teams)),
		Turn:     state.Turn,
		Winner:   state.Winner,
		Lists:    make([]*protocol.StateWordList, len(state.Packs)),
		HideBomb: r.hideBomb,
	}

	if r.turnDeadline != nil {
		s.Timer = &protocol.StateTimer{
			TurnTime: r.turnSeconds,
			TurnEnd:  *r.turnDeadline,
		}
	}

	for team, members := range state.Teams {
		s.Teams[team] = make([]*protocol.StatePlayer, 0, len(members))
		for _, id := range members {
			p := state.Players[id]
			s.Teams[team] = append(s.Teams[team], &protocol.StatePlayer{
				PlayerID:  id,
				Nickname:  p.Nickname,
				Spymaster: p.Spymaster,
			})
		}
	}

	if state.Board != nil {
		s.Board = make([][]*protocol.StateTile, state.Board.Rows)
		s.WordsLeft = append([]int(nil), state.Board.WordsLeft...)

		for row := range s.Board {
			tiles := make([]*protocol.StateTile, state.Board.Cols)
			for col := range tiles {
				tile := state.Board.Get(row, col)
				st := &protocol.StateTile{
					Word:     tile.Word,
					Revealed: tile.Revealed,
				}

				if spymaster || tile.Revealed || state.Winner != nil {
					view := &protocol.StateView{
						Team:    tile.Team,
						Neutral: tile.Neutral,
						Bomb:    tile.Bomb,
					}

					if view.Bomb && !tile.Revealed && state.Winner == nil && r.hideBomb {
						view.Neutral = true
						view.Bomb = false
					}

					st.View = view
				}

				tiles[col] = st
			}
			s.Board[row] = tiles
		}
	}

	for i, pack := range state.Packs {
		s.Lists[i] = &protocol.StateWordList{
			Name:    pack.Name,
			Count:   pack.List.Len(),
			Custom:  pack.Custom,
			Enabled: pack.Enabled,
		}
	}

	return s
}

// shutdown stops the timer and cancels every connection. Called by the
// directory with r.mu unlocked.
func (r *Room) shutdown() {
	r.mu.Lock()
	r.stopTimerLocked()
	r.mu.Unlock()
	r.cancel()
}
