// internal/game/room.go

// Package game implements the authoritative state machine for one room.
//
// A Room is pure state: it has no locks, no timers and no I/O. The session
// layer (internal/server) serializes access to it and owns everything that
// involves time or connections. Every accepted mutation increments Version by
// exactly one; a rejected or no-op mutation leaves Version untouched, so the
// session layer can detect acceptance by comparing Version before and after.
package game

import (
	"github.com/google/uuid"

	"github.com/eltmon/codies/internal/words"
)

// PlayerID identifies a player. It is generated by the client and stays
// stable across reconnects, so a player's membership survives connection
// loss.
type PlayerID = uuid.UUID

// Player is a room member. Team membership is implied by which entry of
// Room.Teams contains the player's ID.
type Player struct {
	ID        PlayerID
	Nickname  string
	Team      Team
	Spymaster bool
}

// Pack is one selectable word list. Built-in packs cannot be removed; custom
// packs can be removed only while disabled.
type Pack struct {
	Name    string
	Custom  bool
	Enabled bool
	List    words.List
}

const (
	defaultRows = 5
	defaultCols = 5

	// maxPacks bounds the number of word packs a room may hold, built-ins
	// included.
	maxPacks = 10
)

func defaultPacks() []*Pack {
	return []*Pack{
		{Name: "Base", List: words.Base, Enabled: true},
		{Name: "Duet", List: words.Duet},
		{Name: "Undercover", List: words.Undercover},
	}
}

// Room holds one game's authoritative state.
type Room struct {
	rnd Rand

	// Board shape used for the next NewGame.
	Rows, Cols int

	Version int
	Board   *Board
	Turn    Team
	Winner  *Team
	Players map[PlayerID]*Player
	Teams   [][]PlayerID // Ordered; index is the Team value.
	Packs   []*Pack
}

// NewRoom creates an empty two-team room with the built-in packs. A nil rnd
// selects the global math/rand source.
func NewRoom(rnd Rand) *Room {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Room{
		rnd:     rnd,
		Rows:    defaultRows,
		Cols:    defaultCols,
		Players: make(map[PlayerID]*Player),
		Teams:   make([][]PlayerID, 2),
		Packs:   defaultPacks(),
	}
}

// AddPlayer joins a new player onto the smallest team, or renames an existing
// player. Joining with the current nickname is a no-op.
func (r *Room) AddPlayer(id PlayerID, nickname string) {
	if p, ok := r.Players[id]; ok {
		if p.Nickname == nickname {
			return
		}
		p.Nickname = nickname
		r.Version++
		return
	}

	team := r.smallestTeam()
	r.Players[id] = &Player{
		ID:       id,
		Nickname: nickname,
		Team:     team,
	}
	r.Teams[team] = append(r.Teams[team], id)
	r.Version++
}

// RemovePlayer drops a player from the room. Disconnects never call this;
// only room teardown does.
func (r *Room) RemovePlayer(id PlayerID) {
	p := r.Players[id]
	if p == nil {
		return
	}

	delete(r.Players, id)
	r.Teams[p.Team] = withoutPlayer(r.Teams[p.Team], id)
	r.Version++
}

func (r *Room) smallestTeam() Team {
	smallest := Team(0)
	for t := range r.Teams {
		if len(r.Teams[t]) < len(r.Teams[smallest]) {
			smallest = Team(t)
		}
	}
	return smallest
}

// pool concatenates the enabled packs' word lists.
func (r *Room) pool() words.List {
	var list words.List
	for _, p := range r.Packs {
		if p.Enabled {
			list = list.Concat(p.List)
		}
	}
	return list
}

// NewGame clears the winner, picks a random starting team and regenerates the
// board from the enabled packs. If the enabled pool cannot fill the board
// with distinct words, the Base list is used instead.
func (r *Room) NewGame() {
	pool := r.pool()
	if distinctLen(pool) < r.Rows*r.Cols {
		pool = words.Base
	}

	r.Winner = nil
	r.Turn = Team(r.rnd.Intn(len(r.Teams)))
	r.Board = newBoard(r.Rows, r.Cols, pool, r.Turn, len(r.Teams), r.rnd)
	r.Version++
}

func distinctLen(l words.List) int {
	seen := make(map[string]struct{}, l.Len())
	for i := 0; i < l.Len(); i++ {
		seen[l.Get(i)] = struct{}{}
	}
	return len(seen)
}

// Reveal uncovers the tile at (row, col) on behalf of a guesser on the acting
// team. Illegal reveals (wrong role, wrong turn, finished game, bad or
// already-revealed tile) are ignored.
func (r *Room) Reveal(id PlayerID, row, col int) {
	if r.Winner != nil || r.Board == nil {
		return
	}

	p := r.Players[id]
	if p == nil || p.Spymaster || p.Team != r.Turn {
		return
	}

	tile := r.Board.Get(row, col)
	if tile == nil || tile.Revealed {
		return
	}

	tile.Revealed = true

	switch {
	case tile.Neutral:
		r.Turn = r.Turn.Next(len(r.Teams))

	case tile.Bomb:
		winner := r.Turn.Next(len(r.Teams))
		r.Winner = &winner

	default:
		r.Board.WordsLeft[tile.Team]--
		if r.Board.WordsLeft[tile.Team] == 0 {
			winner := tile.Team
			r.Winner = &winner
		} else if tile.Team != p.Team {
			r.Turn = r.Turn.Next(len(r.Teams))
		}
		// Revealing an own-team tile keeps the turn; the guesser may
		// continue until a miss or an explicit end of turn.
	}

	r.Version++
}

// EndTurn passes the turn if the acting player is a guesser on the active
// team.
func (r *Room) EndTurn(id PlayerID) {
	if r.Winner != nil {
		return
	}

	p := r.Players[id]
	if p == nil || p.Spymaster || p.Team != r.Turn {
		return
	}

	r.ForceEndTurn()
}

// ForceEndTurn passes the turn unconditionally. The turn timer uses this once
// the session layer has validated the deadline is still current.
func (r *Room) ForceEndTurn() {
	r.Turn = r.Turn.Next(len(r.Teams))
	r.Version++
}

// ChangeRole sets the player's spymaster flag.
func (r *Room) ChangeRole(id PlayerID, spymaster bool) {
	p := r.Players[id]
	if p == nil || p.Spymaster == spymaster {
		return
	}

	p.Spymaster = spymaster
	r.Version++
}

// ChangeTeam moves the player to the given team. The spymaster flag is reset
// so a former spymaster cannot carry board knowledge into a guesser seat on
// the other side.
func (r *Room) ChangeTeam(id PlayerID, team Team) {
	if team < 0 || int(team) >= len(r.Teams) {
		return
	}

	p := r.Players[id]
	if p == nil || p.Team == team {
		return
	}

	r.Teams[p.Team] = withoutPlayer(r.Teams[p.Team], id)
	r.Teams[team] = append(r.Teams[team], id)
	p.Team = team
	p.Spymaster = false
	r.Version++
}

// RandomizeTeams redistributes all players evenly across the existing teams
// with a uniform shuffle. The board is untouched.
func (r *Room) RandomizeTeams() {
	players := make([]PlayerID, 0, len(r.Players))
	for id := range r.Players {
		players = append(players, id)
	}

	r.rnd.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	numTeams := len(r.Teams)
	teams := make([][]PlayerID, numTeams)
	for i := range teams {
		teams[i] = make([]PlayerID, 0, (len(players)+numTeams-1)/numTeams)
	}
	for i, id := range players {
		teams[i%numTeams] = append(teams[i%numTeams], id)
	}

	r.rnd.Shuffle(numTeams, func(i, j int) {
		teams[i], teams[j] = teams[j], teams[i]
	})

	for t, members := range teams {
		for _, id := range members {
			r.Players[id].Team = Team(t)
		}
	}
	r.Teams = teams
	r.Version++
}

// ChangePack enables or disables the pack at num. The last enabled pack
// cannot be disabled.
func (r *Room) ChangePack(num int, enable bool) {
	if num < 0 || num >= len(r.Packs) {
		return
	}

	pack := r.Packs[num]
	if pack.Enabled == enable {
		return
	}

	if !enable {
		enabled := 0
		for _, p := range r.Packs {
			if p.Enabled {
				enabled++
			}
		}
		if enabled < 2 {
			return
		}
	}

	pack.Enabled = enable
	r.Version++
}

// AddPack appends a disabled custom pack. Word-count validation happens at
// the session layer; here only the pack limit applies.
func (r *Room) AddPack(name string, wds []string) {
	if len(r.Packs) >= maxPacks {
		return
	}

	r.Packs = append(r.Packs, &Pack{
		Name:   name,
		Custom: true,
		List:   words.NewList(wds),
	})
	r.Version++
}

// RemovePack deletes the pack at num if it is custom and disabled.
func (r *Room) RemovePack(num int) {
	if num < 0 || num >= len(r.Packs) {
		return
	}

	if pack := r.Packs[num]; !pack.Custom || pack.Enabled {
		return
	}

	r.Packs = append(r.Packs[:num], r.Packs[num+1:]...)
	r.Version++
}

func withoutPlayer(team []PlayerID, remove PlayerID) []PlayerID {
	kept := make([]PlayerID, 0, len(team))
	for _, id := range team {
		if id != remove {
			kept = append(kept, id)
		}
	}
	return kept
}
