// internal/protocol/protocol.go

// Package protocol defines the JSON messages exchanged with clients, both
// over the websocket and on the room lookup/creation endpoints.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/eltmon/codies/internal/game"
)

// StatusClientOutdated is the websocket close code sent when the client's
// protocol version does not match the server's. Clients treat it as an
// instruction to reload.
const StatusClientOutdated = 4418

// RoomRequest asks the server to create or look up a room.
type RoomRequest struct {
	RoomName string `json:"roomName"`
	RoomPass string `json:"roomPass"`
	Create   bool   `json:"create"`
}

// Valid reports whether the request is well formed, with a user-facing reason
// when it is not.
func (r *RoomRequest) Valid() (msg string, valid bool) {
	if len(r.RoomName) < 3 || len(r.RoomName) > 16 {
		return "Room name must be between 3 and 16 characters.", false
	}
	if len(r.RoomPass) == 0 {
		return "Room password must not be empty.", false
	}
	return "", true
}

// RoomResponse carries either the room's ID or an error message.
type RoomResponse struct {
	ID    *string `json:"id,omitempty"`
	Error *string `json:"error,omitempty"`
}

// TimeResponse reports the server's clock so clients can compute timer
// offsets against it.
type TimeResponse struct {
	Time time.Time `json:"time"`
}

// StatsResponse is the public room/client count.
type StatsResponse struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}

// WSQuery holds the connection-establishment parameters carried as websocket
// query parameters.
type WSQuery struct {
	RoomID   string
	PlayerID uuid.UUID
	Nickname string
}

// Valid reports whether the query identifies a joinable player.
func (w *WSQuery) Valid() bool {
	if w.RoomID == "" || w.PlayerID == uuid.Nil {
		return false
	}
	if len(w.Nickname) == 0 || len(w.Nickname) > 16 {
		return false
	}
	return true
}

// ClientNote is the inbound command envelope. Version is the client's view of
// the room state version; commands carrying a stale version are rejected.
type ClientNote struct {
	Method  ClientMethod    `json:"method"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// ClientMethod names a client command.
type ClientMethod string

const (
	NewGameMethod        = ClientMethod("newGame")
	EndTurnMethod        = ClientMethod("endTurn")
	RandomizeTeamsMethod = ClientMethod("randomizeTeams")
	RevealMethod         = ClientMethod("reveal")
	ChangeTeamMethod     = ClientMethod("changeTeam")
	ChangeNicknameMethod = ClientMethod("changeNickname")
	ChangeRoleMethod     = ClientMethod("changeRole")
	ChangePackMethod     = ClientMethod("changePack")
	ChangeTurnModeMethod = ClientMethod("changeTurnMode")
	ChangeTurnTimeMethod = ClientMethod("changeTurnTime")
	AddPacksMethod       = ClientMethod("addPacks")
	RemovePackMethod     = ClientMethod("removePack")
	ChangeHideBombMethod = ClientMethod("changeHideBomb")
)

type NewGameParams struct{}

type EndTurnParams struct{}

type RandomizeTeamsParams struct{}

type RevealParams struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type ChangeTeamParams struct {
	Team game.Team `json:"team"`
}

type ChangeNicknameParams struct {
	Nickname string `json:"nickname"`
}

type ChangeRoleParams struct {
	Spymaster bool `json:"spymaster"`
}

type ChangePackParams struct {
	Num    int  `json:"num"`
	Enable bool `json:"enable"`
}

type ChangeTurnModeParams struct {
	Timed bool `json:"timed"`
}

type ChangeTurnTimeParams struct {
	Seconds int `json:"seconds"`
}

type AddPacksParams struct {
	Packs []struct {
		Name  string   `json:"name"`
		Words []string `json:"words"`
	} `json:"packs"`
}

type RemovePackParams struct {
	Num int `json:"num"`
}

type ChangeHideBombParams struct {
	HideBomb bool `json:"hideBomb"`
}

// ServerMethod names an outbound message kind.
type ServerMethod string

// ServerNote is the outbound envelope.
type ServerNote struct {
	Method ServerMethod `json:"method"`
	Params interface{}  `json:"params"`
}

// StateNote wraps a role-filtered state snapshot for broadcast.
func StateNote(s *State) ServerNote {
	return ServerNote{
		Method: "state",
		Params: s,
	}
}

// State is the role-filtered projection of a room's game state sent to one
// class of viewer. Board tiles omit View for information the viewer must not
// see.
type State struct {
	Version   int              `json:"version"`
	Teams     [][]*StatePlayer `json:"teams"`
	Turn      game.Team        `json:"turn"`
	Winner    *game.Team       `json:"winner"`
	Board     [][]*StateTile   `json:"board"`
	WordsLeft []int            `json:"wordsLeft"`
	Lists     []*StateWordList `json:"lists"`
	Timer     *StateTimer      `json:"timer"`
	HideBomb  bool             `json:"hideBomb"`
}

type StatePlayer struct {
	PlayerID  game.PlayerID `json:"playerID"`
	Nickname  string        `json:"nickname"`
	Spymaster bool          `json:"spymaster"`
}

type StateTile struct {
	Word     string     `json:"word"`
	Revealed bool       `json:"revealed"`
	View     *StateView `json:"view"`
}

type StateView struct {
	Team    game.Team `json:"team"`
	Neutral bool      `json:"neutral"`
	Bomb    bool      `json:"bomb"`
}

type StateWordList struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Custom  bool   `json:"custom"`
	Enabled bool   `json:"enabled"`
}

// StateTimer describes the active turn countdown. TurnEnd is an absolute
// server timestamp; clients compare it against /api/time.
type StateTimer struct {
	TurnTime int       `json:"turnTime"`
	TurnEnd  time.Time `json:"turnEnd"`
}
