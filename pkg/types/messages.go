// Package types holds the wire protocol shared by the server gateway and
// the Go client: one JSON envelope per websocket frame, with the payload
// shapes for every event kind.
package types

import "encoding/json"

// Client -> server event kinds.
const (
	EvtJoinTable    = "joinTable"
	EvtLeaveTable   = "leaveTable"
	EvtPlayerAction = "playerAction"
	EvtChatMessage  = "chatMessage"
	EvtCreateTable  = "createTable"
	EvtGetTables    = "getTables"
	EvtGetBetLimits = "getBetLimits"
)

// Server -> client event kinds.
const (
	EvtTableState   = "tableState"
	EvtTableCreated = "tableCreated"
	EvtTableList    = "tableList"
	EvtBetLimits    = "betLimits"
	EvtJoined       = "joined"
	EvtLeft         = "left"
	EvtError        = "error"
)

// Envelope frames every message in both directions. ReqID carries the
// correlation id for request/reply pairs; fire-and-forget events (player
// actions, chat) leave it empty and are answered only by the next state
// broadcast or a scoped error.
type Envelope struct {
	Type  string          `json:"type"`
	ReqID string          `json:"reqId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinTableReq struct {
	TableID string `json:"tableId"`
	BuyIn   int64  `json:"buyIn"`
}

type PlayerActionReq struct {
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
}

type ChatReq struct {
	Text string `json:"text"`
}

type CreateTableReq struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
}

type TableInfo struct {
	TableID    string `json:"tableId"`
	Name       string `json:"name"`
	State      string `json:"state"`
	MaxPlayers int    `json:"maxPlayers"`
	Players    int    `json:"players"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
}

type TableCreatedMsg struct {
	TableID string    `json:"tableId"`
	Info    TableInfo `json:"tableInfo"`
}

type TableListMsg struct {
	Tables []TableInfo `json:"tables"`
}

type BetLimitsMsg struct {
	SmallBlind int64 `json:"smallBlind"`
	BigBlind   int64 `json:"bigBlind"`
	MinBuyIn   int64 `json:"min"`
	MaxBuyIn   int64 `json:"max"`
}

type JoinedMsg struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

type LeftMsg struct {
	TableID string `json:"tableId"`
}

type ChatMessage struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Text     string `json:"text"`
	SentAt   int64  `json:"sentAt"` // unix millis
}

type ErrorMsg struct {
	Message string `json:"message"`
}
