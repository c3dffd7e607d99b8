// Package ws is the server side of the synchronization gateway: it
// upgrades connections, checks the bearer credential, and bridges each
// session between its websocket and the owning table's inbox. Network I/O
// stays in the session goroutines; tables only ever see enqueued messages.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/engine"
	"github.com/feltworks/tableserver/internal/hub"
	"github.com/feltworks/tableserver/internal/table"
	"github.com/feltworks/tableserver/pkg/types"
)

const writeTimeout = 3 * time.Second

// TokenVerifier validates the handshake's bearer credential and resolves
// it to a player identity. Issuing and refreshing credentials belongs to
// the identity collaborator, not this gateway.
type TokenVerifier func(token string) (playerID string, err error)

// Handler upgrades websocket sessions and runs their read loop.
func Handler(h *hub.Hub, verify TokenVerifier, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		playerID, err := verify(bearerToken(r))
		if err != nil {
			// Auth failures are reported as a scoped error event so the
			// client can refresh its credential and retry.
			writeEnvelope(r.Context(), conn, types.Envelope{Type: types.EvtError}, types.ErrorMsg{Message: "auth failure: " + err.Error()})
			conn.Close(websocket.StatusPolicyViolation, "auth failure")
			return
		}

		s := &session{
			id:       uuid.NewString(),
			playerID: playerID,
			conn:     conn,
			hub:      h,
			outbox:   make(chan table.Push, 16),
			log:      log.With(zap.String("session", playerID)),
		}
		s.run(r.Context())
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// session is one connected client: at most one joined table at a time.
type session struct {
	id       string
	playerID string
	conn     *websocket.Conn
	hub      *hub.Hub
	outbox   chan table.Push
	cur      *table.Table
	curID    string
	log      *zap.Logger
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close(websocket.StatusNormalClosure, "bye")
	defer s.detach()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Writer: table pushes become outbound frames. The table drops this
	// session if the outbox backs up, so a stalled socket cannot stall
	// the table actor. The session owns the outbox and never closes it;
	// the writer exits with the session context instead.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-s.outbox:
				switch {
				case p.State != nil:
					s.send(ctx, types.Envelope{Type: types.EvtTableState}, p.State)
				case p.Chat != nil:
					s.send(ctx, types.Envelope{Type: types.EvtChatMessage}, p.Chat)
				case p.Err != "":
					s.send(ctx, types.Envelope{Type: types.EvtError}, types.ErrorMsg{Message: p.Err})
				}
			}
		}
	}()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.log.Debug("session read ended", zap.Error(err))
			}
			return
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.send(ctx, types.Envelope{Type: types.EvtError}, types.ErrorMsg{Message: "bad json"})
			continue
		}
		s.dispatch(ctx, env)
	}
}

// detach removes the subscription but keeps the seat: a reconnecting
// player re-joins and picks the seat back up with a fresh snapshot.
func (s *session) detach() {
	if s.cur != nil {
		s.cur.Inbox() <- table.Unsubscribe{SessionID: s.id}
		s.cur = nil
		s.curID = ""
	}
}

func (s *session) dispatch(ctx context.Context, env types.Envelope) {
	switch env.Type {
	case types.EvtJoinTable:
		var req types.JoinTableReq
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.fail(ctx, env.ReqID, "bad joinTable payload")
			return
		}
		s.joinTable(ctx, env.ReqID, req)

	case types.EvtLeaveTable:
		if s.cur == nil {
			s.fail(ctx, env.ReqID, "not at a table")
			return
		}
		reply := make(chan error, 1)
		s.cur.Inbox() <- table.StandUp{PlayerID: s.playerID, Reply: reply}
		if err := <-reply; err != nil {
			s.fail(ctx, env.ReqID, err.Error())
			return
		}
		left := s.curID
		s.detach()
		s.send(ctx, types.Envelope{Type: types.EvtLeft, ReqID: env.ReqID}, types.LeftMsg{TableID: left})

	case types.EvtPlayerAction:
		var req types.PlayerActionReq
		if err := json.Unmarshal(env.Data, &req); err != nil || s.cur == nil {
			s.fail(ctx, env.ReqID, "bad playerAction")
			return
		}
		// Fire-and-forget: the result arrives as the next broadcast
		// snapshot, or as a scoped error event on rejection.
		s.cur.Inbox() <- table.Act{
			SessionID: s.id,
			PlayerID:  s.playerID,
			Kind:      engine.ActionKind(req.Action),
			Amount:    req.Amount,
		}

	case types.EvtChatMessage:
		var req types.ChatReq
		if err := json.Unmarshal(env.Data, &req); err != nil || s.cur == nil {
			s.fail(ctx, env.ReqID, "bad chatMessage")
			return
		}
		s.cur.Inbox() <- table.Chat{PlayerID: s.playerID, Text: req.Text}

	case types.EvtCreateTable:
		var req types.CreateTableReq
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.fail(ctx, env.ReqID, "bad createTable payload")
			return
		}
		cfg := table.Config{
			Name:       req.Name,
			MaxSeats:   req.MaxPlayers,
			SmallBlind: req.SmallBlind,
			BigBlind:   req.BigBlind,
			MinBuyIn:   req.MinBuyIn,
			MaxBuyIn:   req.MaxBuyIn,
		}
		// Client-suppliable parameters are bounded here; nothing past
		// the gateway re-checks them.
		if err := cfg.Validate(); err != nil {
			s.fail(ctx, env.ReqID, err.Error())
			return
		}
		reply := make(chan hub.Created, 1)
		s.hub.Inbox() <- hub.CreateTable{Cfg: cfg, Reply: reply}
		created := <-reply
		info := make(chan types.TableInfo, 1)
		created.Table.Inbox() <- table.GetInfo{Reply: info}
		s.send(ctx, types.Envelope{Type: types.EvtTableCreated, ReqID: env.ReqID},
			types.TableCreatedMsg{TableID: created.ID, Info: <-info})

	case types.EvtGetTables:
		reply := make(chan []types.TableInfo, 1)
		s.hub.Inbox() <- hub.ListTables{Reply: reply}
		s.send(ctx, types.Envelope{Type: types.EvtTableList, ReqID: env.ReqID},
			types.TableListMsg{Tables: <-reply})

	case types.EvtGetBetLimits:
		if s.cur == nil {
			s.fail(ctx, env.ReqID, "not at a table")
			return
		}
		reply := make(chan types.BetLimitsMsg, 1)
		s.cur.Inbox() <- table.GetLimits{Reply: reply}
		s.send(ctx, types.Envelope{Type: types.EvtBetLimits, ReqID: env.ReqID}, <-reply)

	default:
		s.fail(ctx, env.ReqID, "unknown event "+env.Type)
	}
}

func (s *session) joinTable(ctx context.Context, reqID string, req types.JoinTableReq) {
	reply := make(chan *table.Table, 1)
	s.hub.Inbox() <- hub.GetTable{ID: req.TableID, Reply: reply}
	t := <-reply
	if t == nil {
		s.fail(ctx, reqID, "table not found")
		return
	}

	res := make(chan table.SitDownResult, 1)
	t.Inbox() <- table.SitDown{SessionID: s.id, PlayerID: s.playerID, BuyIn: req.BuyIn, Reply: res}
	r := <-res
	if r.Err != nil {
		s.fail(ctx, reqID, r.Err.Error())
		return
	}

	s.detach()
	s.cur = t
	s.curID = req.TableID
	t.Inbox() <- table.Subscribe{SessionID: s.id, PlayerID: s.playerID, Outbox: s.outbox}
	s.send(ctx, types.Envelope{Type: types.EvtJoined, ReqID: reqID},
		types.JoinedMsg{TableID: req.TableID, Seat: r.Seat})
}

func (s *session) fail(ctx context.Context, reqID, msg string) {
	s.send(ctx, types.Envelope{Type: types.EvtError, ReqID: reqID}, types.ErrorMsg{Message: msg})
}

func (s *session) send(ctx context.Context, env types.Envelope, payload any) {
	if err := writeEnvelope(ctx, s.conn, env, payload); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, env types.Envelope, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env.Data = data
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, frame)
}
