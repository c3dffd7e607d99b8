package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feltworks/tableserver/pkg/types"
)

// call sends one correlated request and waits for the matching reply or
// the request deadline. A timed-out request may be retried by the caller;
// the retry gets a fresh correlation id, so a late reply to the old id is
// simply dropped.
func (c *Client) call(ctx context.Context, evtType string, payload any) (types.Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.Envelope{}, err
	}

	reqID := uuid.NewString()
	ch := make(chan pendingReply, 1)
	c.mu.Lock()
	c.pending[reqID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, types.Envelope{Type: evtType, ReqID: reqID, Data: data}); err != nil {
		return types.Envelope{}, err
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.err != nil {
			return types.Envelope{}, r.err
		}
		if r.env.Type == types.EvtError {
			var em types.ErrorMsg
			_ = json.Unmarshal(r.env.Data, &em)
			return r.env, fmt.Errorf("%w: %s", ErrServer, em.Message)
		}
		return r.env, nil
	case <-timer.C:
		return types.Envelope{}, ErrRequestTimeout
	case <-ctx.Done():
		return types.Envelope{}, ctx.Err()
	case <-c.done:
		return types.Envelope{}, ErrDisconnected
	}
}

// JoinTable seats the player (or re-attaches to an existing seat after a
// reconnect) and subscribes this session to the table's streams.
func (c *Client) JoinTable(ctx context.Context, tableID string, buyIn int64) (types.JoinedMsg, error) {
	env, err := c.call(ctx, types.EvtJoinTable, types.JoinTableReq{TableID: tableID, BuyIn: buyIn})
	if err != nil {
		return types.JoinedMsg{}, err
	}
	var out types.JoinedMsg
	err = json.Unmarshal(env.Data, &out)
	return out, err
}

func (c *Client) LeaveTable(ctx context.Context) error {
	_, err := c.call(ctx, types.EvtLeaveTable, struct{}{})
	return err
}

func (c *Client) CreateTable(ctx context.Context, req types.CreateTableReq) (types.TableCreatedMsg, error) {
	env, err := c.call(ctx, types.EvtCreateTable, req)
	if err != nil {
		return types.TableCreatedMsg{}, err
	}
	var out types.TableCreatedMsg
	err = json.Unmarshal(env.Data, &out)
	return out, err
}

func (c *Client) GetTables(ctx context.Context) ([]types.TableInfo, error) {
	env, err := c.call(ctx, types.EvtGetTables, struct{}{})
	if err != nil {
		return nil, err
	}
	var out types.TableListMsg
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

func (c *Client) GetBetLimits(ctx context.Context) (types.BetLimitsMsg, error) {
	env, err := c.call(ctx, types.EvtGetBetLimits, struct{}{})
	if err != nil {
		return types.BetLimitsMsg{}, err
	}
	var out types.BetLimitsMsg
	err = json.Unmarshal(env.Data, &out)
	return out, err
}

// Action submits a player action. Fire-and-forget: the outcome is the
// next tableState broadcast, or a scoped error push on rejection.
func (c *Client) Action(ctx context.Context, action string, amount int64) error {
	data, err := json.Marshal(types.PlayerActionReq{Action: action, Amount: amount})
	if err != nil {
		return err
	}
	return c.write(ctx, types.Envelope{Type: types.EvtPlayerAction, Data: data})
}

// Chat sends a table chat message, also fire-and-forget.
func (c *Client) Chat(ctx context.Context, text string) error {
	data, err := json.Marshal(types.ChatReq{Text: text})
	if err != nil {
		return err
	}
	return c.write(ctx, types.Envelope{Type: types.EvtChatMessage, Data: data})
}
