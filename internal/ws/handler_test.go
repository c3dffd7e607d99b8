package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/hub"
	"github.com/feltworks/tableserver/internal/treasury"
	"github.com/feltworks/tableserver/pkg/client"
	"github.com/feltworks/tableserver/pkg/types"
)

const gatewaySecret = "gateway-secret"

type gatewaySettler struct{}

func (gatewaySettler) Distribute(_ context.Context, pot int64, _, _ string) (*treasury.Distribution, error) {
	return &treasury.Distribution{PotAmount: pot, WinnerAmount: pot}, nil
}

func startGateway(t *testing.T) string {
	t.Helper()
	h := hub.NewHub(context.Background(), gatewaySettler{}, nil, zap.NewNop())
	t.Cleanup(func() { h.Inbox() <- hub.ShutdownHub{} })
	srv := httptest.NewServer(Handler(h, HMACVerifier(gatewaySecret), zap.NewNop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialGateway(t *testing.T, url, playerID string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), client.Options{
		URL: url,
		RefreshToken: func(context.Context) (string, error) {
			return SignToken(gatewaySecret, playerID), nil
		},
		RequestTimeout: 2 * time.Second,
		Logger:         zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestGatewayCreateJoinObserve(t *testing.T) {
	url := startGateway(t)
	c := dialGateway(t, url, "alice")

	created, err := c.CreateTable(context.Background(), types.CreateTableReq{
		Name: "1/2 nl", MaxPlayers: 6, SmallBlind: 10, BigBlind: 20, MinBuyIn: 400, MaxBuyIn: 2000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.TableID == "" || created.Info.MaxPlayers != 6 {
		t.Fatalf("unexpected create reply: %+v", created)
	}

	snaps := make(chan *types.TableSnapshot, 8)
	detach := c.OnTableState(func(s *types.TableSnapshot) { snaps <- s })
	defer detach()

	joined, err := c.JoinTable(context.Background(), created.TableID, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if joined.TableID != created.TableID || joined.Seat != 0 {
		t.Fatalf("unexpected join reply: %+v", joined)
	}

	select {
	case snap := <-snaps:
		if snap.TableID != created.TableID || snap.Seats[0].PlayerID != "alice" {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot push after join")
	}

	limits, err := c.GetBetLimits(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if limits.SmallBlind != 10 || limits.BigBlind != 20 {
		t.Fatalf("unexpected limits: %+v", limits)
	}

	tables, err := c.GetTables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Players != 1 {
		t.Fatalf("unexpected table list: %+v", tables)
	}

	if err := c.LeaveTable(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestGatewayRejectsInvalidTableConfig(t *testing.T) {
	url := startGateway(t)
	c := dialGateway(t, url, "alice")

	for name, req := range map[string]types.CreateTableReq{
		"one seat":        {MaxPlayers: 1, SmallBlind: 10, BigBlind: 20, MinBuyIn: 400, MaxBuyIn: 2000},
		"negative seats":  {MaxPlayers: -1, SmallBlind: 10, BigBlind: 20, MinBuyIn: 400, MaxBuyIn: 2000},
		"zero blinds":     {MaxPlayers: 6, SmallBlind: 0, BigBlind: 0, MinBuyIn: 400, MaxBuyIn: 2000},
		"negative blind":  {MaxPlayers: 6, SmallBlind: 10, BigBlind: -20, MinBuyIn: 400, MaxBuyIn: 2000},
		"inverted buyins": {MaxPlayers: 6, SmallBlind: 10, BigBlind: 20, MinBuyIn: 2000, MaxBuyIn: 400},
	} {
		if _, err := c.CreateTable(context.Background(), req); !errors.Is(err, client.ErrServer) {
			t.Errorf("%s: want a scoped server rejection, got %v", name, err)
		}
	}

	// The process survived every rejection: a valid create still works.
	if _, err := c.CreateTable(context.Background(), types.CreateTableReq{
		Name: "ok", MaxPlayers: 2, SmallBlind: 10, BigBlind: 20, MinBuyIn: 400, MaxBuyIn: 2000,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestGatewayRejectsBadCredential(t *testing.T) {
	url := startGateway(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url+"?token=bogus", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != types.EvtError {
		t.Fatalf("want an error event before the close, got %s", env.Type)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("connection must close after the auth failure")
	}
}
