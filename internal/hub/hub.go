// Package hub owns the registry of live tables. Like the tables
// themselves it is a single-goroutine actor reached through a typed
// inbox, so table creation and lookup never race.
package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/table"
	"github.com/feltworks/tableserver/pkg/types"
)

type HubMsg interface{ isHubMsg() }

type CreateTable struct {
	Cfg   table.Config // ID may be empty; the hub assigns one
	Reply chan Created
}

type Created struct {
	ID    string
	Table *table.Table
}

type GetTable struct {
	ID    string
	Reply chan *table.Table
}

type ListTables struct {
	Reply chan []types.TableInfo
}

type RemoveTable struct{ ID string }

type ShutdownHub struct{}

func (CreateTable) isHubMsg() {}
func (GetTable) isHubMsg()    {}
func (ListTables) isHubMsg()  {}
func (RemoveTable) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	tables   map[string]*table.Table
	settler  table.Settler
	archiver table.Archiver
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, settler table.Settler, archiver table.Archiver, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		tables:   make(map[string]*table.Table),
		settler:  settler,
		archiver: archiver,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateTable:
				cfg := msg.Cfg
				if cfg.ID == "" {
					cfg.ID = uuid.NewString()
				}
				t := table.New(h.ctx, cfg, h.settler, h.archiver, h.log)
				h.tables[cfg.ID] = t
				h.log.Info("table created", zap.String("table", cfg.ID), zap.String("name", cfg.Name))
				msg.Reply <- Created{ID: cfg.ID, Table: t}

			case GetTable:
				msg.Reply <- h.tables[msg.ID] // may be nil

			case ListTables:
				infos := make([]types.TableInfo, 0, len(h.tables))
				for _, t := range h.tables {
					reply := make(chan types.TableInfo, 1)
					t.Inbox() <- table.GetInfo{Reply: reply}
					infos = append(infos, <-reply)
				}
				msg.Reply <- infos

			case RemoveTable:
				if t := h.tables[msg.ID]; t != nil {
					t.Inbox() <- table.Shutdown{}
					delete(h.tables, msg.ID)
				}

			case ShutdownHub:
				for id, t := range h.tables {
					t.Inbox() <- table.Shutdown{}
					delete(h.tables, id)
				}
				h.cancel()
			}
		}
	}
}
