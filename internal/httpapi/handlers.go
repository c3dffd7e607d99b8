package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/feltworks/tableserver/internal/hub"
	"github.com/feltworks/tableserver/pkg/types"
)

// ListTables mirrors the websocket getTables query on the REST surface
// for dashboards that do not hold a realtime session.
func ListTables(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []types.TableInfo, 1)
		h.Inbox() <- hub.ListTables{Reply: reply}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.TableListMsg{Tables: <-reply})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
