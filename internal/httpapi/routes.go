package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/hub"
	"github.com/feltworks/tableserver/internal/ws"
)

func SetupRoutes(h *hub.Hub, verify ws.TokenVerifier, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/tables", ListTables(h))
	r.Get("/ws", ws.Handler(h, verify, log))
	return r
}
