package websocket

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func httpHandler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.HandleWebSocket)
	return r
}
