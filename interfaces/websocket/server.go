package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kbweb/pkg/auth"
)

// maxConnectionsPerUser bounds the viewers a single user may open
const maxConnectionsPerUser = 10

// Server upgrades viewer requests and hands the connections to the hub
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	auth     *auth.Authenticator
	logger   *zap.Logger
}

// NewServer creates a new WebSocket server
func NewServer(hub *Hub, authenticator *auth.Authenticator, allowedOrigins []string, logger *zap.Logger) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		auth:   authenticator,
		logger: logger,
	}
}

// originChecker allows every origin when none are configured
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket handles GET /ws
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Authenticate(r)
	if err != nil {
		s.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if s.hub.ConnectionCount(user.UserID) >= maxConnectionsPerUser {
		s.logger.Warn("Connection limit exceeded for user", zap.String("userID", user.UserID))
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(user.UserID, s.hub, conn, s.logger)
	client.Start()

	s.logger.Info("Viewer connected",
		zap.String("userID", user.UserID),
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}
