package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/retroloop/retroloop/internal/domain/collab"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// sessionFrame is one push to a connected socket. A nil session means the
// watched session no longer exists.
type sessionFrame struct {
	Session       *collab.Session       `json:"session"`
	Collaborators []collab.Collaborator `json:"collaborators"`
}

// handleSessionSocket streams the normalized session state over a websocket.
// Each socket holds one store watch; the watch is torn down when the socket
// closes.
func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	frames := make(chan sessionFrame, 32)
	sub := collab.NewSubscriber(s.store, s.logger, func(sess *collab.Session, collaborators []collab.Collaborator) {
		select {
		case frames <- sessionFrame{Session: sess, Collaborators: collaborators}:
		default:
			// Slow consumer. Every frame carries the full state, so the
			// next notification catches the socket up.
		}
	})
	defer sub.Close()

	if err := sub.Set(r.Context(), code); err != nil {
		s.logger.Warn("session watch failed", "session", code, "error", err)
		_ = conn.WriteJSON(map[string]string{"error": "watch unavailable"})
		return
	}

	// The socket is push-only, but reading is how gorilla surfaces close
	// frames from the peer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case frame := <-frames:
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
