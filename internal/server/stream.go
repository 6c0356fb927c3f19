// Live alert feed over websocket.
package server

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// handleAlertStream upgrades the connection and subscribes it to the
// notification stream hub. The connection stays registered until the client
// goes away; reads are drained only to detect closure.
func (s *Server) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, "alert stream disabled", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("stream: websocket accept failed")
		return
	}

	s.hub.Subscribe(conn)
	log.Info().Int("subscribers", s.hub.Subscribers()).Msg("stream: client subscribed")

	defer func() {
		s.hub.Unsubscribe(conn)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
