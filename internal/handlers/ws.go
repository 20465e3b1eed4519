// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/pokerbets/internal/events"
	"github.com/jason-s-yu/pokerbets/internal/middleware"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/sirupsen/logrus"
)

const wsSubprotocol = "ledger"

type snapshotMessage struct {
	Type  string        `json:"type"`
	Lobby *models.Lobby `json:"lobby"`
}

// LobbyWSHandler streams a lobby's ledger events to a read-only watcher.
// The first message is a snapshot of the lobby; each event follows as its
// own JSON message.
func LobbyWSHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{wsSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != wsSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the ledger subprotocol")
			return
		}

		lob, err := s.Ledger.Lobby(r.Context(), lobbyAddr(r))
		if err != nil {
			c.Close(InvalidLobbyIDError, "lobby does not exist")
			return
		}

		watcher := s.Hub.Subscribe(lob.Address)
		s.Metrics.Gauge("ws.watchers", int64(s.Hub.Count()))
		middleware.LogWebSocketConnect(s.Logger, remoteAddr, r.URL.Path)
		defer func() {
			s.Hub.Unsubscribe(watcher)
			s.Metrics.Gauge("ws.watchers", int64(s.Hub.Count()))
		}()

		// Watchers never send; CloseRead handles control frames and cancels
		// ctx once the client goes away.
		ctx := c.CloseRead(r.Context())

		if err := writeMessage(ctx, c, snapshotMessage{Type: "snapshot", Lobby: lob}); err != nil {
			middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, r.URL.Path, err)
			return
		}

		err = writePump(ctx, c, watcher, s.Logger)
		middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, r.URL.Path, err)
		if errors.Is(err, errSlowConsumer) {
			c.Close(SlowConsumerError, "too far behind")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

var errSlowConsumer = errors.New("watcher dropped events")

// writePump forwards hub events to the socket and pings periodically.
func writePump(ctx context.Context, c *websocket.Conn, watcher *events.Watcher, logger *logrus.Logger) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.OutChan:
			if !ok {
				return nil
			}
			if err := writeMessage(ctx, c, ev); err != nil {
				logger.Warnf("ledger ws: write to watcher %v failed: %v", watcher.ID, err)
				return err
			}
			if watcher.Dropped() > 0 {
				return errSlowConsumer
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ledger ws: ping to watcher %v failed: %v", watcher.ID, err)
				return err
			}
		}
	}
}

func writeMessage(ctx context.Context, c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
