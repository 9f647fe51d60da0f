package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/observe/pkg/observable"
)

// handleWatch streams the value's changes over a websocket. The first message
// carries the current value with a null "old".
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s.watches.Add(1)
	defer s.watches.Done()

	logger := s.logger.With("watch", uuid.NewString(), "value", b.Name())
	logger.Debug("watch opened")
	defer logger.Debug("watch closed")

	changes := make(chan Change, s.config.WatchBuffer)
	overflow := make(chan struct{})

	// sub is only touched on the realm goroutine.
	var sub observable.Subscription
	release := func() {
		if sub != nil {
			sub.Remove()
			sub = nil
		}
	}

	realm := s.registry.Realm()
	ctx, cancel := context.WithTimeout(r.Context(), s.config.WatchWriteTimeout)
	err = realm.Sync(ctx, func() {
		current := b.Get()
		changes <- Change{Name: b.Name(), New: current, Stale: b.Observable().IsStale()}
		sub = b.Watch(func(c Change) {
			select {
			case changes <- c:
			default:
				// The connection cannot keep up; the writer drops it.
				select {
				case <-overflow:
				default:
					close(overflow)
				}
			}
		})
	})
	cancel()
	if err != nil {
		// The subscribe task may still be queued. Exec runs release after it.
		realm.Exec(release)
		logger.Warn("watch subscribe failed", "error", err)
		conn.Close()
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WatchWriteTimeout)
		defer cancel()
		if err := realm.Sync(ctx, release); err != nil {
			realm.Exec(release)
		}
	}()

	// Reads only detect the client closing the connection.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					logger.Debug("watch read error", "error", err)
				}
				return
			}
		}
	}()

	defer conn.Close()
	for {
		select {
		case c := <-changes:
			conn.SetWriteDeadline(time.Now().Add(s.config.WatchWriteTimeout))
			if err := conn.WriteJSON(c); err != nil {
				logger.Debug("watch write failed", "error", err)
				return
			}
		case <-overflow:
			logger.Warn("watch dropped: client too slow", "buffer", s.config.WatchBuffer)
			s.closeConn(conn, websocket.ClosePolicyViolation, "too slow")
			return
		case <-readDone:
			return
		case <-s.closing:
			s.closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
