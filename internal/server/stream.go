package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/NgigiN/prosperledger/internal/app"
	"github.com/NgigiN/prosperledger/internal/ledger"
)

const streamWriteTimeout = 10 * time.Second

// handleStream pushes a fresh overview for every state change of the
// session. The socket closes normally when the session ends.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	f, ok := s.parseFilter(w, r)
	if !ok {
		return
	}
	updates, cancel, err := s.app.Watch()
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.origins),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// Client messages are not expected; reading only detects the close.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-updates:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			if err := s.writeOverview(ctx, conn, snap, f); err != nil {
				s.log.Debug().Err(err).Msg("Stream write failed")
				return
			}
		}
	}
}

func (s *Server) writeOverview(ctx context.Context, conn *websocket.Conn, snap app.Snapshot, f ledger.Filter) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, app.OverviewOf(snap, f, s.app.Now()))
}

// originPatterns turns CORS origins into host patterns for the upgrade
// check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(o, "/"))
	}
	return patterns
}
