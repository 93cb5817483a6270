package server

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/spire-panel/spire/glide"
)

// HandleServerConsoleGin bridges the browser to the container's live log
// stream over a websocket. Everything that can fail is checked before the
// connection is upgraded, so failures still produce a JSON envelope.
func (s *Server) HandleServerConsoleGin(c *gin.Context) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	if sv.Node == nil {
		respondErr(c, Internal("server has no node attached"))
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only surface client disconnects; the browser sends nothing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var mu sync.Mutex
	write := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			cancel()
		}
	}

	streamer := glide.NewLogStreamer(sv.Node.ConnectionURL, sv.Node.Secret, sv.ID)
	if err := streamer.Stream(ctx, write); err != nil && ctx.Err() == nil {
		s.logger.Printf("console: stream for %s ended: %v", sv.ID, err)
		write("-- log stream unavailable --")
	}
}
