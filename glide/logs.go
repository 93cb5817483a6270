package glide

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

const (
	logReconnectAttempts = 5
	logReconnectBase     = 3 * time.Second
)

// StreamEndedMarker is the synthetic line emitted when the agent closes the
// log stream normally.
const StreamEndedMarker = "-- stream ended --"

// LogStreamer follows a container's console output over the agent's
// websocket endpoint. Dropped connections are retried with a doubling
// backoff; consecutive duplicate lines are collapsed so reconnects do not
// replay the tail of the previous connection.
type LogStreamer struct {
	BaseURL     string
	Secret      string
	ContainerID string
	Dialer      *websocket.Dialer

	lastLine string
	sawAny   bool
}

// NewLogStreamer builds a streamer for one container on one node.
func NewLogStreamer(baseURL, secret, containerID string) *LogStreamer {
	return &LogStreamer{
		BaseURL:     baseURL,
		Secret:      secret,
		ContainerID: containerID,
		Dialer:      websocket.DefaultDialer,
	}
}

func (s *LogStreamer) endpoint() (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("glide: bad agent url %q: %w", s.BaseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/containers/" + s.ContainerID + "/logs/stream"
	return u.String(), nil
}

// Stream follows the container's logs, invoking emit for every new line until
// ctx is cancelled or the reconnect budget is exhausted. emit is called from a
// single goroutine.
func (s *LogStreamer) Stream(ctx context.Context, emit func(line string)) error {
	endpoint, err := s.endpoint()
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(logReconnectAttempts, retry.NewExponential(logReconnectBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.streamOnce(ctx, endpoint, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *LogStreamer) streamOnce(ctx context.Context, endpoint string, emit func(line string)) error {
	header := map[string][]string{"Authorization": {"Bearer " + s.Secret}}
	conn, _, err := s.Dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("glide: dialing log stream: %w", err)
	}
	defer conn.Close()

	sub, _ := json.Marshal(map[string]string{"action": "subscribe", "container": s.ContainerID})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("glide: subscribing to log stream: %w", err)
	}

	// Unblock ReadMessage when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.push(StreamEndedMarker, emit)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("glide: reading log stream: %w", err)
		}
		for _, line := range strings.Split(string(msg), "\n") {
			if line == "" {
				continue
			}
			s.push(line, emit)
		}
	}
}

// push forwards a line unless it repeats the previous one. The end-of-stream
// marker collapses the same way, so repeated reconnects against a finished
// container report the end once.
func (s *LogStreamer) push(line string, emit func(string)) {
	if s.sawAny && line == s.lastLine {
		return
	}
	s.sawAny = true
	s.lastLine = line
	emit(line)
}
