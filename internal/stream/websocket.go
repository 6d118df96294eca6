package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/websocket"
)

func (s *Source) readWebSocket(ctx context.Context, endpoint string) error {
	wsURL := toWebSocketURL(endpoint)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: s.client,
	})
	if err != nil {
		return fmt.Errorf("dialing %s: %w", wsURL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameSize)

	s.emitOpen()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		s.handleFrame(data)
	}
}

// toWebSocketURL converts an http/https URL to ws/wss.
func toWebSocketURL(url string) string {
	if strings.HasPrefix(url, "http://") {
		return "ws://" + url[7:]
	}
	if strings.HasPrefix(url, "https://") {
		return "wss://" + url[8:]
	}
	return url
}
