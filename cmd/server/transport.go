package main

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
)

// wsTransport adapts a coder/websocket connection to session.Transport,
// using the same dial/read/write idiom as pkg/providers/tts's upstream
// websocket client, pointed the other direction.
type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) WriteJSON(v protocol.Outbound) error {
	return wsjson.Write(context.Background(), t.conn, v)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
