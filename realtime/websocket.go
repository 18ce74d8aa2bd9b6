package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = time.Minute
	writeWait  = 10 * time.Second
	maxMessage = 16 << 10
)

type WebsocketConnection interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type gorillaConnection struct {
	socket *websocket.Conn
}

func NewWebsocketConnection(conn *websocket.Conn) WebsocketConnection {
	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &gorillaConnection{conn}
}

func (wc *gorillaConnection) Write(data []byte) error {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.BinaryMessage, data)
}

func (wc *gorillaConnection) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (wc *gorillaConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

// Close may run concurrently with Write, so the close frame goes out as a
// control message.
func (wc *gorillaConnection) Close(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	wc.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	wc.socket.Close()
}
