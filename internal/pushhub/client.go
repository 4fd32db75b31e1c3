package pushhub

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientCommandType is a control frame a connected client sends to manage its
// own group memberships.
type clientCommandType string

const (
	commandJoinGroup  clientCommandType = "JOIN_GROUP"
	commandLeaveGroup clientCommandType = "LEAVE_GROUP"
)

type clientCommand struct {
	Type  clientCommandType `json:"type"`
	Group string            `json:"group"`
}

// ServeWS upgrades an HTTP request to a push-fabric WebSocket connection and
// blocks for the connection's lifetime. On disconnect, every group
// membership held by this client is released.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		groups: make(map[string]struct{}),
	}
	h.register(c)
	h.joinGroup(c, AllModelsGroup)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.logger.Warn("discarding malformed push-fabric command", "error", err)
			continue
		}

		switch cmd.Type {
		case commandJoinGroup:
			h.joinGroup(c, cmd.Group)
		case commandLeaveGroup:
			h.leaveGroup(c, cmd.Group)
		default:
			h.logger.Warn("unknown push-fabric command", "type", cmd.Type)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
