package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trytobebee/snake_engine/pkg/proto"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// client is one websocket connection. Writes are serialized by writeMu.
type client struct {
	conn    *websocket.Conn
	binary  bool
	writeMu sync.Mutex
}

func (c *client) send(m proto.ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if !c.binary {
		return c.conn.WriteJSON(m)
	}
	data, err := proto.EncodeMsgpack(m)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *client) read() (proto.ClientMessage, error) {
	var msg proto.ClientMessage
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if kind == websocket.BinaryMessage {
		return proto.DecodeClientMsgpack(data)
	}
	err = json.Unmarshal(data, &msg)
	return msg, err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, binary: r.URL.Query().Get("codec") == "msgpack"}
	log.Println("New WebSocket connection from:", r.RemoteAddr)

	// Config and current state go out before the client joins broadcasts.
	if err := c.send(proto.ConfigMessage(s.cfg.Rules)); err != nil {
		log.Println("Write error:", err)
		return
	}
	if err := c.send(proto.StateMessage(s.SessionID(), s.Snapshot())); err != nil {
		log.Println("Write error:", err)
		return
	}

	s.addClient(c)
	defer s.removeClient(c)

	for {
		msg, err := c.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Read error:", err)
			}
			return
		}
		s.handleAction(c, msg)
	}
}

// handleAction applies one client message and pushes the resulting state.
func (s *Server) handleAction(c *client, msg proto.ClientMessage) {
	action := strings.ToLower(strings.TrimSpace(msg.Action))

	switch action {
	case "up", "down", "left", "right":
		d, _ := proto.ParseDirection(action)
		s.SetDirection(d)
		// Direction changes show up on the next tick.
		return
	case proto.ActionRestart:
		snap, err := s.Reset(msg.PlayerName)
		if err != nil {
			_ = c.send(proto.ServerMessage{Type: proto.TypeError, Error: err.Error()})
			return
		}
		s.broadcast(proto.StateMessage(s.SessionID(), snap))
	case proto.ActionTick:
		snap := s.Tick()
		s.broadcast(proto.StateMessage(s.SessionID(), snap))
	default:
		_ = c.send(proto.ServerMessage{Type: proto.TypeError, Error: "unknown action " + msg.Action})
	}
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(m proto.ServerMessage) {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.send(m); err != nil {
			log.Println("Write error:", err)
		}
	}
}
