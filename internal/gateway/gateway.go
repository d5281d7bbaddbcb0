package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"holdem-table/holdem"
	"holdem-table/internal/codec"
	"holdem-table/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
	submitTimeout  = 5 * time.Second
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type frame struct {
	messageType int
	data        []byte
}

// Connection represents a WebSocket client connection. After a join the
// coordinator reaches it through sink.
type Connection struct {
	ID      string // local id, for logs
	ConnID  string // coordinator id, set after a successful join
	Name    string
	Conn    *websocket.Conn
	Send    chan frame
	Gateway *Gateway

	// binary is fixed by the framing of the join message
	binary bool

	done      chan struct{}
	closeOnce sync.Once
}

// Gateway manages WebSocket connections
type Gateway struct {
	coord *session.Coordinator

	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64
}

func New(coord *session.Coordinator) *Gateway {
	return &Gateway{
		coord:       coord,
		connections: make(map[string]*Connection),
	}
}

// Count returns the number of open websocket connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:      fmt.Sprintf("conn_%d", g.nextConnID),
		Conn:    conn,
		Send:    make(chan frame, sendBuffer),
		Gateway: g,
		done:    make(chan struct{}),
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", c.ID, total)

	go c.readPump()
	go c.writePump()
}

// SendView queues v in the connection's framing. It never blocks: a full
// buffer is reported as an error and the coordinator drops the connection.
func (c *Connection) SendView(v holdem.View) error {
	var f frame
	if c.binary {
		f = frame{messageType: websocket.BinaryMessage, data: codec.EncodeStateBinary(v)}
	} else {
		data, err := codec.EncodeStateText(v)
		if err != nil {
			return err
		}
		f = frame{messageType: websocket.TextMessage, data: data}
	}
	return c.push(f)
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) push(f frame) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.Send <- f:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Connection) readPump() {
	defer func() {
		if c.ConnID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
			if err := c.Gateway.coord.Disconnect(ctx, c.ConnID); err != nil && !errors.Is(err, session.ErrCoordinatorClosed) {
				log.Printf("[Gateway] Disconnect %s: %v", c.ID, err)
			}
			cancel()
		}
		c.Close()
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error on %s: %v", c.ID, err)
			}
			return
		}
		c.handleMessage(messageType, message)
	}
}

func (c *Connection) handleMessage(messageType int, data []byte) {
	var (
		in  codec.Inbound
		err error
	)
	switch messageType {
	case websocket.TextMessage:
		in, err = codec.DecodeText(data)
	case websocket.BinaryMessage:
		in, err = codec.DecodeBinary(data)
	default:
		return
	}
	if err != nil {
		log.Printf("[Gateway] %s sent bad frame: %v", c.ID, err)
		c.sendError(messageType, "invalid message format")
		return
	}

	switch in.Type {
	case codec.MessageJoin:
		c.handleJoin(messageType, in.Name)
	case codec.MessageAction:
		c.handleAction(messageType, in.Action)
	}
}

func (c *Connection) handleJoin(messageType int, name string) {
	if c.ConnID != "" {
		c.sendError(messageType, "already joined")
		return
	}
	name = strings.TrimSpace(name)
	c.binary = messageType == websocket.BinaryMessage

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	connID, err := c.Gateway.coord.Join(ctx, name, sink{c})
	if err != nil {
		log.Printf("[Gateway] %s join %q failed: %v", c.ID, name, err)
		c.sendError(messageType, err.Error())
		return
	}
	c.ConnID = connID
	c.Name = name
	log.Printf("[Gateway] %s joined as %q (%s)", c.ID, name, connID)
}

func (c *Connection) handleAction(messageType int, a holdem.Action) {
	if c.ConnID == "" {
		c.sendError(messageType, "join first")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := c.Gateway.coord.Act(ctx, c.ConnID, a); err != nil {
		log.Printf("[Gateway] %q action %s rejected: %v", c.Name, a.Kind, err)
		c.sendError(messageType, err.Error())
	}
}

func (c *Connection) sendError(messageType int, msg string) {
	f := frame{messageType: messageType}
	if messageType == websocket.BinaryMessage {
		f.data = codec.EncodeErrorBinary(msg)
	} else {
		f.data = codec.EncodeErrorText(msg)
	}
	if err := c.push(f); err != nil {
		log.Printf("[Gateway] Drop error frame to %s: %v", c.ID, err)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case f := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(f.messageType, f.data); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// sink adapts a Connection to session.Sink.
type sink struct {
	c *Connection
}

func (s sink) Send(v holdem.View) error { return s.c.SendView(v) }
func (s sink) Close()                   { s.c.Close() }
