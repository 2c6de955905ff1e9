package websocket

import (
	"context"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	// maxDropped consecutive full-buffer drops disconnect the client.
	maxDropped = 3 * sendBufferSize
)

// Client is one WebSocket subscriber. A non-empty listUID restricts it to
// changes of that list and to unscoped notifications.
type Client struct {
	hub     *Hub
	conn    *ws.Conn
	send    chan []byte
	listUID string
	dropped atomic.Int32
	cancel  atomic.Pointer[context.CancelFunc]
}

func NewClient(hub *Hub, conn *ws.Conn, listUID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		listUID: listUID,
	}
}

func (c *Client) wants(msg Message) bool {
	return c.listUID == "" || msg.ListUID == "" || msg.ListUID == c.listUID
}

// offer queues data without blocking. It reports false once the client has
// missed too many messages in a row.
func (c *Client) offer(data []byte) bool {
	select {
	case c.send <- data:
		c.dropped.Store(0)
		return true
	default:
		return c.dropped.Add(1) < maxDropped
	}
}

// disconnect stops Run, if it is running.
func (c *Client) disconnect() {
	if cancel := c.cancel.Load(); cancel != nil {
		(*cancel)()
	}
}

// Run serves the connection until the peer goes away, the context ends or
// the hub disconnects the client.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel.Store(&cancel)

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	go c.writePump(ctx)
	c.readPump(ctx)

	if ctx.Err() != nil {
		c.conn.Close(ws.StatusGoingAway, "")
		return
	}
	c.conn.Close(ws.StatusNormalClosure, "")
}

// readPump only watches for the peer closing; clients never send commands.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				c.hub.logger.Debug("websocket write failed", "error", err)
				c.disconnect()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.disconnect()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
