package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// callTimeout bounds one Call round trip. Launch can take a while; the
// bound exists so a dead bridge doesn't hang the adapter forever.
const callTimeout = 10 * time.Minute

// Notification is an outbound command received from the bridge.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Client is the debug-adapter side of the channel. A background reader
// routes responses to in-flight calls and queues notifications.
type Client struct {
	conn    net.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *Message
	closed  bool

	notifications chan Notification
}

// Dial connects to the bridge's socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:          conn,
		pending:       make(map[int64]chan *Message),
		notifications: make(chan Notification, 16),
	}
	go c.readLoop()
	return c, nil
}

// Notifications returns the channel carrying bridge-to-adapter commands.
// The channel is closed when the connection drops. Notifications that
// arrive while the buffer is full are dropped.
func (c *Client) Notifications() <-chan Notification {
	return c.notifications
}

func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			c.failPending(err)
			close(c.notifications)
			return
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}

		if msg.IsNotification() {
			select {
			case c.notifications <- Notification{Method: msg.Method, Params: msg.Params}:
			default:
			}
			continue
		}

		if msg.ID != nil {
			c.mu.Lock()
			ch, ok := c.pending[*msg.ID]
			if ok {
				delete(c.pending, *msg.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- &msg
			}
		}
	}
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
}

// Call invokes a method and unmarshals its result into result, which may
// be nil for void methods. A non-nil *Error response is returned as the
// error.
func (c *Client) Call(method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal %s params: %w", method, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("connection closed")
	}
	c.nextID++
	id := c.nextID
	respCh := make(chan *Message, 1)
	c.pending[id] = respCh
	c.mu.Unlock()

	msg := Message{JSONRPC: Version, ID: &id, Method: method, Params: paramsJSON}
	data, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(data, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("connection closed waiting for %s response", method)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
			}
		}
		return nil
	case <-time.After(callTimeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("timeout waiting for %s response", method)
	}
}

// Notify sends a fire-and-forget message to the bridge.
func (c *Client) Notify(method string, params any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	msg := Message{JSONRPC: Version, Method: method, Params: paramsJSON}
	data, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", method, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(append(data, '\n'))
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
