package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rbergman/mobilebridge/editor"
	"github.com/rbergman/mobilebridge/paths"
)

const (
	// readTimeout bounds a single read from the peer so the handler
	// goroutine can notice a disposed channel.
	readTimeout = 10 * time.Second

	// writeTimeout prevents the bridge from blocking indefinitely if the
	// debug adapter becomes unresponsive.
	writeTimeout = 10 * time.Second

	// maxBindAttempts bounds bind-conflict recovery per Start call. A
	// process that keeps re-occupying the socket fails fast instead of
	// looping.
	maxBindAttempts = 3
)

// Handler services one inbound method. A nil result marshals to a JSON
// null result.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Channel owns the bridge's local RPC endpoint: a unix socket at a path
// derived from the project root, carrying newline-delimited JSON-RPC
// messages. One peer (the debug adapter) is served at a time; the accept
// loop keeps accepting so a restarted adapter can reattach.
type Channel struct {
	projectRoot string
	socketPath  string
	monitors    *editor.MonitorHolder
	log         *slog.Logger

	methods map[string]Handler

	// ctx is the channel's lifetime context; handlers run under it so
	// Dispose cancels in-flight work.
	ctx    context.Context
	cancel context.CancelFunc

	listener net.Listener
	started  bool
	closed   bool
	closedMu sync.RWMutex // guards started and closed
	wg       sync.WaitGroup
	readyCh  chan struct{}

	peer    net.Conn
	peerMu  sync.Mutex
	writeMu sync.Mutex // serializes writes to the peer connection
}

// NewChannel creates an unbound channel for the project. The monitor
// holder is released on Dispose; it may be shared with the launch side.
func NewChannel(projectRoot string, monitors *editor.MonitorHolder, log *slog.Logger) *Channel {
	if monitors == nil {
		monitors = &editor.MonitorHolder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		ctx:         ctx,
		cancel:      cancel,
		projectRoot: projectRoot,
		socketPath:  paths.SocketPath(projectRoot),
		monitors:    monitors,
		log:         log.With("component", "channel"),
		methods:     make(map[string]Handler),
		readyCh:     make(chan struct{}),
	}
}

// SocketPath returns the endpoint address the channel binds.
func (c *Channel) SocketPath() string {
	return c.socketPath
}

// Monitors returns the channel's monitor holder.
func (c *Channel) Monitors() *editor.MonitorHolder {
	return c.monitors
}

// Register adds an inbound method handler. The method table must be
// complete before Start; registration after Start is rejected so no
// connection ever observes a partial table.
func (c *Channel) Register(method string, handler Handler) error {
	if c.isStarted() {
		return fmt.Errorf("cannot register %q: channel already started", method)
	}
	if _, exists := c.methods[method]; exists {
		return fmt.Errorf("method %q already registered", method)
	}
	c.methods[method] = handler
	return nil
}

// Start binds the socket and begins accepting. On an address-in-use
// failure it probes the conflicting socket: a live peer aborts the start
// (ErrLivePeer, socket left in place); a stale socket is removed and the
// bind retried, up to maxBindAttempts in total.
func (c *Channel) Start() error {
	if c.isStarted() {
		return fmt.Errorf("channel already started")
	}

	var lastErr error
	for attempt := 1; attempt <= maxBindAttempts; attempt++ {
		listener, err := net.Listen("unix", c.socketPath)
		if err == nil {
			c.setStarted(listener)
			c.log.Info("listening", "socketPath", c.socketPath)
			c.wg.Add(1)
			go c.run()
			<-c.readyCh
			return nil
		}

		if !isAddrInUse(err) {
			return fmt.Errorf("failed to bind %s: %w", c.socketPath, err)
		}

		lastErr = err
		if recErr := recoverSocket(c.socketPath, c.log); recErr != nil {
			return fmt.Errorf("failed to bind %s: %w", c.socketPath, recErr)
		}
	}
	return fmt.Errorf("failed to bind %s after %d attempts: %w", c.socketPath, maxBindAttempts, lastErr)
}

func (c *Channel) isStarted() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.started
}

func (c *Channel) setStarted(listener net.Listener) {
	c.closedMu.Lock()
	c.listener = listener
	c.started = true
	c.closedMu.Unlock()
}

// run accepts peer connections until the channel is disposed. Connections
// are served one at a time.
func (c *Channel) run() {
	defer c.wg.Done()

	close(c.readyCh)

	for {
		c.closedMu.RLock()
		closed := c.closed
		c.closedMu.RUnlock()
		if closed {
			c.log.Info("channel closed, stopping accept loop")
			return
		}

		conn, err := c.listener.Accept()
		if err != nil {
			c.closedMu.RLock()
			closed := c.closed
			c.closedMu.RUnlock()
			if closed {
				return
			}
			c.log.Warn("accept error (continuing)", "error", err)
			continue
		}

		c.setPeer(conn)
		c.serve(conn)
		c.setPeer(nil)
	}
}

func (c *Channel) setPeer(conn net.Conn) {
	c.peerMu.Lock()
	c.peer = conn
	c.peerMu.Unlock()
}

// serve reads messages from one peer until it disconnects or the channel
// is disposed.
func (c *Channel) serve(conn net.Conn) {
	defer conn.Close()
	c.log.Debug("peer connected")

	reader := bufio.NewReader(conn)
	for {
		c.closedMu.RLock()
		closed := c.closed
		c.closedMu.RUnlock()
		if closed {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			c.log.Debug("peer disconnected", "error", err)
			return
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.log.Error("message parse error", "error", err)
			continue
		}

		// Each message is handled on its own goroutine so a long-running
		// launch never blocks other inbound methods; concurrent launches
		// each get their own session. Responses interleave by ID.
		switch {
		case msg.IsRequest():
			go c.dispatch(conn, &msg)
		case msg.IsNotification():
			// Inbound notifications share the method table but get no
			// response.
			go c.handleNotification(&msg)
		default:
			c.log.Warn("unexpected message", "method", msg.Method)
		}
	}
}

func (c *Channel) handleNotification(msg *Message) {
	handler, ok := c.methods[msg.Method]
	if !ok {
		c.log.Warn("unknown notification", "method", msg.Method)
		return
	}
	if _, err := handler(c.ctx, msg.Params); err != nil {
		c.log.Warn("notification handler failed", "method", msg.Method, "error", err)
	}
}

func (c *Channel) dispatch(conn net.Conn, msg *Message) {
	handler, ok := c.methods[msg.Method]
	if !ok {
		c.log.Warn("unknown method", "method", msg.Method)
		c.respond(conn, &Message{
			JSONRPC: Version,
			ID:      msg.ID,
			Error:   &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", msg.Method)},
		})
		return
	}

	result, err := handler(c.ctx, msg.Params)
	if err != nil {
		c.log.Error("method failed", "method", msg.Method, "error", err)
		c.respond(conn, &Message{
			JSONRPC: Version,
			ID:      msg.ID,
			Error:   &Error{Code: CodeInternalError, Message: err.Error()},
		})
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		c.respond(conn, &Message{
			JSONRPC: Version,
			ID:      msg.ID,
			Error:   &Error{Code: CodeInternalError, Message: fmt.Sprintf("failed to marshal result: %v", err)},
		})
		return
	}
	c.respond(conn, &Message{JSONRPC: Version, ID: msg.ID, Result: resultJSON})
}

func (c *Channel) respond(conn net.Conn, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal response", "error", err)
		return
	}

	// Concurrent handlers share the peer connection; writes must not
	// interleave mid-frame.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		c.log.Error("write error", "error", err)
	}
}

// Notify pushes a fire-and-forget notification to the connected peer.
// With no peer connected the notification is dropped and logged; there is
// no adapter to command.
func (c *Channel) Notify(method string, params any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	msg := Message{JSONRPC: Version, Method: method, Params: paramsJSON}
	data, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", method, err)
	}

	c.peerMu.Lock()
	peer := c.peer
	c.peerMu.Unlock()
	if peer == nil {
		c.log.Debug("no peer connected, dropping notification", "method", method)
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	peer.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := peer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", method, err)
	}
	return nil
}

// Dispose closes the endpoint and releases owned monitoring resources.
// In-flight handlers are canceled through the channel's lifetime context.
// Idempotent; safe on a channel that never bound.
func (c *Channel) Dispose() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	listener := c.listener
	c.closedMu.Unlock()

	c.log.Info("disposing channel")
	c.cancel()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	c.peerMu.Lock()
	if c.peer != nil {
		c.peer.Close()
	}
	c.peerMu.Unlock()

	c.wg.Wait()

	if started {
		if rmErr := os.Remove(c.socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
			c.log.Warn("failed to remove socket file", "socketPath", c.socketPath, "error", rmErr)
		}
	}

	if monErr := c.monitors.Stop(); monErr != nil && err == nil {
		err = monErr
	}
	return err
}
