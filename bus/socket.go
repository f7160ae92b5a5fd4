// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bmc-tools/entity-manager/codec"
	"github.com/bmc-tools/entity-manager/schema"
)

// readTimeout bounds how long the server waits for a client to send
// its request after connecting.
const readTimeout = 30 * time.Second

// writeTimeout bounds how long the server waits for a response write
// to complete.
const writeTimeout = 10 * time.Second

// maxRequestSize caps a single CBOR request. Generous for the largest
// plausible AddObject body.
const maxRequestSize = 1 << 20

// Response is the wire envelope for every action reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// publishedObject is the server-side record behind one published
// path: its current interfaces and the slot backing any Handle issued
// for it.
type publishedObject struct {
	slot       *slot
	interfaces map[string]schema.InterfaceProperties
}

// SocketServer serves the bus protocol over a Unix-domain socket,
// speaking Core Deterministic CBOR request/response frames: one
// action-dispatched request per connection, plus the published-object
// table GetManagedObjects reflects.
type SocketServer struct {
	socketPath string
	logger     *slog.Logger

	mu       sync.Mutex
	objects  map[string]*publishedObject
	handlers map[string]ActionFunc

	activeConnections sync.WaitGroup
}

// NewSocketServer returns a Server that will listen on socketPath.
// Register actions with HandleAction before calling Serve.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketServer{
		socketPath: socketPath,
		logger:     logger,
		objects:    make(map[string]*publishedObject),
		handlers:   make(map[string]ActionFunc),
	}
}

// Publish implements Server.
func (s *SocketServer) Publish(path string, interfaces map[string]schema.InterfaceProperties) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Republishing the same path refreshes its interfaces in place and
	// keeps the existing slot alive — a retained entity's Handle must
	// stay valid across scans. Only Unpublish invalidates a slot; a
	// later Publish at that path then allocates a fresh one.
	obj, exists := s.objects[path]
	if !exists {
		obj = &publishedObject{slot: newSlot()}
		s.objects[path] = obj
	}
	obj.interfaces = interfaces
	return obj.slot.handle()
}

// Unpublish implements Server.
func (s *SocketServer) Unpublish(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj, exists := s.objects[path]; exists {
		obj.slot.invalidate()
		delete(s.objects, path)
	}
}

// SetProperty implements Server.
func (s *SocketServer) SetProperty(path, iface, property string, value schema.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.objects[path]
	if !exists {
		return fmt.Errorf("bus: no object published at %s", path)
	}
	props, exists := obj.interfaces[iface]
	if !exists {
		return fmt.Errorf("bus: object %s has no interface %s", path, iface)
	}
	props[property] = value
	return nil
}

// HandleAction implements Server.
func (s *SocketServer) HandleAction(action string, handler ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("bus: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Serve implements Server. Any existing socket file at socketPath is
// removed before listening, and removed again on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("bus: listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("bus: accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if header.Action == "GetManagedObjects" {
		s.writeSuccess(conn, s.ManagedObjects())
		return
	}

	s.mu.Lock()
	handler, exists := s.handlers[header.Action]
	s.mu.Unlock()
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("bus: action failed", "action", header.Action, "error", err)
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, result)
}

// ManagedObjects reflects the current published table, the
// object-mapper-style bulk read every client uses to bootstrap its own
// view of the bus. Served on the wire as the GetManagedObjects action.
func (s *SocketServer) ManagedObjects() map[string]map[string]schema.InterfaceProperties {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]schema.InterfaceProperties, len(s.objects))
	for path, obj := range s.objects {
		out[path] = obj.interfaces
	}
	return out
}

func (s *SocketServer) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{OK: false, Error: message}); err != nil {
		s.logger.Debug("bus: failed to write error response", "error", err)
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("bus: failed to write success response", "error", err)
	}
}
