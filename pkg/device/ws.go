// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package device

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEndpoint serves the byte pipe over a WebSocket so a host can drive the
// strip across the network. Binary messages carry the same framed stream a
// serial host would send; oversize messages are split into ChunkSize
// pieces so the controller sees the same chunk cadence as USB. One host
// owns the pipe at a time.
type WSEndpoint struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn

	staged  chan []byte
	rearm   chan struct{}
	done    chan struct{}
	pending []byte

	closed   atomic.Bool
	sendBusy atomic.Bool
}

// NewWSEndpoint creates an endpoint waiting for a host connection. Serve
// it from an http.Server; it implements http.Handler.
func NewWSEndpoint() *WSEndpoint {
	e := &WSEndpoint{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		staged: make(chan []byte, 1),
		rearm:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.rearm <- struct{}{}
	return e
}

// ServeHTTP upgrades an incoming host connection and starts reading from
// it. A second host is turned away until the first disconnects.
func (e *WSEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	busy := e.conn != nil
	e.mu.Unlock()
	if busy || e.closed.Load() {
		http.Error(w, "device is owned by another host", http.StatusConflict)
		return
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	e.mu.Lock()
	if e.conn != nil {
		e.mu.Unlock()
		conn.Close()
		return
	}
	e.conn = conn
	e.mu.Unlock()

	log.Info().Str("host", r.RemoteAddr).Msg("host connected")
	go e.readLoop(conn)
}

// readLoop stages one chunk per rearm credit until the host disconnects.
func (e *WSEndpoint) readLoop(conn *websocket.Conn) {
	defer func() {
		e.mu.Lock()
		if e.conn == conn {
			e.conn = nil
		}
		e.mu.Unlock()
		conn.Close()
		log.Info().Msg("host disconnected")
	}()

	var split [][]byte
	for {
		select {
		case <-e.done:
			return
		case <-e.rearm:
		}

		chunk, err := e.nextChunk(conn, &split)
		if err != nil {
			// Hand the unspent credit back for the next host.
			select {
			case e.rearm <- struct{}{}:
			default:
			}
			return
		}

		select {
		case e.staged <- chunk:
		case <-e.done:
			return
		}
	}
}

// nextChunk pops a staged piece of a previous message or reads the next
// binary message, splitting it to the chunk capacity.
func (e *WSEndpoint) nextChunk(conn *websocket.Conn, split *[][]byte) ([]byte, error) {
	for len(*split) == 0 {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		for len(data) > ChunkSize {
			*split = append(*split, data[:ChunkSize])
			data = data[ChunkSize:]
		}
		if len(data) > 0 {
			*split = append(*split, data)
		}
	}

	chunk := (*split)[0]
	*split = (*split)[1:]
	return chunk, nil
}

// Poll is a no-op: connection state advances in the reader goroutine.
func (e *WSEndpoint) Poll() {}

// IsReady reports whether a host is connected.
func (e *WSEndpoint) IsReady() bool {
	if e.closed.Load() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// OutboundBusy reports whether a previous send is still in flight.
func (e *WSEndpoint) OutboundBusy() bool {
	return e.sendBusy.Load()
}

// SendOutbound ships acknowledgement bytes to the host as one binary
// message.
func (e *WSEndpoint) SendOutbound(p []byte) {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil || len(p) == 0 || !e.sendBusy.CompareAndSwap(false, true) {
		return
	}

	buf := append([]byte(nil), p...)
	go func() {
		defer e.sendBusy.Store(false)
		if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
			log.Warn().Err(err).Msg("ack send failed")
		}
	}()
}

// InboundAvailable reports whether a chunk is staged, claiming it from the
// reader if one just arrived.
func (e *WSEndpoint) InboundAvailable() bool {
	if e.pending != nil {
		return true
	}
	select {
	case chunk := <-e.staged:
		e.pending = chunk
		return true
	default:
		return false
	}
}

// ReadInboundChunk hands over the staged chunk.
func (e *WSEndpoint) ReadInboundChunk() []byte {
	chunk := e.pending
	e.pending = nil
	return chunk
}

// RearmInbound returns the read credit to the reader goroutine.
func (e *WSEndpoint) RearmInbound() {
	select {
	case e.rearm <- struct{}{}:
	default:
	}
}

// Close drops the active host and stops accepting new ones.
func (e *WSEndpoint) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		close(e.done)
	}
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
