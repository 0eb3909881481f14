// Package chat carries tutor sessions over WebSocket connections.
package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Gateway tracks open connections so they can be counted and closed together.
type Gateway struct {
	conns map[*websocket.Conn]string
	mu    sync.RWMutex
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		conns: make(map[*websocket.Conn]string),
	}
}

// add registers c under a session key and returns its release func.
func (g *Gateway) add(key string, c *websocket.Conn) func() {
	g.mu.Lock()
	g.conns[c] = key
	g.mu.Unlock()
	slog.Info("terminal connected", "session", key)

	return func() {
		g.mu.Lock()
		delete(g.conns, c)
		g.mu.Unlock()
		slog.Info("terminal disconnected", "session", key)
	}
}

// Count returns the number of open connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// Connected reports how many connections watch the session key.
func (g *Gateway) Connected(key string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, k := range g.conns {
		if k == key {
			n++
		}
	}
	return n
}

// CloseAll tells every client the server is going away.
func (g *Gateway) CloseAll() {
	g.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
