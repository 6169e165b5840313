// Package coretest provides fakes and shared checks for core interfaces.
package coretest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Rooms/internal/core"
)

var (
	ErrFull   = errors.New("fake: buffer full")
	ErrClosed = errors.New("fake: closed")
)

// Message is a decoded frame captured by Conn.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Conn is an in-memory core.SignalConnection that records what it is sent.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func NewConn() *Conn { return &Conn{} }

var _ core.SignalConnection = (*Conn)(nil)

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.full {
		return ErrFull
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// SetFull makes TrySend report backpressure.
func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

// Messages decodes every captured frame; undecodable frames are skipped.
func (c *Conn) Messages() []Message {
	var out []Message
	for _, f := range c.Frames() {
		var m Message
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Events lists the event names in delivery order.
func (c *Conn) Events() []string {
	var out []string
	for _, m := range c.Messages() {
		out = append(out, m.Event)
	}
	return out
}

// Last decodes the data of the most recent message named event into v.
func (c *Conn) Last(event string, v any) bool {
	msgs := c.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return json.Unmarshal(msgs[i].Data, v) == nil
		}
	}
	return false
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
