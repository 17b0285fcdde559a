package bridge

import (
	"context"
	"errors"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrClosed = errors.New("bridge channel closed")

// Channel carries envelopes between the service and one extension.
type Channel interface {
	Send(ctx context.Context, env Envelope) error
	Receive(ctx context.Context) (Envelope, error)
	Close() error
}

// pipeEnd is one side of an in-memory channel pair.
type pipeEnd struct {
	in   <-chan Envelope
	out  chan<- Envelope
	done chan struct{}
	once *sync.Once
}

// NewPipe returns two connected in-memory channels. Closing either closes both.
func NewPipe() (Channel, Channel) {
	ab := make(chan Envelope, 8)
	ba := make(chan Envelope, 8)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

func (p *pipeEnd) Send(ctx context.Context, env Envelope) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- env:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.done:
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// WSChannel carries envelopes as JSON text frames over a websocket.
type WSChannel struct {
	conn *websocket.Conn
}

func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{conn: conn}
}

func (c *WSChannel) Send(ctx context.Context, env Envelope) error {
	return wsjson.Write(ctx, c.conn, env)
}

func (c *WSChannel) Receive(ctx context.Context) (Envelope, error) {
	var env Envelope
	err := wsjson.Read(ctx, c.conn, &env)
	return env, err
}

func (c *WSChannel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
