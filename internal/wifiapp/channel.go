package wifiapp

import (
	"context"
	"errors"
)

// DefaultChannelCapacity is the queue depth used when none is given.
const DefaultChannelCapacity = 3

// ErrChannelFull is returned by Send when the queue has no free slot.
// The message was not enqueued.
var ErrChannelFull = errors.New("event channel full")

// Sender is the producer side of a Channel.
type Sender interface {
	Send(msg Message) error
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithSendHook installs fn to be called after every Send with the message
// and the result. fn runs on the producer's goroutine and must not block.
func WithSendHook(fn func(msg Message, err error)) ChannelOption {
	return func(c *Channel) {
		c.onSend = fn
	}
}

// Channel is a bounded FIFO queue with many producers and a single consumer.
type Channel struct {
	queue  chan Message
	onSend func(Message, error)
}

// NewChannel creates a channel holding at most capacity messages.
// A capacity below 1 uses DefaultChannelCapacity.
func NewChannel(capacity int, opts ...ChannelOption) *Channel {
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}
	c := &Channel{queue: make(chan Message, capacity)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send enqueues msg without blocking. It returns ErrChannelFull when the
// queue is at capacity. Safe for concurrent use.
func (c *Channel) Send(msg Message) error {
	var err error
	select {
	case c.queue <- msg:
	default:
		err = ErrChannelFull
	}
	if c.onSend != nil {
		c.onSend(msg, err)
	}
	return err
}

// Receive blocks until a message is available or ctx is done. Messages are
// returned in the order their Send calls completed.
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.queue:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Channel) tryReceive() (Message, bool) {
	select {
	case msg := <-c.queue:
		return msg, true
	default:
		return nil, false
	}
}

// Len returns the number of queued messages.
func (c *Channel) Len() int {
	return len(c.queue)
}

// Cap returns the channel capacity.
func (c *Channel) Cap() int {
	return cap(c.queue)
}
