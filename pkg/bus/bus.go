// Package bus decouples platform event delivery from relay processing: the
// platform adapter publishes inbound posts, a single relay worker consumes
// them. The buffer absorbs bursts without blocking the platform's event
// goroutine.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed PostBus.
var ErrBusClosed = errors.New("post bus closed")

type PostBus struct {
	inbound chan InboundPost
	done    chan struct{}
	closed  atomic.Bool
}

func NewPostBus() *PostBus {
	return &PostBus{
		inbound: make(chan InboundPost, 100),
		done:    make(chan struct{}),
	}
}

func (pb *PostBus) Publish(ctx context.Context, post InboundPost) error {
	if pb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case pb.inbound <- post:
		return nil
	case <-pb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (pb *PostBus) Consume(ctx context.Context) (InboundPost, bool) {
	select {
	case post, ok := <-pb.inbound:
		return post, ok
	case <-pb.done:
		// Posts accepted before the close are still delivered; the bus
		// only reports closed once its buffer is empty.
		select {
		case post := <-pb.inbound:
			return post, true
		default:
			return InboundPost{}, false
		}
	case <-ctx.Done():
		return InboundPost{}, false
	}
}

func (pb *PostBus) Close() {
	if pb.closed.CompareAndSwap(false, true) {
		close(pb.done)
	}
}
