package db

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("connection pool closed")

// OpenFunc establishes a backend connection handle.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// Pool owns a process-wide connection handle that is opened on first use.
//
// Concurrent first callers share a single open attempt. A failed attempt is
// not cached, so the next caller tries again.
type Pool[T any] struct {
	open  OpenFunc[T]
	close func(T) error

	group singleflight.Group

	mu     sync.RWMutex
	conn   T
	ready  bool
	closed bool
}

// NewPool constructs a Pool. closeFn may be nil.
func NewPool[T any](open OpenFunc[T], closeFn func(T) error) *Pool[T] {
	return &Pool[T]{open: open, close: closeFn}
}

// Ready wraps an already opened handle.
func Ready[T any](conn T) *Pool[T] {
	return &Pool[T]{conn: conn, ready: true}
}

// Get returns the shared handle, opening it if needed.
func (p *Pool[T]) Get(ctx context.Context) (T, error) {
	if conn, ok, err := p.current(); ok || err != nil {
		return conn, err
	}

	v, err, _ := p.group.Do("open", func() (any, error) {
		if conn, ok, err := p.current(); ok || err != nil {
			return conn, err
		}

		// The open is shared between callers, so one caller's cancellation
		// must not abort it for the others.
		conn, err := p.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			if p.close != nil {
				_ = p.close(conn)
			}
			return nil, ErrPoolClosed
		}
		p.conn = conn
		p.ready = true
		return conn, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Close releases the handle if it was opened.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if !p.ready {
		return nil
	}
	p.ready = false
	if p.close == nil {
		return nil
	}
	return p.close(p.conn)
}

func (p *Pool[T]) current() (T, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		var zero T
		return zero, false, ErrPoolClosed
	}
	return p.conn, p.ready, nil
}
