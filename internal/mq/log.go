package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogBackend is used when no broker is configured. Published messages are
// logged and fanned out to in-process subscribers of the same channel.
type LogBackend struct {
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	subs   map[string][]chan Message
	closed bool
}

func NewLogBackend(logger *zap.SugaredLogger) *LogBackend {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogBackend{logger: logger, subs: make(map[string][]chan Message)}
}

func (l *LogBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return "", errors.New("mq backend closed")
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	l.logger.Infow("event published", "channel", channel, "message_id", msg.ID, "bytes", len(data))
	for _, sub := range l.subs[channel] {
		select {
		case sub <- msg:
		default:
			l.logger.Warnw("subscriber buffer full, event dropped", "channel", channel, "message_id", msg.ID)
		}
	}
	return msg.ID, nil
}

func (l *LogBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, 16)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("mq backend closed")
	}
	l.subs[channel] = append(l.subs[channel], ch)
	l.mu.Unlock()

	defer l.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := handler(ctx, msg); err != nil {
				l.logger.Warnw("event handler failed", "channel", channel, "message_id", msg.ID, "error", err)
			}
		}
	}
}

func (l *LogBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = make(map[string][]chan Message)
	return nil
}

func (l *LogBackend) unsubscribe(channel string, ch chan Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := l.subs[channel]
	for i, sub := range subs {
		if sub == ch {
			l.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
