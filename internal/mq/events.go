package mq

import (
	"context"
	"encoding/json"
	"time"
)

// Channels carrying domain events.
const (
	ChannelUserRegistered = "user.registered"
	ChannelVideoCreated   = "video.created"
	ChannelVideoDeleted   = "video.deleted"
)

// Channels lists every event channel the application publishes to.
var Channels = []string{ChannelUserRegistered, ChannelVideoCreated, ChannelVideoDeleted}

// AttrEventType is the message attribute naming the event channel.
const AttrEventType = "event_type"

// UserRegistered is published once per created account. It never carries
// credentials.
type UserRegistered struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// VideoEvent is published when a video record is created or deleted.
type VideoEvent struct {
	VideoID    string    `json:"video_id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishJSON encodes v and publishes it to channel, tagging the message
// with its event type.
func (m *MQ) PublishJSON(ctx context.Context, channel string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return m.Publish(ctx, channel, data, map[string]string{AttrEventType: channel})
}
