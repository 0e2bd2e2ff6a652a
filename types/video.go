package types

import "time"

// Default playback dimensions for uploaded videos (portrait, short-form).
const (
	DefaultVideoHeight  = 1920
	DefaultVideoWidth   = 1080
	DefaultVideoQuality = 100
)

// Transformation describes how the media host should render the video.
type Transformation struct {
	Height  int `json:"height" bson:"height"`
	Width   int `json:"width" bson:"width"`
	Quality int `json:"quality,omitempty" bson:"quality,omitempty"`
}

// Video is the metadata record of an uploaded video.
// The media itself lives on the external media host; VideoURL and
// ThumbnailURL point at it.
type Video struct {
	ID             string         `json:"id" db:"id" bson:"_id"`
	Title          string         `json:"title" db:"title" bson:"title"`
	Description    string         `json:"description" db:"description" bson:"description"`
	VideoURL       string         `json:"video_url" db:"video_url" bson:"video_url"`
	ThumbnailURL   string         `json:"thumbnail_url" db:"thumbnail_url" bson:"thumbnail_url"`
	Controls       bool           `json:"controls" db:"controls" bson:"controls"`
	Transformation Transformation `json:"transformation" bson:"transformation"`

	// UserID is the owner of the record.
	UserID string `json:"user_id" db:"user_id" bson:"user_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}
