// Package media issues the short-lived grants browsers use to upload files
// straight to the media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FileType is the kind of file being uploaded.
type FileType string

const (
	FileTypeVideo FileType = "video"
	FileTypeImage FileType = "image"
)

const (
	MaxVideoSize int64 = 100 << 20
	MaxImageSize int64 = 4 << 20
)

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ErrInvalidUpload wraps every upload validation failure.
var ErrInvalidUpload = errors.New("invalid upload")

// UploadRequest describes the file a client intends to upload. ContentType
// and Size are optional; when present they are checked against the limits
// for FileType.
type UploadRequest struct {
	FileType    FileType
	ContentType string
	Size        int64
}

// Validate applies the per-type content and size limits.
func (r UploadRequest) Validate() error {
	contentType := strings.ToLower(strings.TrimSpace(r.ContentType))
	if r.Size < 0 {
		return fmt.Errorf("%w: size must not be negative", ErrInvalidUpload)
	}

	switch r.FileType {
	case FileTypeVideo:
		if contentType != "" && !strings.HasPrefix(contentType, "video/") {
			return fmt.Errorf("%w: please upload a video file", ErrInvalidUpload)
		}
		if r.Size > MaxVideoSize {
			return fmt.Errorf("%w: video must be less than 100MB", ErrInvalidUpload)
		}
	case FileTypeImage:
		if contentType != "" && !imageContentTypes[contentType] {
			return fmt.Errorf("%w: image must be JPEG, PNG or WebP", ErrInvalidUpload)
		}
		if r.Size > MaxImageSize {
			return fmt.Errorf("%w: image must be less than 4MB", ErrInvalidUpload)
		}
	default:
		return fmt.Errorf("%w: unknown file type %q", ErrInvalidUpload, r.FileType)
	}
	return nil
}

// Folder is the media host folder uploads of this type land in.
func (r UploadRequest) Folder() string {
	if r.FileType == FileTypeVideo {
		return "/videos"
	}
	return "/images"
}

// Grant authorizes one upload. ImageKit grants carry Token, Expire and
// Signature; presigned grants carry UploadURL and Key.
type Grant struct {
	Token       string `json:"token"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature"`
	Folder      string `json:"folder,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	URLEndpoint string `json:"url_endpoint,omitempty"`
	UploadURL   string `json:"upload_url,omitempty"`
	Key         string `json:"key,omitempty"`
}

// Signer issues grants for validated upload requests.
type Signer interface {
	Sign(ctx context.Context, req UploadRequest) (Grant, error)
}
