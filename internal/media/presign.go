package media

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

const defaultPresignTTL = 15 * time.Minute

// Presigner is the slice of object storage the presign signer needs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// PresignSigner grants uploads as presigned PUT URLs on an object store
// (MinIO, S3 or GCS).
type PresignSigner struct {
	store Presigner
	ttl   time.Duration
	now   func() time.Time
}

func NewPresignSigner(store Presigner, ttl time.Duration) *PresignSigner {
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &PresignSigner{store: store, ttl: ttl, now: time.Now}
}

func (s *PresignSigner) Sign(ctx context.Context, req UploadRequest) (Grant, error) {
	if err := req.Validate(); err != nil {
		return Grant{}, err
	}

	now := s.now()
	token := uuid.NewString()
	key := objectKey(req.Folder(), now, token)
	uploadURL, err := s.store.PresignPut(ctx, key, req.ContentType, s.ttl)
	if err != nil {
		return Grant{}, err
	}
	return Grant{
		Token:     token,
		Expire:    now.Add(s.ttl).Unix(),
		Folder:    req.Folder(),
		UploadURL: uploadURL,
		Key:       key,
	}, nil
}

func objectKey(folder string, at time.Time, id string) string {
	at = at.UTC()
	return path.Join(folder[1:], fmt.Sprintf("%d/%d/%d", at.Year(), at.Month(), at.Day()), id)
}
