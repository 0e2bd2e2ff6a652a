package services

import (
	"context"
	"errors"

	"github.com/clipshare/apiserver/internal/media"
)

// MediaService issues upload grants for the media host.
type MediaService struct {
	signer media.Signer
}

func NewMediaService(signer media.Signer) *MediaService {
	return &MediaService{signer: signer}
}

// Grant validates req and signs an upload grant for it. An empty file type
// means video, the upload form's primary use.
func (s *MediaService) Grant(ctx context.Context, req media.UploadRequest) (media.Grant, error) {
	if req.FileType == "" {
		req.FileType = media.FileTypeVideo
	}
	grant, err := s.signer.Sign(ctx, req)
	if err != nil {
		if errors.Is(err, media.ErrInvalidUpload) {
			return media.Grant{}, newError(KindValidation, err.Error(), err)
		}
		return media.Grant{}, newError(KindUnavailable, "media auth failed", err)
	}
	return grant, nil
}
