package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/clipshare/apiserver/config"
	"github.com/google/uuid"
)

const imageKitGrantTTL = 30 * time.Minute

// ImageKitSigner produces the client-side upload authentication parameters
// ImageKit expects: signature = hex(HMAC-SHA1(privateKey, token+expire)).
type ImageKitSigner struct {
	publicKey   string
	privateKey  []byte
	urlEndpoint string
	ttl         time.Duration

	now      func() time.Time
	newToken func() string
}

func NewImageKitSigner(cfg config.ImageKitConfig, ttl time.Duration) (*ImageKitSigner, error) {
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("imagekit private key is required")
	}
	if ttl <= 0 {
		ttl = imageKitGrantTTL
	}
	return &ImageKitSigner{
		publicKey:   cfg.PublicKey,
		privateKey:  []byte(cfg.PrivateKey),
		urlEndpoint: cfg.URLEndpoint,
		ttl:         ttl,
		now:         time.Now,
		newToken:    uuid.NewString,
	}, nil
}

func (s *ImageKitSigner) Sign(_ context.Context, req UploadRequest) (Grant, error) {
	if err := req.Validate(); err != nil {
		return Grant{}, err
	}

	token := s.newToken()
	expire := s.now().Add(s.ttl).Unix()
	return Grant{
		Token:       token,
		Expire:      expire,
		Signature:   s.signature(token, expire),
		Folder:      req.Folder(),
		PublicKey:   s.publicKey,
		URLEndpoint: s.urlEndpoint,
	}, nil
}

func (s *ImageKitSigner) signature(token string, expire int64) string {
	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
