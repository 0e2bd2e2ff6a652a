package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clipshare/apiserver/internal/media"
	"github.com/clipshare/apiserver/internal/services"
)

// MediaAuth returns upload authentication parameters for the media host.
// Optional query parameters fileType, contentType and size are validated
// against the upload limits before anything is signed.
func MediaAuth(svc *services.MediaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		req := media.UploadRequest{
			FileType:    media.FileType(strings.ToLower(strings.TrimSpace(query.Get("fileType")))),
			ContentType: strings.TrimSpace(query.Get("contentType")),
		}
		if raw := strings.TrimSpace(query.Get("size")); raw != "" {
			size, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid size")
				return
			}
			req.Size = size
		}

		grant, err := svc.Grant(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err, "media auth failed")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, grant)
	}
}
