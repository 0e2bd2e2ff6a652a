package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/clipshare/apiserver/internal/guard"
	"github.com/clipshare/apiserver/internal/services"
	"github.com/clipshare/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// VideoHandler provides HTTP handlers for video metadata.
type VideoHandler struct {
	videos *services.VideoService
}

func NewVideoHandler(videos *services.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// VideoRouter registers video routes. Reads are public; writes need an
// authenticated subject.
func VideoRouter(r chi.Router, videos *services.VideoService) {
	handler := NewVideoHandler(videos)

	r.Get("/", handler.ListVideos)
	r.With(guard.RequireSubject).Post("/", handler.CreateVideo)
	r.Route("/{videoID}", func(r chi.Router) {
		r.Get("/", handler.GetVideo)
		r.With(guard.RequireSubject).Put("/", handler.UpdateVideo)
		r.With(guard.RequireSubject).Delete("/", handler.DeleteVideo)
	})
}

// VideoListResponse is the paginated list response payload.
type VideoListResponse struct {
	Items []types.Video `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}

func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.videos.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err, "failed to list videos")
		return
	}
	if items == nil {
		items = []types.Video{}
	}

	writeJSON(w, http.StatusOK, VideoListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.videos.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch video")
		return
	}

	writeJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	userID, _ := guard.SubjectFromContext(r.Context())

	var req services.VideoInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.videos.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err, "failed to create video")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *VideoHandler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	userID, _ := guard.SubjectFromContext(r.Context())
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.VideoInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.videos.Update(r.Context(), userID, id, req)
	if err != nil {
		writeServiceError(w, r, err, "failed to update video")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	userID, _ := guard.SubjectFromContext(r.Context())
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.videos.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, "failed to delete video")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseVideoID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "videoID"))
	if id == "" {
		return "", errors.New("invalid video id")
	}
	return id, nil
}
