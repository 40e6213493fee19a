package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory  = 32 << 20
	formFieldVideo      = "video"
	formFieldDuration   = "duration"
	formFieldResolution = "resolution"
)

// VideoService is the video service used by VideoHandler.
type VideoService interface {
	Get(ctx context.Context, id int) (types.Video, error)
	Upload(ctx context.Context, uploaderID int, upload services.VideoUpload) (types.Video, error)
}

type VideoHandler struct {
	service VideoService
	logger  *slog.Logger
}

func NewVideoHandler(service VideoService, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{service: service, logger: logger}
}

// VideoRouter registers video routes on the given router.
func VideoRouter(r chi.Router, handler *VideoHandler, authn *Authenticator) {
	r.With(authn.RequireAuth).Post("/", handler.UploadVideo)
	r.Get("/{videoID}", handler.GetVideo)
}

// UploadVideo accepts a multipart form with a "video" file and optional
// duration (seconds) and resolution fields.
func (h *VideoHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	// Leave room for the other form fields on top of the file.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxVideoSize+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	upload, file, err := parseVideoForm(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	video, err := h.service.Upload(r.Context(), viewerID(r.Context()), upload)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to upload video")
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "videoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load video")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func parseVideoForm(form *multipart.Form) (services.VideoUpload, multipart.File, error) {
	if form == nil {
		return services.VideoUpload{}, nil, errors.New("missing form data")
	}

	files := form.File[formFieldVideo]
	if len(files) == 0 {
		return services.VideoUpload{}, nil, errors.New("video file is required")
	}
	if len(files) > 1 {
		return services.VideoUpload{}, nil, errors.New("only one video file is allowed")
	}

	var upload services.VideoUpload
	if raw := formValue(form, formFieldDuration); raw != "" {
		duration, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.VideoUpload{}, nil, fmt.Errorf("invalid %s", formFieldDuration)
		}
		upload.Duration = duration
	}
	if raw := formValue(form, formFieldResolution); raw != "" {
		upload.Resolution = &raw
	}

	header := files[0]
	file, err := header.Open()
	if err != nil {
		return services.VideoUpload{}, nil, errors.New("failed to read video file")
	}
	upload.Filename = header.Filename
	upload.Size = header.Size
	upload.Body = file
	return upload, file, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
