package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
	"github.com/google/uuid"
)

// MaxVideoSize is the largest accepted upload, in bytes.
const MaxVideoSize = 100 << 20

var videoFormats = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// VideoRepository defines persistence operations for video metadata.
type VideoRepository interface {
	Get(ctx context.Context, id int) (types.Video, error)
	Create(ctx context.Context, video types.Video) (types.Video, error)
}

// ObjectStore is the object storage used for video binaries.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// VideoUpload describes an incoming video file.
type VideoUpload struct {
	Filename   string
	Size       int64
	Body       io.Reader
	Duration   float64
	Resolution *string
}

// VideoService encapsulates video use-cases.
type VideoService struct {
	videos  VideoRepository
	objects ObjectStore
	logger  *slog.Logger
}

// NewVideoService constructs a VideoService. objects may be nil, in which
// case uploads fail with ErrStorageUnavailable.
func NewVideoService(videos VideoRepository, objects ObjectStore, logger *slog.Logger) *VideoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoService{videos: videos, objects: objects, logger: logger}
}

func (s *VideoService) Get(ctx context.Context, id int) (types.Video, error) {
	video, err := s.videos.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Video{}, ErrVideoNotFound
	}
	return video, err
}

// Upload stores the file under videos/{uploader}/{uuid}{ext} and records its
// metadata as pending processing.
func (s *VideoService) Upload(ctx context.Context, uploaderID int, upload VideoUpload) (types.Video, error) {
	if s.objects == nil {
		return types.Video{}, ErrStorageUnavailable
	}

	ext := strings.ToLower(path.Ext(upload.Filename))
	contentType, ok := videoFormats[ext]
	if !ok {
		return types.Video{}, invalid("unsupported video format")
	}
	if upload.Size <= 0 {
		return types.Video{}, invalid("video file is empty")
	}
	if upload.Size > MaxVideoSize {
		return types.Video{}, invalid(fmt.Sprintf("video exceeds %d MB", MaxVideoSize>>20))
	}
	if upload.Duration < 0 {
		return types.Video{}, invalid("duration must not be negative")
	}

	key := fmt.Sprintf("videos/%d/%s%s", uploaderID, uuid.NewString(), ext)
	if err := s.objects.Put(ctx, key, upload.Body, upload.Size, contentType); err != nil {
		return types.Video{}, fmt.Errorf("store video object: %w", err)
	}

	video, err := s.videos.Create(ctx, types.Video{
		UploaderID:       uploaderID,
		ObjectKey:        key,
		VideoURL:         s.objects.PublicURL(key),
		Duration:         upload.Duration,
		Resolution:       upload.Resolution,
		FileSize:         upload.Size,
		Format:           strings.TrimPrefix(ext, "."),
		ProcessingStatus: types.VideoStatusPending,
	})
	if err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.logger.WarnContext(ctx, "remove orphaned video object", "key", key, "error", derr)
		}
		return types.Video{}, err
	}
	s.logger.InfoContext(ctx, "video uploaded", "video_id", video.ID, "uploader_id", uploaderID, "size", upload.Size)
	return video, nil
}
