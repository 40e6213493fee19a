package types

import "time"

// Video processing states.
const (
	VideoStatusPending    = "pending"
	VideoStatusProcessing = "processing"
	VideoStatusReady      = "ready"
	VideoStatusFailed     = "failed"
)

// Video holds the metadata of an uploaded short video.
// The binary itself lives in object storage and is referenced by ObjectKey.
type Video struct {
	// ID is the unique identifier of the video.
	ID int `json:"id" db:"id"`

	// UploaderID identifies the user who uploaded the video.
	UploaderID int `json:"uploader_id" db:"uploader_id"`

	// ObjectKey is the path of the video in object storage.
	ObjectKey string `json:"-" db:"object_key"`

	// VideoURL is the public (CDN or bucket) URL of the video.
	VideoURL string `json:"video_url" db:"video_url"`

	// ThumbnailURL is an optional preview image URL.
	ThumbnailURL *string `json:"thumbnail_url" db:"thumbnail_url"`

	// Duration is the video length in seconds.
	Duration float64 `json:"duration" db:"duration"`

	// Resolution is the frame size, e.g. "1080x1920".
	Resolution *string `json:"resolution" db:"resolution"`

	// FileSize is the size of the stored object in bytes.
	FileSize int64 `json:"file_size" db:"file_size"`

	// Format is the container format, e.g. "mp4".
	Format string `json:"format" db:"format"`

	IsProcessed      bool       `json:"is_processed" db:"is_processed"`
	ProcessingStatus string     `json:"processing_status" db:"processing_status"`
	UploadedAt       time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at" db:"processed_at"`
}
