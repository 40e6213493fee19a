package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/feastro/apiserver/types"
)

// VideoRepository handles persistence for video metadata.
type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Get(ctx context.Context, id int) (types.Video, error) {
	const query = `
		SELECT id, uploader_id, object_key, video_url, thumbnail_url, duration, resolution,
			file_size, format, is_processed, processing_status, uploaded_at, processed_at
		FROM videos
		WHERE id = $1`

	var video types.Video
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.UploaderID,
		&video.ObjectKey,
		&video.VideoURL,
		&video.ThumbnailURL,
		&video.Duration,
		&video.Resolution,
		&video.FileSize,
		&video.Format,
		&video.IsProcessed,
		&video.ProcessingStatus,
		&video.UploadedAt,
		&video.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Video{}, ErrNotFound
		}
		return types.Video{}, err
	}
	return video, nil
}

func (r *VideoRepository) Create(ctx context.Context, video types.Video) (types.Video, error) {
	video.UploadedAt = time.Now()
	if video.ProcessingStatus == "" {
		video.ProcessingStatus = types.VideoStatusPending
	}

	const query = `
		INSERT INTO videos (
			uploader_id, object_key, video_url, thumbnail_url, duration, resolution,
			file_size, format, is_processed, processing_status, uploaded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		video.UploaderID,
		video.ObjectKey,
		video.VideoURL,
		video.ThumbnailURL,
		video.Duration,
		video.Resolution,
		video.FileSize,
		video.Format,
		video.IsProcessed,
		video.ProcessingStatus,
		video.UploadedAt,
	).Scan(&video.ID); err != nil {
		return types.Video{}, translateError(err)
	}
	return video, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM videos WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
