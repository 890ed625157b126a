package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoders for image.Decode
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/storage"
)

// HandleImageProcessTask normalizes an uploaded cover: it checks size, scales
// it down to the configured bounds, stores a JPEG copy and records its key on
// the book.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.BookID == "" || !strings.HasPrefix(payload.S3Key, storage.UploadPrefix(payload.BookID)) {
		return fmt.Errorf("key %q does not belong to book %q: %w", payload.S3Key, payload.BookID, asynq.SkipRetry)
	}

	log := logging.L().With(zap.String("s3_key", payload.S3Key), zap.String("book_id", payload.BookID))

	imgData, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("uploaded cover not found")
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Warn("cover exceeds max size", zap.Int("bytes", len(imgData)), zap.Int64("max_bytes", maxSizeBytes))
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Warn("cover could not be decoded", zap.Error(err))
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	bounds := img.Bounds()
	if uint(bounds.Dx()) > maxDim || uint(bounds.Dy()) > maxDim {
		img = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode cover as JPEG: %w", err)
	}

	processedKey := storage.ProcessedKey(payload.BookID, payload.S3Key)
	if err := p.storageService.PutObject(ctx, processedKey, buf.Bytes(), "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	if err := p.bookService.SetCoverImage(ctx, payload.BookID, processedKey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("book deleted before its cover was processed")
			return fmt.Errorf("book not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to record cover on book: %w", err)
	}

	log.Info("cover processed",
		zap.String("format", format),
		zap.String("processed_key", processedKey),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return nil
}
