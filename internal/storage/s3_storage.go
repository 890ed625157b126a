package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/logging"
)

var (
	// ErrObjectNotFound is returned when the requested key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnsupportedContentType is returned for uploads that are not images we can decode.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrNotConfigured is returned when no bucket is configured.
	ErrNotConfigured = errors.New("object storage not configured")
)

// presignExpiry bounds how long a client may take to upload a cover.
const presignExpiry = 15 * time.Minute

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// IS3Storage defines the interface for S3 operations on book covers.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, bookID, contentType string) (string, string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (IS3Storage, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		// Static keys from env; otherwise the default chain (IAM role, profile) applies.
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AwsS3Bucket == "" {
		logging.L().Warn("AWS_S3_BUCKET not configured, book cover uploads are disabled")
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

// UploadPrefix is the key prefix under which raw covers for bookID are uploaded.
func UploadPrefix(bookID string) string {
	return fmt.Sprintf("covers/uploads/%s/", bookID)
}

// ProcessedKey is where the normalized cover for an uploaded key is stored.
func ProcessedKey(bookID, uploadKey string) string {
	name := strings.TrimPrefix(uploadKey, UploadPrefix(bookID))
	return fmt.Sprintf("covers/%s/%s.jpg", bookID, name)
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading a cover.
// It returns the URL and the generated S3 object key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, bookID, contentType string) (string, string, error) {
	if s.cfg.AwsS3Bucket == "" {
		return "", "", ErrNotConfigured
	}
	if !allowedContentTypes[contentType] {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	objectKey := UploadPrefix(bookID) + uuid.NewString()

	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	logging.L().Debug("generated presigned cover upload URL", zap.String("key", objectKey))
	return presignedReq.URL, objectKey, nil
}

// GetObject downloads the whole object. Missing keys yield ErrObjectNotFound.
func (s *s3Storage) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
