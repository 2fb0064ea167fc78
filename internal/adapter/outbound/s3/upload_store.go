package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
)

// objectAPI is the subset of the S3 client used by UploadStore.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// presignAPI is the subset of the presign client used by UploadStore.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadStore archives uploaded images under <prefix><session>/<id><ext>.
type UploadStore struct {
	objects   objectAPI
	presigner presignAPI
	bucket    string
	prefix    string
	expiry    time.Duration
	logger    *zap.Logger
}

// NewUploadStore creates an upload store backed by client.
func NewUploadStore(client *s3.Client, bucket, prefix string, expiry time.Duration, logger *zap.Logger) *UploadStore {
	return newUploadStore(client, s3.NewPresignClient(client), bucket, prefix, expiry, logger)
}

func newUploadStore(objects objectAPI, presigner presignAPI, bucket, prefix string, expiry time.Duration, logger *zap.Logger) *UploadStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadStore{
		objects:   objects,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		expiry:    expiry,
		logger:    logger.Named("upload-store"),
	}
}

// Save uploads the raw image bytes and returns a presigned preview URL.
func (s *UploadStore) Save(ctx context.Context, sessionID uuid.UUID, image *generation.ImagePayload) (*outbound.StoredUpload, error) {
	key := s.objectKey(sessionID, image.MediaType)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image.Data),
		ContentType:   aws.String(image.MediaType),
		ContentLength: aws.Int64(int64(len(image.Data))),
		Metadata: map[string]string{
			"session-id":    sessionID.String(),
			"original-name": image.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	stored := &outbound.StoredUpload{Key: key, Size: int64(len(image.Data))}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		s.logger.Warn("presign preview failed", zap.String("key", key), zap.Error(err))
	} else {
		stored.PreviewURL = presigned.URL
	}

	s.logger.Debug("upload archived",
		zap.String("session_id", sessionID.String()),
		zap.String("key", key),
		zap.Int64("size", stored.Size),
	)
	return stored, nil
}

func (s *UploadStore) objectKey(sessionID uuid.UUID, mediaType string) string {
	ext := ""
	if mt := mimetype.Lookup(mediaType); mt != nil {
		ext = mt.Extension()
	}
	return fmt.Sprintf("%s%s/%s%s", s.prefix, sessionID, uuid.New(), ext)
}

// Compile-time check
var _ outbound.UploadStorePort = (*UploadStore)(nil)
