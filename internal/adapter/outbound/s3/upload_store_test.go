package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

type MockObjectAPI struct {
	mock.Mock
	body []byte
}

func (m *MockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key, *params.ContentType)
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(*s3.PutObjectOutput), nil
}

type MockPresignAPI struct {
	mock.Mock
}

func (m *MockPresignAPI) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(*params.Key)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), nil
}

func TestUploadStore_Save(t *testing.T) {
	sessionID := uuid.New()
	image := &generation.ImagePayload{Name: "cat.png", MediaType: "image/png", Data: []byte("png-bytes")}

	t.Run("uploads and presigns", func(t *testing.T) {
		objects := &MockObjectAPI{}
		presigner := &MockPresignAPI{}
		objects.On("PutObject", "studio", mock.AnythingOfType("string"), "image/png").Return(&s3.PutObjectOutput{}, nil)
		presigner.On("PresignGetObject", mock.AnythingOfType("string")).Return(&v4.PresignedHTTPRequest{URL: "https://signed"}, nil)

		store := newUploadStore(objects, presigner, "studio", "uploads/", time.Minute, nil)
		stored, err := store.Save(context.Background(), sessionID, image)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(stored.Key, "uploads/"+sessionID.String()+"/"))
		assert.True(t, strings.HasSuffix(stored.Key, ".png"))
		assert.Equal(t, "https://signed", stored.PreviewURL)
		assert.Equal(t, int64(len(image.Data)), stored.Size)
		assert.Equal(t, image.Data, objects.body)
		objects.AssertExpectations(t)
		presigner.AssertExpectations(t)
	})

	t.Run("put failure is returned", func(t *testing.T) {
		objects := &MockObjectAPI{}
		objects.On("PutObject", "studio", mock.Anything, "image/png").Return(nil, errors.New("access denied"))

		store := newUploadStore(objects, &MockPresignAPI{}, "studio", "", time.Minute, nil)
		_, err := store.Save(context.Background(), sessionID, image)
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("presign failure keeps the upload", func(t *testing.T) {
		objects := &MockObjectAPI{}
		presigner := &MockPresignAPI{}
		objects.On("PutObject", "studio", mock.Anything, "image/png").Return(&s3.PutObjectOutput{}, nil)
		presigner.On("PresignGetObject", mock.Anything).Return(nil, errors.New("no creds"))

		store := newUploadStore(objects, presigner, "studio", "", time.Minute, nil)
		stored, err := store.Save(context.Background(), sessionID, image)
		require.NoError(t, err)
		assert.Empty(t, stored.PreviewURL)
	})
}
