package outbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// StatusPublisherPort fans session snapshots out to other processes and keeps
// the last snapshot of each session.
type StatusPublisherPort interface {
	// Publish stores snap as the session's last snapshot and broadcasts it.
	Publish(ctx context.Context, snap generation.Snapshot) error

	// Last returns the last published snapshot, or nil when none is stored.
	Last(ctx context.Context, sessionID uuid.UUID) (*generation.Snapshot, error)

	// Forget drops the stored snapshot of a session.
	Forget(ctx context.Context, sessionID uuid.UUID) error
}

// StoredUpload describes an archived upload.
type StoredUpload struct {
	Key        string `json:"key"`
	PreviewURL string `json:"preview_url,omitempty"`
	Size       int64  `json:"size"`
}

// UploadStorePort archives the raw bytes of accepted images.
type UploadStorePort interface {
	Save(ctx context.Context, sessionID uuid.UUID, image *generation.ImagePayload) (*StoredUpload, error)
}
