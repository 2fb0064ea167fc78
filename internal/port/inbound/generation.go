package inbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
)

// SessionServicePort drives generation sessions on behalf of a host.
type SessionServicePort interface {
	Open(ctx context.Context, kind generation.Kind) (generation.Snapshot, error)
	Status(ctx context.Context, id uuid.UUID) (generation.Snapshot, error)
	Submit(ctx context.Context, id uuid.UUID, req *generation.Request) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Describe(ctx context.Context, id uuid.UUID, image *generation.ImagePayload) (string, error)
	List(ctx context.Context, filter *session.Filter) ([]generation.Snapshot, error)
	Close(ctx context.Context, id uuid.UUID) error
}

// Compile-time check
var _ SessionServicePort = (*session.Manager)(nil)

// KindOutput describes one generation kind.
type KindOutput struct {
	Kind           generation.Kind         `json:"kind"`
	Media          generation.MediaKind    `json:"media"`
	RequiresPrompt bool                    `json:"requires_prompt"`
	ImageArity     int                     `json:"image_arity"`
	Options        []generation.OptionSpec `json:"options"`
	Presets        []string                `json:"presets,omitempty"`
}

// OpenSessionInput opens a session.
type OpenSessionInput struct {
	Kind string `json:"kind" binding:"required"`
}

// ImageInput is an image carried inline in a JSON submission.
type ImageInput struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	// Data is base64 encoded in JSON.
	Data []byte `json:"data"`
}

// SubmitInput is a JSON generation submission.
type SubmitInput struct {
	Kind    string            `json:"kind,omitempty"`
	Prompt  string            `json:"prompt"`
	Options map[string]string `json:"options,omitempty"`
	Images  []ImageInput      `json:"images,omitempty"`
}

// SubmitOutput is returned for an accepted submission.
type SubmitOutput struct {
	Session generation.Snapshot `json:"session"`
	Uploads []UploadOutput      `json:"uploads,omitempty"`
}

// UploadOutput describes an archived upload.
type UploadOutput struct {
	Name       string `json:"name"`
	Key        string `json:"key"`
	PreviewURL string `json:"preview_url,omitempty"`
	Size       int64  `json:"size"`
}

// DescriptionOutput is an extracted image description.
type DescriptionOutput struct {
	Description string `json:"description"`
}

// DownloadOutput tells a host where to fetch a result and what to save it as.
type DownloadOutput struct {
	URL       string               `json:"url"`
	Filename  string               `json:"filename"`
	MediaKind generation.MediaKind `json:"media_kind"`
	MIMEType  string               `json:"mime_type"`
}

// SessionListOutput lists sessions.
type SessionListOutput struct {
	Sessions []generation.Snapshot `json:"sessions"`
	Total    int                   `json:"total"`
}
