package generation

import (
	"fmt"
	"strings"
)

// Kind identifies one of the generation modes.
type Kind string

const (
	KindTextToImage  Kind = "text-to-image"
	KindTextToVideo  Kind = "text-to-video"
	KindImageToVideo Kind = "image-to-video"
	KindFrameToVideo Kind = "frame-to-video"
)

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindTextToImage, KindTextToVideo, KindImageToVideo, KindFrameToVideo}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the supported kinds.
func (k Kind) IsValid() bool {
	_, ok := profiles[k]
	return ok
}

// ParseKind parses a kind name. Both the canonical form ("text-to-image")
// and the underscore form ("text_to_image") are accepted.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !k.IsValid() {
		return "", &Error{Kind: ErrorUnsupportedKind, Message: fmt.Sprintf("unsupported kind %q", s)}
	}
	return k, nil
}

// MediaKind is the kind of media a generation produces.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)
