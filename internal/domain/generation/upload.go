package generation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// File is a file handed over by the host: raw bytes plus the media type it
// was declared with.
type File struct {
	Name         string
	DeclaredType string
	Data         []byte
}

// ImagePayload is an accepted image. It keeps the raw bytes for a backend and
// exposes a data URL for previews.
type ImagePayload struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// AcceptImage turns a file into an image payload. Only the declared media type
// is checked; dimensions are filled in when the bytes can be decoded.
func AcceptImage(f File) (*ImagePayload, error) {
	mediaType, _, err := mime.ParseMediaType(f.DeclaredType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return nil, newError(ErrorNotAnImage, "file %q has type %q", f.Name, f.DeclaredType)
	}

	data := make([]byte, len(f.Data))
	copy(data, f.Data)

	payload := &ImagePayload{
		Name:      f.Name,
		MediaType: mediaType,
		Data:      data,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		payload.Width = cfg.Width
		payload.Height = cfg.Height
	}
	return payload, nil
}

// Size returns the payload size in bytes.
func (p *ImagePayload) Size() int {
	return len(p.Data)
}

// PreviewURL returns a data URL that renders the image.
func (p *ImagePayload) PreviewURL() string {
	return "data:" + p.MediaType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Thumbnail returns the image downscaled so that its longest side is at most
// maxDimension, encoded as JPEG. Images already small enough are returned as is.
func (p *ImagePayload) Thumbnail(maxDimension int) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", p.Name, err)
	}

	bounds := img.Bounds()
	width, height := thumbnailDimensions(bounds.Dx(), bounds.Dy(), maxDimension)
	if width == bounds.Dx() && height == bounds.Dy() {
		return p.Data, p.MediaType, nil
	}

	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width >= height {
		h := height * maxDimension / width
		return maxDimension, max(h, 1)
	}
	w := width * maxDimension / height
	return max(w, 1), maxDimension
}
