package generation

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptImage(t *testing.T) {
	data := pngBytes(t, 10, 4)

	t.Run("accepts declared image", func(t *testing.T) {
		p, err := AcceptImage(File{Name: "cat.png", DeclaredType: "image/png", Data: data})
		require.NoError(t, err)
		assert.Equal(t, "image/png", p.MediaType)
		assert.Equal(t, data, p.Data)
		assert.Equal(t, 10, p.Width)
		assert.Equal(t, 4, p.Height)
		assert.Equal(t, len(data), p.Size())
	})

	t.Run("accepts type with parameters and mixed case", func(t *testing.T) {
		p, err := AcceptImage(File{Name: "cat.jpg", DeclaredType: "Image/JPEG; q=0.9", Data: []byte("not decodable")})
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", p.MediaType)
		assert.Zero(t, p.Width)
	})

	t.Run("rejects non image types", func(t *testing.T) {
		for _, typ := range []string{"text/plain", "video/mp4", "", "image", "application/octet-stream"} {
			_, err := AcceptImage(File{Name: "x", DeclaredType: typ, Data: data})
			assert.ErrorIs(t, err, ErrNotAnImage, typ)
			kind, ok := KindOf(err)
			assert.True(t, ok)
			assert.Equal(t, ErrorNotAnImage, kind)
		}
	})

	t.Run("copies the input bytes", func(t *testing.T) {
		buf := append([]byte(nil), data...)
		p, err := AcceptImage(File{Name: "cat.png", DeclaredType: "image/png", Data: buf})
		require.NoError(t, err)
		buf[0] = 0
		assert.Equal(t, data[0], p.Data[0])
	})
}

func TestImagePayload_PreviewURL(t *testing.T) {
	p := &ImagePayload{MediaType: "image/png", Data: []byte("abc")}
	assert.Equal(t, "data:image/png;base64,YWJj", p.PreviewURL())
}

func TestImagePayload_Thumbnail(t *testing.T) {
	t.Run("downscales large images", func(t *testing.T) {
		p := &ImagePayload{Name: "big.png", MediaType: "image/png", Data: pngBytes(t, 200, 100)}
		data, typ, err := p.Thumbnail(50)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", typ)

		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 25, cfg.Height)
	})

	t.Run("keeps small images", func(t *testing.T) {
		raw := pngBytes(t, 20, 20)
		p := &ImagePayload{Name: "small.png", MediaType: "image/png", Data: raw}
		data, typ, err := p.Thumbnail(50)
		require.NoError(t, err)
		assert.Equal(t, "image/png", typ)
		assert.Equal(t, raw, data)
	})

	t.Run("fails on undecodable data", func(t *testing.T) {
		p := &ImagePayload{Name: "bad.png", MediaType: "image/png", Data: []byte("nope")}
		_, _, err := p.Thumbnail(50)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "bad.png"))
	})
}

func TestThumbnailDimensions(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{400, 200, 100, 100, 50},
		{200, 400, 100, 50, 100},
		{1000, 1, 100, 100, 1},
		{100, 100, 0, 100, 100},
	}
	for _, tt := range tests {
		w, h := thumbnailDimensions(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
