package generation

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImage(t *testing.T, name string) *ImagePayload {
	t.Helper()
	img, err := AcceptImage(File{Name: name, DeclaredType: "image/png", Data: pngBytes(t, 8, 6)})
	require.NoError(t, err)
	return img
}

// fastProfile returns the kind's profile with millisecond timing.
func fastProfile(t *testing.T, kind Kind) Profile {
	t.Helper()
	p, err := ProfileFor(kind)
	require.NoError(t, err)
	return p.WithTiming(Timing{
		PollInterval:  5 * time.Millisecond,
		MaxIncrement:  30,
		Ceiling:       90,
		TotalDuration: 80 * time.Millisecond,
	})
}

func waitForTerminal(t *testing.T, s *Session) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.CurrentStatus().Status.IsTerminal()
	}, 2*time.Second, 2*time.Millisecond)
	return s.CurrentStatus()
}
