package tui

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// LoadImage reads an image from disk. The media type comes from the file
// extension and falls back to sniffing the content.
func LoadImage(path string) (*generation.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	declared := mime.TypeByExtension(filepath.Ext(path))
	if declared == "" {
		declared = mimetype.Detect(data).String()
	}
	return generation.AcceptImage(generation.File{
		Name:         filepath.Base(path),
		DeclaredType: declared,
		Data:         data,
	})
}
