// internal/upload/image.go
// Stored profile photos are recompressed as JPEG after a profile edit.

package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // decoder registration

	_ "golang.org/x/image/bmp" // decoder registration
)

// CompressImage decodes a stored image and rewrites it as a JPEG at the
// configured quality. The reference keeps its name, so profile photo fields
// stay valid.
func (m *Manager) CompressImage(ctx context.Context, ref string) error {
	src, err := m.storage.Load(ctx, ref)
	if err != nil {
		return err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", ref, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: m.jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode image %s: %w", ref, err)
	}

	return m.storage.Save(ctx, ref, &buf)
}
