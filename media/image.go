package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/blogd/blog"
)

const jpegQuality = 80

// maxPixels caps the decoded size of an upload. Decoding allocates the full
// pixel buffer before any downscaling, so oversized headers are refused up
// front.
const maxPixels = 6000 * 6000

// processed is an upload after decoding.
type processed struct {
	data   []byte
	ext    string
	width  int
	height int
}

var formatExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// processImage checks that src decodes as an image and downscales it to
// maxWidth when it is wider. Images that fit are kept byte for byte.
// Resized JPEGs stay JPEG; every other resized format becomes PNG.
func processImage(src io.Reader, maxWidth int) (processed, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return processed{}, fmt.Errorf("read upload: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return processed{}, fmt.Errorf("%w: %v", blog.ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return processed{}, fmt.Errorf("%w: %dx%d is too large", blog.ErrInvalidImage, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return processed{}, fmt.Errorf("%w: %v", blog.ErrInvalidImage, err)
	}
	ext, ok := formatExt[format]
	if !ok {
		return processed{}, fmt.Errorf("%w: unsupported format %q", blog.ErrInvalidImage, format)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return processed{data: raw, ext: ext, width: w, height: h}, nil
	}

	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if format == "jpeg" {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	} else {
		ext = ".png"
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return processed{}, fmt.Errorf("encode %s: %w", ext, err)
	}
	return processed{data: buf.Bytes(), ext: ext, width: maxWidth, height: newH}, nil
}
