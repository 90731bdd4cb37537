package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// resizePNG decodes a PNG and resizes it to width x height, re-encoding
// as PNG. Ported from thumbnail_queue.py's _resize_png; PIL's
// Image.Resampling.LANCZOS has no identical counterpart in
// golang.org/x/image/draw, so this uses xdraw.CatmullRom, the library's
// own highest-quality interpolator and the closest available analog.
func resizePNG(data []byte, width, height int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("thumbnail: decode source image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("thumbnail: encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
