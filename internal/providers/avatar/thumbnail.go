// Package avatar stores uploaded avatars and their thumbnails.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Thumbnail center-crops src to the target aspect ratio and scales it to
// width x height, re-encoding in the source format.
func Thumbnail(content []byte, width, height int) ([]byte, string, error) {
	src, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", fmt.Errorf("decode avatar: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, "", fmt.Errorf("invalid thumbnail size %dx%d", width, height)
	}

	crop := centerCrop(src.Bounds(), width, height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		format = "jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), "image/" + format, nil
}

// centerCrop returns the largest rectangle centered in b with the aspect
// ratio w:h.
func centerCrop(b image.Rectangle, w, h int) image.Rectangle {
	bw, bh := b.Dx(), b.Dy()
	cw, ch := bw, bw*h/w
	if ch > bh {
		cw, ch = bh*w/h, bh
	}
	x0 := b.Min.X + (bw-cw)/2
	y0 := b.Min.Y + (bh-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}
