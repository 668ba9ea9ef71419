package login

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

// RenderQR draws the QR image as terminal text, width columns wide.
// Two pixel rows share one text row using half blocks; light pixels are
// drawn, dark pixels are left blank, which suits dark terminals.
func RenderQR(path string, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("invalid width %d", width)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read QR image: %w", err)
	}
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return "", fmt.Errorf("unsupported QR image type %s", mt.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open QR image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode QR image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return "", fmt.Errorf("empty QR image")
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	light := func(x, y int) bool {
		if y >= height {
			return true
		}
		return dst.GrayAt(x, y).Y >= 128
	}

	var sb strings.Builder
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top, bottom := light(x, y), light(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
