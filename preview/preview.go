// Package preview draws a sprite sheet with its grid overlaid, so that the
// split can be checked before exporting.
//
// Rendering is a read-only projection of the sheet and the current layout. It
// is redone from scratch whenever either changes.
package preview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/bradfitz/iter"
	"github.com/nfnt/resize"

	"badc0de.net/pkg/spritesplit/grid"
)

// DefaultLineColor is red at half opacity.
var DefaultLineColor color.Color = color.NRGBA{R: 0xFF, A: 0x80}

// Options tunes Render. A nil *Options is valid.
type Options struct {
	LineColor color.Color
}

func (o *Options) lineColor() color.Color {
	if o == nil || o.LineColor == nil {
		return DefaultLineColor
	}
	return o.LineColor
}

// Render returns a copy of src at its native size with a line drawn on every
// interior boundary of the layout: at x = i*FrameWidth for i in 1..Cols-1 and
// at y = i*FrameHeight for i in 1..Rows-1. The outer edges get no line.
//
// The layout does not need to be valid; an incomplete layout (no rows or no
// columns) draws the sheet without lines.
func Render(src image.Image, l grid.Layout, o *Options) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	if l.Rows <= 0 || l.Cols <= 0 {
		return dst
	}

	line := image.NewUniform(o.lineColor())
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for i := range iter.N(l.Cols) {
		if i == 0 {
			continue
		}
		x := i * l.FrameWidth
		draw.Draw(dst, image.Rect(x, 0, x+1, h), line, image.ZP, draw.Over)
	}
	for i := range iter.N(l.Rows) {
		if i == 0 {
			continue
		}
		y := i * l.FrameHeight
		draw.Draw(dst, image.Rect(0, y, w, y+1), line, image.ZP, draw.Over)
	}
	return dst
}

// Thumbnail shrinks img to fit within maxWidth x maxHeight, keeping its aspect
// ratio. Images that already fit are returned as they are.
//
// Thumbnails are for display only; exported frames are always cut from the
// full resolution sheet.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	if maxWidth == 0 || maxHeight == 0 {
		return img
	}
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
}
