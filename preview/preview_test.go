package preview

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/ttesting"
)

func whiteSheet(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.ZP, draw.Src)
	return img
}

func isLine(c color.NRGBA) bool {
	return c.R == 0xFF && c.G < 0xFF && c.B < 0xFF
}

func TestRenderDrawsInteriorBoundariesOnly(t *testing.T) {
	src := whiteSheet(12, 8)
	l := grid.Plan(12, 8, grid.SizeSpec(4, 4)).Layout // 3 cols, 2 rows

	out := Render(src, l, nil)
	ttesting.AssertEqualInt(t, "width", out.Bounds().Dx(), 12)
	ttesting.AssertEqualInt(t, "height", out.Bounds().Dy(), 8)

	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			want := x == 4 || x == 8 || y == 4
			if got := isLine(out.NRGBAAt(x, y)); got != want {
				t.Errorf("pixel (%d,%d) line = %t; want %t (%v)", x, y, got, want, out.NRGBAAt(x, y))
			}
		}
	}
}

func TestRenderSingleCellHasNoLines(t *testing.T) {
	src := whiteSheet(6, 6)
	out := Render(src, grid.Layout{FrameWidth: 6, FrameHeight: 6, Rows: 1, Cols: 1}, nil)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if isLine(out.NRGBAAt(x, y)) {
				t.Fatalf("pixel (%d,%d) has a line", x, y)
			}
		}
	}
}

func TestRenderIncompleteLayout(t *testing.T) {
	src := whiteSheet(6, 6)
	res := grid.Plan(6, 6, grid.SizeSpec(2, 0))
	out := Render(src, res.Layout, nil)
	if isLine(out.NRGBAAt(2, 0)) {
		t.Errorf("incomplete layout drew a line")
	}
}

func TestRenderDoesNotTouchSource(t *testing.T) {
	src := whiteSheet(4, 4)
	Render(src, grid.Layout{FrameWidth: 2, FrameHeight: 2, Rows: 2, Cols: 2}, &Options{LineColor: color.Black})
	if got := src.NRGBAAt(2, 2); got != (color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("source pixel changed to %v", got)
	}
}

func TestRenderOffsetSource(t *testing.T) {
	big := whiteSheet(10, 10)
	sub := big.SubImage(image.Rect(2, 2, 6, 6))
	out := Render(sub, grid.Layout{FrameWidth: 2, FrameHeight: 4, Rows: 1, Cols: 2}, &Options{LineColor: color.NRGBA{R: 0xFF, A: 0xFF}})
	ttesting.AssertEqualInt(t, "min x", out.Bounds().Min.X, 0)
	if got := out.NRGBAAt(2, 0); got != (color.NRGBA{0xFF, 0, 0, 0xFF}) {
		t.Errorf("line pixel = %v; want opaque red", got)
	}
}

func TestThumbnail(t *testing.T) {
	img := whiteSheet(400, 200)
	th := Thumbnail(img, 100, 100)
	ttesting.AssertEqualInt(t, "width", th.Bounds().Dx(), 100)
	ttesting.AssertEqualInt(t, "height", th.Bounds().Dy(), 50)

	small := whiteSheet(10, 10)
	if Thumbnail(small, 100, 100).Bounds() != small.Bounds() {
		t.Errorf("small image was resized")
	}
}
