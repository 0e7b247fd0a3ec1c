// Package frames cuts a sprite sheet into its grid cells and encodes each
// cell as a PNG.
//
// Cells are visited in row-major order: all columns of row 0, then row 1,
// and so on. A cell's index is row*cols+col, and that index is embedded in its
// file name, zero-padded to the width of the largest index in the batch.
package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/loader"
)

// Frame is one encoded grid cell.
type Frame struct {
	Index    int
	Row, Col int
	FileName string
	Data     []byte
}

// Naming controls how frames are named.
type Naming struct {
	// Prefix is prepended to every frame's index. It usually defaults to the
	// sheet's file name without extension.
	Prefix string
}

// Policy decides what happens when a single frame cannot be encoded.
type Policy int

const (
	// Lenient leaves the failed frame out and carries on with the rest of the
	// batch. The failure is recorded in Result.Failures.
	Lenient Policy = iota
	// Strict aborts the export at the first frame that fails to encode.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy accepts "lenient" or "strict".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	}
	return Lenient, fmt.Errorf("unknown encode failure policy %q; want lenient or strict", s)
}

// Encoder writes a cropped frame to w.
type Encoder interface {
	Encode(w io.Writer, m image.Image) error
}

// PNGEncoder is the default Encoder.
type PNGEncoder struct {
	png.Encoder
}

// Options tunes Export. A nil *Options is valid.
type Options struct {
	Policy Policy
	// Encoder defaults to a PNGEncoder using default compression.
	Encoder Encoder
}

func (o *Options) policy() Policy {
	if o == nil {
		return Lenient
	}
	return o.Policy
}

func (o *Options) encoder() Encoder {
	if o == nil || o.Encoder == nil {
		return &PNGEncoder{}
	}
	return o.Encoder
}

// EncodeError reports a single frame that could not be encoded.
type EncodeError struct {
	Index    int
	FileName string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("could not encode frame %d (%s): %s", e.Index, e.FileName, e.Err)
}

// Cause lets errors.Cause see through to the encoder's error.
func (e *EncodeError) Cause() error {
	return e.Err
}

// Result is the outcome of Export.
type Result struct {
	Layout grid.Layout
	// Frames holds the successfully encoded frames in row-major order.
	Frames []Frame
	// Failures holds frames left out under the Lenient policy.
	Failures []*EncodeError
}

// PadLength returns the number of digits used for frame indices in a batch
// of total frames: the length of the decimal representation of total-1, and
// never less than 1.
func PadLength(total int) int {
	if total <= 1 {
		return 1
	}
	return len(strconv.Itoa(total - 1))
}

// FileName returns the name of the frame with the passed index,
// "{prefix}_{paddedIndex}.png".
func FileName(prefix string, index, padLength int) string {
	return fmt.Sprintf("%s_%0*d.png", prefix, padLength, index)
}

// canvas returns an empty image deep enough to hold pixels of model m
// without loss: 16 bit models get 16 bits per channel, anything else 8.
func canvas(m color.Model, r image.Rectangle) draw.Image {
	switch m {
	case color.RGBA64Model:
		return image.NewRGBA64(r)
	case color.NRGBA64Model, color.Gray16Model:
		return image.NewNRGBA64(r)
	}
	return image.NewNRGBA(r)
}

// Crop copies the cell at (row, col) of the layout into a new image of
// exactly FrameWidth x FrameHeight. Pixels are copied 1:1, alpha included,
// at the bit depth of src.
func Crop(src image.Image, l grid.Layout, row, col int) draw.Image {
	b := src.Bounds()
	origin := image.Pt(b.Min.X+col*l.FrameWidth, b.Min.Y+row*l.FrameHeight)

	dst := canvas(src.ColorModel(), image.Rect(0, 0, l.FrameWidth, l.FrameHeight))
	copyRect(dst, dst.Bounds(), src, origin)
	return dst
}

// copyRect copies src, starting at sp, into r of dst.
func copyRect(dst draw.Image, r image.Rectangle, src image.Image, sp image.Point) {
	if !is16Bit(dst.ColorModel()) {
		draw.Draw(dst, r, src, sp, draw.Src)
		return
	}
	// draw.Draw goes through premultiplied RGBA64, which rounds 16 bit
	// pixels that are not opaque. Set keeps a color of the image's own type.
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Set(x, y, src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y))
		}
	}
}

// Export crops, encodes and names every cell of the layout.
//
// The layout is validated against the image again, regardless of what the
// caller believes about it. The context is checked between frames.
func Export(ctx context.Context, src *loader.SourceImage, l grid.Layout, naming Naming, opts *Options) (*Result, error) {
	if src == nil || src.Image == nil {
		return nil, loader.ErrNoImage
	}
	if err := checkLayout(src, l); err != nil {
		return nil, err
	}

	total := l.Total()
	padLength := PadLength(total)
	enc := opts.encoder()
	res := &Result{
		Layout: l,
		Frames: make([]Frame, 0, total),
	}

	glog.Infof("exporting %s from %dx%d sheet as %s_*.png", l, src.Width, src.Height, naming.Prefix)
	for r := 0; r < l.Rows; r++ {
		for c := 0; c < l.Cols; c++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			index := r*l.Cols + c
			name := FileName(naming.Prefix, index, padLength)

			buf := &bytes.Buffer{}
			if err := enc.Encode(buf, Crop(src.Image, l, r, c)); err != nil {
				encErr := &EncodeError{Index: index, FileName: name, Err: err}
				if opts.policy() == Strict {
					return nil, encErr
				}
				glog.Errorf("skipping frame: %v", encErr)
				res.Failures = append(res.Failures, encErr)
				continue
			}
			if glog.V(2) {
				glog.Infof("encoded %s (%d bytes)", name, buf.Len())
			}

			res.Frames = append(res.Frames, Frame{
				Index:    index,
				Row:      r,
				Col:      c,
				FileName: name,
				Data:     buf.Bytes(),
			})
		}
	}
	glog.Infof("exported %d of %d frames", len(res.Frames), total)
	return res, nil
}

// checkLayout re-runs the planner's exact tiling check for l.
func checkLayout(src *loader.SourceImage, l grid.Layout) error {
	res := grid.Plan(src.Width, src.Height, grid.SizeSpec(l.FrameWidth, l.FrameHeight))
	if err := res.Err(); err != nil {
		return errors.Wrapf(err, "%dx%d sheet", src.Width, src.Height)
	}
	if res.Layout != l {
		return errors.Wrapf(&grid.ValidationError{}, "%s on a %dx%d sheet, want %s", l, src.Width, src.Height, res.Layout)
	}
	return nil
}

// IsInvalidLayout reports whether err came from validating the layout
// against the image.
func IsInvalidLayout(err error) bool {
	return grid.IsValidationError(err)
}

// Reassemble decodes the frames and draws each one back at its position in
// the layout. Frames missing from the slice leave their cell transparent.
//
// The result is an *image.NRGBA, or an *image.NRGBA64 if any frame was
// encoded with 16 bits per channel.
func Reassemble(fs []Frame, l grid.Layout) (draw.Image, error) {
	decoded := make([]image.Image, len(fs))
	model := color.NRGBAModel
	for i, f := range fs {
		m, err := png.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", f.FileName)
		}
		decoded[i] = m
		if is16Bit(m.ColorModel()) {
			model = color.NRGBA64Model
		}
	}

	dst := canvas(model, image.Rect(0, 0, l.Cols*l.FrameWidth, l.Rows*l.FrameHeight))
	for i, f := range fs {
		m := decoded[i]
		at := image.Rect(f.Col*l.FrameWidth, f.Row*l.FrameHeight, (f.Col+1)*l.FrameWidth, (f.Row+1)*l.FrameHeight)
		copyRect(dst, at, m, m.Bounds().Min)
	}
	return dst, nil
}

func is16Bit(m color.Model) bool {
	return m == color.RGBA64Model || m == color.NRGBA64Model || m == color.Gray16Model
}
