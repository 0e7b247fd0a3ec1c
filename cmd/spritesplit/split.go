package main

import (
	"context"
	"image"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/spritesplit/archive"
	"badc0de.net/pkg/spritesplit/frames"
	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/imageprint"
	"badc0de.net/pkg/spritesplit/session"
)

type splitOptions struct {
	In     string
	Spec   grid.Spec
	Prefix string
	OutDir string
	Policy frames.Policy
	Verify bool

	// Preview, if set, receives the overlay preview before exporting.
	Preview  *imageprint.Printer
	Downsize bool
}

type splitResult struct {
	Path     string
	Frames   int
	Layout   grid.Layout
	Skipped  []*frames.EncodeError
	Verified bool
}

// split runs the whole pipeline on one file: load, plan, optionally preview,
// export and write the archive.
func split(ctx context.Context, o *splitOptions) (*splitResult, error) {
	f, err := os.Open(o.In)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}
	defer f.Close()

	s := session.New(&session.Options{Frames: frames.Options{Policy: o.Policy}, Spec: o.Spec})
	src, err := s.Load(f, filepath.Base(o.In), "")
	if err != nil {
		return nil, err
	}
	s.SetSpec(o.Spec)
	if o.Prefix != "" {
		s.SetPrefix(o.Prefix)
	}

	if o.Preview != nil {
		p, err := s.Preview()
		if err != nil {
			return nil, err
		}
		glog.Infof("previewing %s", p.Result.Layout)
		if err := printPreview(o.Preview, p.Render(), o.Downsize); err != nil {
			glog.Warningf("could not print preview: %v", err)
		}
	}

	exp, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(o.OutDir, exp.Name)
	if err := ioutil.WriteFile(path, exp.Data, 0644); err != nil {
		return nil, errors.Wrap(err, "writing archive")
	}
	res := &splitResult{Path: path, Frames: exp.Frames, Layout: exp.Layout, Skipped: exp.Skipped}

	if o.Verify {
		if err := verifyArchive(exp.Data, s.Prefix(), exp.Layout, src.Image); err != nil {
			return res, err
		}
		res.Verified = true
	}
	return res, nil
}

// verifyArchive reads the frames back from data and checks that, drawn at
// their grid positions, they reproduce src. Frames missing from the archive
// are not checked.
func verifyArchive(data []byte, prefix string, l grid.Layout, src image.Image) error {
	entries, err := archive.Extract(data)
	if err != nil {
		return err
	}
	total := l.Total()
	pad := frames.PadLength(total)
	var fs []frames.Frame
	for i := 0; i < total; i++ {
		name := frames.FileName(prefix, i, pad)
		b, ok := entries[name]
		if !ok {
			glog.Warningf("verify: %s not in archive", name)
			continue
		}
		fs = append(fs, frames.Frame{Index: i, Row: i / l.Cols, Col: i % l.Cols, FileName: name, Data: b})
	}

	got, err := frames.Reassemble(fs, l)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	if is16Bit(src.ColorModel()) && !is16Bit(got.ColorModel()) {
		return errors.Errorf("verify: frames have fewer bits per channel than the input")
	}

	// Compare in the frames' color model, so that an 8 bit input decoded as
	// e.g. YCbCr matches the NRGBA frames cut from it.
	model := got.ColorModel()
	b := src.Bounds()
	for _, f := range fs {
		cell := image.Rect(f.Col*l.FrameWidth, f.Row*l.FrameHeight, (f.Col+1)*l.FrameWidth, (f.Row+1)*l.FrameHeight)
		for y := cell.Min.Y; y < cell.Max.Y; y++ {
			for x := cell.Min.X; x < cell.Max.X; x++ {
				if got.At(x, y) != model.Convert(src.At(b.Min.X+x, b.Min.Y+y)) {
					return errors.Errorf("verify: %s differs from the input at (%d,%d)", f.FileName, x, y)
				}
			}
		}
	}
	return nil
}

func is16Bit(m color.Model) bool {
	return m == color.RGBA64Model || m == color.NRGBA64Model || m == color.Gray16Model
}
