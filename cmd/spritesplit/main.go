// Command spritesplit cuts a sprite sheet into equally sized frames and writes
// them to a zip archive.
//
//	spritesplit -in hero_walk.png -frame_width 64 -frame_height 64
//	spritesplit -in hero_walk.png -mode count -rows 4 -cols 8 -preview
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"

	"badc0de.net/pkg/spritesplit/frames"
	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/imageprint"
)

var (
	in          = flag.String("in", "", "sprite sheet to split (PNG, JPEG, BMP or WEBP)")
	mode        = flag.String("mode", "size", "split by frame 'size' or by row/column 'count'")
	frameWidth  = flag.Int("frame_width", 0, "frame width in pixels, for -mode=size")
	frameHeight = flag.Int("frame_height", 0, "frame height in pixels, for -mode=size")
	rows        = flag.Int("rows", 0, "number of rows, for -mode=count")
	cols        = flag.Int("cols", 0, "number of columns, for -mode=count")
	prefix      = flag.String("prefix", "", "frame and archive name prefix; defaults to the input's base name")
	out         = flag.String("out", ".", "directory to write {prefix}.zip to")
	strict      = flag.Bool("strict", false, "abort if any frame fails to encode, instead of leaving it out")
	verify      = flag.Bool("verify", false, "after writing, check that the frames reassemble into the input")

	previewFlag = flag.Bool("preview", false, "print the sheet with the grid overlaid to the terminal")
	printMode   = flag.String("print_mode", "truecolor", "terminal preview mode: truecolor, 256, none, iterm or rasterm")
	blanks      = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize    = flag.Bool("downsize", true, "whether to shrink the preview to fit the terminal")
)

func options() (*splitOptions, error) {
	m, err := grid.ParseMode(*mode)
	if err != nil {
		return nil, err
	}
	policy := frames.Lenient
	if *strict {
		policy = frames.Strict
	}
	return &splitOptions{
		In:     *in,
		Spec:   grid.Spec{Mode: m, FrameWidth: *frameWidth, FrameHeight: *frameHeight, Rows: *rows, Cols: *cols},
		Prefix: *prefix,
		OutDir: *out,
		Policy: policy,
		Verify: *verify,
	}, nil
}

func main() {
	flagutil.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "spritesplit: -in is required")
		flag.Usage()
		os.Exit(2)
	}
	o, err := options()
	if err != nil {
		glog.Exitf("%v", err)
	}

	if *previewFlag {
		pm, err := imageprint.ParseMode(*printMode)
		if err != nil {
			glog.Exitf("%v", err)
		}
		o.Preview = &imageprint.Printer{W: os.Stdout, Mode: pm, Blanks: *blanks}
		o.Downsize = *downsize
	}

	res, err := split(context.Background(), o)
	if err != nil {
		glog.Exitf("%v", err)
	}
	fmt.Printf("wrote %s: %d frames (%s)\n", res.Path, res.Frames, res.Layout)
	for _, s := range res.Skipped {
		fmt.Printf("skipped %s: %v\n", s.FileName, s.Err)
	}
	if res.Verified {
		fmt.Println("verified: frames reassemble into the input")
	}
}
