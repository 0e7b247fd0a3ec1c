// Package imageprint prints images on a terminal. It is used to show the grid
// preview from the command line.
//
// Depending on the terminal, an image is either sent through one of the
// inline image protocols (kitty, iTerm2, sixel) or approximated with two
// colored character cells per pixel.
package imageprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"
	"strings"

	"github.com/gookit/color"
)

// Mode selects how pixels reach the terminal.
type Mode int

const (
	// TrueColor paints cell backgrounds with 24 bit escape sequences.
	TrueColor Mode = iota
	// Color256 lets gookit/color pick the closest color the terminal has.
	Color256
	// NoColor uses ASCII shades only.
	NoColor
	// ITerm sends a PNG with iTerm2's inline image escape sequence.
	ITerm
	// RasTerm picks kitty, iTerm2 or sixel, whichever the terminal supports.
	RasTerm
)

// ParseMode accepts truecolor, 256, none, iterm and rasterm.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "truecolor", "24bit", "":
		return TrueColor, nil
	case "256", "col256":
		return Color256, nil
	case "none", "nocolor":
		return NoColor, nil
	case "iterm":
		return ITerm, nil
	case "rasterm":
		return RasTerm, nil
	}
	return TrueColor, fmt.Errorf("unknown print mode %q", s)
}

// Printer writes images to W.
type Printer struct {
	W    io.Writer
	Mode Mode
	// Blanks paints plain colored cells instead of ASCII art shades.
	Blanks bool
}

// Print writes img in the printer's mode. name is only used by the iTerm2
// protocol.
func (p *Printer) Print(img image.Image, name string) error {
	switch p.Mode {
	case ITerm:
		return p.printITerm(img, name)
	case RasTerm:
		return p.printRasTerm(img)
	}
	return p.printCells(img)
}

func (p *Printer) printCells(img image.Image) error {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sb.WriteString(p.cell(img.At(x, y)))
		}
		if p.Mode != NoColor {
			sb.WriteString("\x1b[0m")
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(p.W, sb.String())
	return err
}

// cell returns two characters standing in for one pixel.
func (p *Printer) cell(col ic.Color) string {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		if p.Mode == NoColor {
			return "  "
		}
		return "\x1b[0m  "
	}

	text := "  "
	if !p.Blanks {
		switch a := ((cR + cG + cB) / 3) >> 8; {
		case a < 32:
			text = ".."
		case a < 64:
			text = "--"
		case a < 128:
			text = "=="
		default:
			text = "##"
		}
	}

	r, g, b := uint8(cR>>8), uint8(cG>>8), uint8(cB>>8)
	switch p.Mode {
	case NoColor:
		return text
	case Color256:
		return color.RGB(r, g, b, true).Sprint(text)
	}
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm%s\x1b[0m", r, g, b, text)
}

// printITerm draws an image using iTerm2's escape sequences.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(img image.Image, name string) error {
	b := &bytes.Buffer{}
	enc := base64.NewEncoder(base64.StdEncoding, b)
	if err := png.Encode(enc, img); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.W, "\n\033]1337;File=name=%s;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n",
		base64.StdEncoding.EncodeToString([]byte(name)), b.Len(), img.Bounds().Dx(), img.Bounds().Dy(), b.String())
	return err
}
