//go:build !windows

package imageprint

import (
	"fmt"
	"image"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
)

// printRasTerm draws an image using the RasTerm library, picking kitty,
// iTerm2 or sixel. Terminals supporting none of them get colored cells.
func (p *Printer) printRasTerm(img image.Image) error {
	if rasterm.IsTermKitty() {
		if err := (rasterm.Settings{}).KittyWriteImage(p.W, img); err != nil {
			return err
		}
		_, err := fmt.Fprintln(p.W)
		return err
	}
	if rasterm.IsTermItermWez() {
		if err := (rasterm.Settings{}).ItermWriteImage(p.W, img); err != nil {
			return err
		}
		_, err := fmt.Fprintln(p.W)
		return err
	}
	if capable, err := rasterm.IsSixelCapable(); capable && err == nil {
		paletted := image.NewPaletted(img.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(paletted, img.Bounds(), img, image.ZP)

		if err := (rasterm.Settings{}).SixelWriteImage(p.W, paletted); err != nil {
			return err
		}
		_, err := fmt.Fprintln(p.W)
		return err
	}
	return p.printCells(img)
}
