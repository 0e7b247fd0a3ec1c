package imageprint

import (
	"image"
)

// printRasTerm falls back to colored cells; rasterm is not used on windows.
func (p *Printer) printRasTerm(img image.Image) error {
	return p.printCells(img)
}
