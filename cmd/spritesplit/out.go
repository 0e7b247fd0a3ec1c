package main

import (
	"image"

	"badc0de.net/pkg/spritesplit/imageprint"
	"badc0de.net/pkg/spritesplit/preview"
)

func printPreview(p *imageprint.Printer, img image.Image, downsize bool) error {
	if downsize {
		termSize, err := getTermSize()
		if err == nil {
			if termSize.WSXPixel != 0 && termSize.WSYPixel != 0 && (p.Mode == imageprint.RasTerm || p.Mode == imageprint.ITerm) {
				// Inline image protocols show real pixels, so only shrink to the window.
				img = preview.Thumbnail(img, termSize.WSXPixel/2, termSize.WSYPixel/2)
			} else {
				// Two character cells per pixel.
				img = preview.Thumbnail(img, termSize.WSCol/2, termSize.WSRow)
			}
		}
	}
	return p.Print(img, "preview.png")
}
