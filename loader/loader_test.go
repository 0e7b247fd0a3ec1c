package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"badc0de.net/pkg/spritesplit/ttesting"
)

func testSheet(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	return img
}

func encoded(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	case "bmp":
		err = bmp.Encode(buf, img)
	default:
		t.Fatalf("no encoder for %s", format)
	}
	ttesting.AssertNoError(t, "encoding "+format, err)
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	for _, tt := range []struct {
		format   string
		fileName string
		declared string
	}{
		{"png", "hero_walk.png", "image/png"},
		{"jpeg", "hero_walk.jpg", "image/jpeg"},
		{"bmp", "hero_walk.bmp", ""},
		{"png", "hero_walk.png", "application/octet-stream"},
	} {
		t.Run(tt.format+"/"+tt.declared, func(t *testing.T) {
			data := encoded(t, tt.format, testSheet(48, 32))
			src, err := Load(bytes.NewReader(data), tt.fileName, tt.declared)
			ttesting.AssertNoError(t, "Load", err)
			ttesting.AssertEqualInt(t, "width", src.Width, 48)
			ttesting.AssertEqualInt(t, "height", src.Height, 32)
			ttesting.AssertEqualString(t, "base name", src.BaseName, "hero_walk")
			ttesting.AssertEqualString(t, "format", src.Format, tt.format)
		})
	}
}

func TestLoadRejectsNonImages(t *testing.T) {
	_, err := Load(strings.NewReader("hello, world"), "notes.txt", "text/plain")
	if errors.Cause(err) != ErrUnsupportedFileType {
		t.Errorf("Load(text/plain) = %v; want ErrUnsupportedFileType", err)
	}

	_, err = Load(strings.NewReader("%PDF-1.4 ..."), "sheet.png", "")
	if errors.Cause(err) != ErrUnsupportedFileType {
		t.Errorf("Load(sniffed pdf) = %v; want ErrUnsupportedFileType", err)
	}

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	_, err = Load(bytes.NewReader(gif), "anim.gif", "image/gif")
	if errors.Cause(err) != ErrUnsupportedFileType {
		t.Errorf("Load(image/gif) = %v; want ErrUnsupportedFileType", err)
	}
}

func TestLoadDecodeFailure(t *testing.T) {
	data := encoded(t, "png", testSheet(8, 8))
	_, err := Load(bytes.NewReader(data[:40]), "broken.png", "image/png")
	if errors.Cause(err) != ErrDecode {
		t.Errorf("Load(truncated png) = %v; want ErrDecode", err)
	}
}

func TestCheckType(t *testing.T) {
	webpHead := []byte("RIFF\x10\x00\x00\x00WEBPVP8 ")
	for _, tt := range []struct {
		name     string
		declared string
		fileName string
		head     []byte
		want     string
	}{
		{"declared png", "image/png", "a.png", nil, "image/png"},
		{"declared with params", "image/jpeg; charset=binary", "a.jpg", nil, "image/jpeg"},
		{"bmp alias", "image/x-ms-bmp", "a.bmp", nil, "image/bmp"},
		{"sniffed webp", "", "a", webpHead, "image/webp"},
		{"sniffed bmp", "application/octet-stream", "a", []byte("BM\x00\x00"), "image/bmp"},
		{"by extension only", "", "a.webp", nil, "image/webp"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckType(tt.declared, tt.fileName, tt.head)
			ttesting.AssertNoError(t, "CheckType", err)
			ttesting.AssertEqualString(t, "type", got, tt.want)
		})
	}
}

func TestBaseName(t *testing.T) {
	for in, want := range map[string]string{
		"hero.png":           "hero",
		"walk.cycle.png":     "walk.cycle",
		"dir/sub/sheet.webp": "sheet",
		`C:\art\sheet.bmp`:   "sheet",
		"noextension":        "noextension",
		".hidden":            ".hidden",
		"":                   "",
	} {
		ttesting.AssertEqualString(t, "BaseName("+in+")", BaseName(in), want)
	}
}
