// Package loader turns an uploaded file into a decoded sprite sheet.
//
// Only raster formats are accepted: PNG, JPEG, BMP and WEBP. The check on the
// file's type happens before any decoding is attempted.
package loader

import (
	"bytes"
	"image"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	// Register decoders for the accepted formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFileType is returned when an upload is not one of the
	// accepted image types. Nothing is decoded in that case.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrDecode is returned when an upload of an accepted type could not be
	// decoded into an image.
	ErrDecode = errors.New("could not decode image")
	// ErrNoImage is returned by operations that need a decoded sheet when
	// there is none.
	ErrNoImage = errors.New("no sprite sheet loaded")
)

// Accepted MIME types, with their canonical form.
var acceptedTypes = map[string]string{
	"image/png":      "image/png",
	"image/jpeg":     "image/jpeg",
	"image/jpg":      "image/jpeg",
	"image/pjpeg":    "image/jpeg",
	"image/bmp":      "image/bmp",
	"image/x-ms-bmp": "image/bmp",
	"image/x-bmp":    "image/bmp",
	"image/webp":     "image/webp",
}

// SourceImage is a decoded sprite sheet. It is never modified after Load
// returns it, so it can be shared between a session and an export that is
// running on a snapshot of that session.
type SourceImage struct {
	Width  int
	Height int
	Image  image.Image
	// BaseName is the uploaded file's name without its extension.
	BaseName string
	// Format is the name the decoder was registered under, e.g. "png".
	Format string
}

// Bounds returns the bounds of the decoded image.
func (s *SourceImage) Bounds() image.Rectangle {
	return s.Image.Bounds()
}

// BaseName strips any directory and the last extension from fileName.
//
// "walk.cycle.png" becomes "walk.cycle"; a name without an extension is
// returned unchanged.
func BaseName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// CheckType returns the canonical MIME type of an upload, or
// ErrUnsupportedFileType.
//
// declared is the type the client sent (e.g. a multipart part's
// Content-Type); it may be empty or the generic application/octet-stream, in
// which case the type is sniffed from head and then guessed from fileName.
func CheckType(declared, fileName string, head []byte) (string, error) {
	if mt, ok := canonical(declared); ok {
		return mt, nil
	}
	if declared != "" && !isGeneric(declared) {
		return "", errors.Wrapf(ErrUnsupportedFileType, "%s is %s, not an image", fileName, declared)
	}

	sniffed := sniff(head)
	if mt, ok := canonical(sniffed); ok {
		return mt, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" && len(head) == 0 {
		if mt, ok := canonical(byExt); ok {
			return mt, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFileType, "%s is %s, not an image", fileName, sniffed)
}

func canonical(mt string) (string, bool) {
	if mt == "" {
		return "", false
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return "", false
	}
	c, ok := acceptedTypes[strings.ToLower(parsed)]
	return c, ok
}

func isGeneric(mt string) bool {
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return true
	}
	return parsed == "application/octet-stream"
}

// sniff detects the content type. http.DetectContentType knows about PNG,
// JPEG, BMP and WEBP, but BMP and WEBP are checked by magic as well, since
// they are the ones most often served with a generic type.
func sniff(head []byte) string {
	switch {
	case len(head) >= 2 && head[0] == 'B' && head[1] == 'M':
		return "image/bmp"
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return "image/webp"
	}
	return http.DetectContentType(head)
}

// Load reads an upload, checks its type and decodes it.
//
// mimeType is the declared type of the upload and may be empty.
func Load(r io.Reader, fileName, mimeType string) (*SourceImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", fileName)
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mt, err := CheckType(mimeType, fileName, head)
	if err != nil {
		glog.Errorf("rejected upload %q: %v", fileName, err)
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		glog.Errorf("could not decode %q (%s): %v", fileName, mt, err)
		return nil, errors.Wrapf(ErrDecode, "%s: %v", fileName, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrDecode, "%s: empty image", fileName)
	}

	src := &SourceImage{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Image:    img,
		BaseName: BaseName(fileName),
		Format:   format,
	}
	glog.Infof("loaded %q: %dx%d %s", fileName, src.Width, src.Height, format)
	return src, nil
}
