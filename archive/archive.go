// Package archive packs encoded frames into a single zip file.
package archive

import (
	"bytes"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"badc0de.net/pkg/spritesplit/frames"
)

// ErrPack is returned, wrapped, whenever the archive could not be produced.
// Packing is all-or-nothing: no partial archive is ever returned.
var ErrPack = errors.New("could not pack archive")

// PackError carries the reason an archive could not be packed. errors.Cause
// of a PackError is ErrPack.
type PackError struct {
	Err error
}

func (e *PackError) Error() string {
	return ErrPack.Error() + ": " + e.Err.Error()
}

// Cause returns ErrPack.
func (e *PackError) Cause() error {
	return ErrPack
}

// Unwrap returns the underlying failure.
func (e *PackError) Unwrap() error {
	return e.Err
}

// MIMEType is the content type of a packed archive.
const MIMEType = "application/zip"

// Name returns the archive's file name for the passed prefix.
func Name(prefix string) string {
	return prefix + ".zip"
}

// entries returns the frames to write, one per distinct file name.
//
// Names are unique for frames produced by a single export. Should two frames
// ever share a name, the later frame's data replaces the earlier one's, at
// the position of the earlier one.
func entries(fs []frames.Frame) []frames.Frame {
	out := make([]frames.Frame, 0, len(fs))
	seen := make(map[string]int, len(fs))
	for _, f := range fs {
		if i, ok := seen[f.FileName]; ok {
			glog.Warningf("archive: %s appears more than once; keeping the later one", f.FileName)
			out[i] = f
			continue
		}
		seen[f.FileName] = len(out)
		out = append(out, f)
	}
	return out
}

// Write writes the frames to w as a zip archive, in order.
//
// w may have received partial output if an error is returned; use Pack to get
// an all-or-nothing byte slice.
func Write(w io.Writer, fs []frames.Frame, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, f := range entries(fs) {
		hdr := &zip.FileHeader{
			Name:     f.FileName,
			Method:   zip.Deflate,
			Modified: modified,
		}
		ew, err := zw.CreateHeader(hdr)
		if err != nil {
			return errors.Wrapf(err, "creating %s", f.FileName)
		}
		if _, err := ew.Write(f.Data); err != nil {
			return errors.Wrapf(err, "writing %s", f.FileName)
		}
	}
	return errors.Wrap(zw.Close(), "finishing archive")
}

// Pack serializes the frames into an in-memory zip archive.
func Pack(fs []frames.Frame) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Write(buf, fs, time.Now()); err != nil {
		glog.Errorf("packing %d frames: %v", len(fs), err)
		return nil, &PackError{Err: err}
	}
	glog.Infof("packed %d frames into %d bytes", len(fs), buf.Len())
	return buf.Bytes(), nil
}

// List returns the names of the entries in a zip archive, in order.
func List(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "reading archive")
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// Extract returns the contents of every entry in a zip archive, keyed by
// name.
func Extract(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "reading archive")
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", f.Name)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f.Name)
		}
		out[f.Name] = b
	}
	return out, nil
}
