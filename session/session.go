// Package session holds the state of one sprite-splitting session: the
// loaded sheet, the split parameters and the naming prefix.
//
// Every setter replaces state wholesale. Export works on a snapshot taken
// when it starts, so loading a new sheet or changing parameters while an
// export is running does not affect that export. Only one export may run at a
// time.
package session

import (
	"context"
	"image"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"badc0de.net/pkg/spritesplit/archive"
	"badc0de.net/pkg/spritesplit/frames"
	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/loader"
	"badc0de.net/pkg/spritesplit/preview"
)

var (
	// ErrNoImage is returned by operations that need a loaded sheet. It is
	// the same value as loader.ErrNoImage, which frames.Export returns.
	ErrNoImage = loader.ErrNoImage
	// ErrExportInProgress is returned when an export is requested while
	// another one has not finished yet.
	ErrExportInProgress = errors.New("an export is already in progress")
)

// Session is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	src    *loader.SourceImage
	spec   grid.Spec
	prefix string
	// rev is bumped whenever the sheet is replaced or removed.
	rev uint64

	opts    frames.Options
	preview preview.Options

	exporting *semaphore.Weighted
}

// Options configures a new Session. A nil *Options is valid.
type Options struct {
	// Frames is passed to frames.Export.
	Frames frames.Options
	// Preview is passed to preview.Render.
	Preview preview.Options
	// Spec is the initial split mode and parameters.
	Spec grid.Spec
}

// New creates an empty session.
func New(o *Options) *Session {
	s := &Session{exporting: semaphore.NewWeighted(1)}
	if o != nil {
		s.opts = o.Frames
		s.preview = o.Preview
		s.spec = o.Spec
	}
	return s
}

// Status describes the session for display.
type Status struct {
	Loaded   bool
	Width    int
	Height   int
	BaseName string
	Format   string
	Prefix   string
	Spec     grid.Spec
	Revision uint64
}

// Status returns a description of the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Prefix: s.prefix, Spec: s.spec, Revision: s.rev}
	if s.src != nil {
		st.Loaded = true
		st.Width, st.Height = s.src.Width, s.src.Height
		st.BaseName, st.Format = s.src.BaseName, s.src.Format
	}
	return st
}

// Load decodes an upload and makes it the session's sheet.
//
// On success the previous sheet is replaced, the split parameters are
// cleared (the mode is kept) and the prefix is reset to the file's base name.
// On an unsupported type nothing changes. On a decode failure the session
// falls back to having no sheet.
func (s *Session) Load(r io.Reader, fileName, mimeType string) (*loader.SourceImage, error) {
	src, err := loader.Load(r, fileName, mimeType)
	if err != nil {
		if errors.Cause(err) == loader.ErrDecode {
			s.Remove()
		}
		return nil, err
	}
	s.SetImage(src)
	return src, nil
}

// SetImage replaces the sheet with an already decoded one, with the same
// effect on parameters and prefix as Load.
func (s *Session) SetImage(src *loader.SourceImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
	s.spec = grid.Spec{Mode: s.spec.Mode}
	s.prefix = src.BaseName
	s.rev++
}

// Remove drops the sheet and resets parameters and prefix.
func (s *Session) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = nil
	s.spec = grid.Spec{Mode: s.spec.Mode}
	s.prefix = ""
	s.rev++
}

// SetSpec replaces the split parameters.
func (s *Session) SetSpec(spec grid.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spec = spec
}

// SetPrefix replaces the naming prefix.
func (s *Session) SetPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefix = prefix
}

// Prefix returns the naming prefix.
func (s *Session) Prefix() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefix
}

// Image returns the loaded sheet, or nil.
func (s *Session) Image() *loader.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// Plan runs the grid planner on the current sheet and parameters.
func (s *Session) Plan() (grid.Result, error) {
	src, spec, _ := s.snapshot()
	if src == nil {
		return grid.Result{}, ErrNoImage
	}
	return grid.Plan(src.Width, src.Height, spec), nil
}

// CanExport reports whether an export would be allowed right now: a sheet is
// loaded, the parameters tile it exactly and no export is running.
func (s *Session) CanExport() bool {
	res, err := s.Plan()
	if err != nil || !res.Valid() {
		return false
	}
	if !s.exporting.TryAcquire(1) {
		return false
	}
	s.exporting.Release(1)
	return true
}

// Preview is the sheet and parameters captured by Session.Preview. Rendering
// it is unaffected by later changes to the session.
type Preview struct {
	// Revision and Spec identify what is rendered, e.g. for cache tags.
	Revision uint64
	Spec     grid.Spec
	Result   grid.Result

	src  *loader.SourceImage
	opts preview.Options
}

// Render draws the captured sheet with the captured layout overlaid.
func (p *Preview) Render() image.Image {
	return preview.Render(p.src.Image, p.Result.Layout, &p.opts)
}

// Preview captures the current sheet and parameters for rendering.
func (s *Session) Preview() (*Preview, error) {
	s.mu.Lock()
	p := &Preview{Revision: s.rev, Spec: s.spec, src: s.src, opts: s.preview}
	s.mu.Unlock()
	if p.src == nil {
		return nil, ErrNoImage
	}
	p.Result = grid.Plan(p.src.Width, p.src.Height, p.Spec)
	return p, nil
}

// Export is the outcome of Session.Export.
type Export struct {
	// Name is the archive's file name, "{prefix}.zip".
	Name string
	// Data is the zip archive.
	Data []byte
	// Frames is the number of frames in the archive.
	Frames int
	// Skipped lists frames that failed to encode and were left out.
	Skipped []*frames.EncodeError
	Layout  grid.Layout
}

// Export cuts the current sheet into frames and packs them into an archive.
//
// The sheet, parameters and prefix are read once when the export starts.
// Export fails with ErrExportInProgress if another export has not finished.
func (s *Session) Export(ctx context.Context) (*Export, error) {
	if !s.exporting.TryAcquire(1) {
		return nil, ErrExportInProgress
	}
	defer s.exporting.Release(1)

	src, spec, prefix := s.snapshot()
	if src == nil {
		return nil, ErrNoImage
	}
	res := grid.Plan(src.Width, src.Height, spec)
	if err := res.Err(); err != nil {
		return nil, err
	}

	fr, err := frames.Export(ctx, src, res.Layout, frames.Naming{Prefix: prefix}, &s.opts)
	if err != nil {
		return nil, err
	}
	data, err := archive.Pack(fr.Frames)
	if err != nil {
		return nil, err
	}

	exp := &Export{
		Name:    archive.Name(prefix),
		Data:    data,
		Frames:  len(fr.Frames),
		Skipped: fr.Failures,
		Layout:  res.Layout,
	}
	glog.Infof("export %s ready: %d frames, %d skipped, %d bytes", exp.Name, exp.Frames, len(exp.Skipped), len(data))
	return exp, nil
}

// snapshot copies the fields an operation needs under the lock. The
// SourceImage itself is immutable once loaded.
func (s *Session) snapshot() (*loader.SourceImage, grid.Spec, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src, s.spec, s.prefix
}
