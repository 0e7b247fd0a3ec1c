// Package web serves the sprite splitter over HTTP: upload a sheet, tune the
// split, look at the overlay preview and download the frames as a zip.
package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/net/trace"

	"badc0de.net/pkg/spritesplit/archive"
	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/loader"
	"badc0de.net/pkg/spritesplit/session"
)

// SkippedHeader lists the frames an export left out, comma separated.
const SkippedHeader = "X-Spritesplit-Skipped"

// DefaultMaxUploadBytes is used when NewHandler is passed zero.
const DefaultMaxUploadBytes = 32 << 20

type Handler struct {
	s              *session.Session
	maxUploadBytes int64
}

// NewHandler constructs a web handler operating on the passed session.
func NewHandler(s *session.Session, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{s: s, maxUploadBytes: maxUploadBytes}
}

type sheetJSON struct {
	Loaded   bool   `json:"loaded"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	BaseName string `json:"base_name,omitempty"`
	Format   string `json:"format,omitempty"`
	Prefix   string `json:"prefix"`
	Mode     string `json:"mode"`
}

type fieldErrorJSON struct {
	Field     string `json:"field"`
	Kind      string `json:"kind"`
	Remainder int    `json:"remainder,omitempty"`
	Message   string `json:"message"`
}

type planJSON struct {
	Mode          string           `json:"mode"`
	FrameWidth    int              `json:"frame_width"`
	FrameHeight   int              `json:"frame_height"`
	Rows          int              `json:"rows"`
	Cols          int              `json:"cols"`
	Total         int              `json:"total"`
	Valid         bool             `json:"valid"`
	Errors        []fieldErrorJSON `json:"errors,omitempty"`
	ExportEnabled bool             `json:"export_enabled"`
}

type previewJSON struct {
	DataURL string   `json:"data_url"`
	Plan    planJSON `json:"plan"`
}

func (h *Handler) sheetStatus() sheetJSON {
	st := h.s.Status()
	return sheetJSON{
		Loaded:   st.Loaded,
		Width:    st.Width,
		Height:   st.Height,
		BaseName: st.BaseName,
		Format:   st.Format,
		Prefix:   st.Prefix,
		Mode:     st.Spec.Mode.String(),
	}
}

func (h *Handler) plan(mode grid.Mode, res grid.Result) planJSON {
	p := planJSON{
		Mode:          mode.String(),
		FrameWidth:    res.FrameWidth,
		FrameHeight:   res.FrameHeight,
		Rows:          res.Rows,
		Cols:          res.Cols,
		Total:         res.Total(),
		Valid:         res.Valid(),
		ExportEnabled: h.s.CanExport(),
	}
	for _, fe := range res.Errors {
		p.Errors = append(p.Errors, fieldErrorJSON{
			Field:     fe.Field,
			Kind:      string(fe.Kind),
			Remainder: fe.Remainder,
			Message:   fe.String(),
		})
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("writing json response: %v", err)
	}
}

// specFromQuery overlays the split parameters present in q on current.
// Parameters that are absent keep their current value; an empty value means
// "not entered".
func specFromQuery(q url.Values, current grid.Spec) (grid.Spec, bool, error) {
	spec := current
	changed := false
	if _, ok := q["mode"]; ok {
		m, err := grid.ParseMode(q.Get("mode"))
		if err != nil {
			return spec, false, err
		}
		spec.Mode = m
		changed = true
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{grid.FieldFrameWidth, &spec.FrameWidth},
		{grid.FieldFrameHeight, &spec.FrameHeight},
		{grid.FieldRows, &spec.Rows},
		{grid.FieldCols, &spec.Cols},
	} {
		vs, ok := q[f.name]
		if !ok {
			continue
		}
		changed = true
		v := strings.TrimSpace(vs[0])
		if v == "" {
			*f.dst = 0
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return spec, false, fmt.Errorf("%s not a number", f.name)
		}
		*f.dst = n
	}
	return spec, changed, nil
}

// applySpec stores the split parameters from the request's query in the
// session and returns the resulting mode.
func (h *Handler) applySpec(w http.ResponseWriter, r *http.Request) (grid.Mode, bool) {
	current := h.s.Status().Spec
	spec, changed, err := specFromQuery(r.URL.Query(), current)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return current.Mode, false
	}
	if changed {
		h.s.SetSpec(spec)
	}
	return spec.Mode, true
}

func (h *Handler) getSheetHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sheetStatus())
}

func (h *Handler) postSheetHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("spritesplit.Load", r.URL.Path)
	defer tr.Finish()

	if r.ContentLength > h.maxUploadBytes {
		tr.LazyPrintf("upload of %d bytes refused", r.ContentLength)
		tr.SetError()
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		tr.LazyPrintf("no upload: %v", err)
		tr.SetError()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "expected a multipart upload in field \"file\"", http.StatusBadRequest)
		return
	}
	defer f.Close()
	tr.LazyPrintf("upload %q, %d bytes, %s", hdr.Filename, hdr.Size, hdr.Header.Get("Content-Type"))

	if _, err := h.s.Load(f, hdr.Filename, hdr.Header.Get("Content-Type")); err != nil {
		tr.LazyPrintf("load failed: %v", err)
		tr.SetError()
		switch errors.Cause(err) {
		case loader.ErrUnsupportedFileType:
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		case loader.ErrDecode:
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, h.sheetStatus())
}

func (h *Handler) deleteSheetHandler(w http.ResponseWriter, r *http.Request) {
	h.s.Remove()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) prefixHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := r.PostForm["prefix"]; !ok {
		http.Error(w, "missing prefix", http.StatusBadRequest)
		return
	}
	h.s.SetPrefix(r.PostForm.Get("prefix"))
	writeJSON(w, http.StatusOK, h.sheetStatus())
}

func (h *Handler) planHandler(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.applySpec(w, r)
	if !ok {
		return
	}
	res, err := h.s.Plan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.plan(mode, res))
}

func (h *Handler) previewPNGHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.applySpec(w, r); !ok {
		return
	}

	p, err := h.s.Preview()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	generation := 1 // bump if the way we generate it changes
	mimeType := "image/png"
	etag := fmt.Sprintf(`W/"preview:%d:%d:%s:%d.%d.%d.%d:%s"`, generation, p.Revision, p.Spec.Mode, p.Spec.FrameWidth, p.Spec.FrameHeight, p.Spec.Rows, p.Spec.Cols, mimeType)
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("Cache-Control", "private; max-age=3600")
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private; max-age=3600")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	png.Encode(w, p.Render())
}

func (h *Handler) previewHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.applySpec(w, r); !ok {
		return
	}
	p, err := h.s.Preview()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, p.Render()); err != nil {
		http.Error(w, "preview could not be encoded", http.StatusInternalServerError)
		return
	}
	du, err := dataurl.New(buf.Bytes(), "image/png").MarshalText()
	if err != nil {
		http.Error(w, "preview could not be encoded", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, previewJSON{DataURL: string(du), Plan: h.plan(p.Spec.Mode, p.Result)})
}

func (h *Handler) exportHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.applySpec(w, r); !ok {
		return
	}

	tr := trace.New("spritesplit.Export", r.URL.Path)
	defer tr.Finish()
	ctx := trace.NewContext(r.Context(), tr)

	exp, err := h.s.Export(ctx)
	if err != nil {
		tr.LazyPrintf("export failed: %v", err)
		tr.SetError()
		switch {
		case err == session.ErrExportInProgress:
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Cause(err) == session.ErrNoImage, grid.IsValidationError(err):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Cause(err) == archive.ErrPack:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			glog.Errorf("export: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	tr.LazyPrintf("%s: %d frames (%s), %d skipped", exp.Name, exp.Frames, exp.Layout, len(exp.Skipped))

	if len(exp.Skipped) > 0 {
		var names []string
		for _, s := range exp.Skipped {
			names = append(names, s.FileName)
		}
		w.Header().Set(SkippedHeader, strings.Join(names, ","))
	}
	w.Header().Set("Content-Type", archive.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sheet", h.getSheetHandler).Methods(http.MethodGet)
	r.HandleFunc("/sheet", h.postSheetHandler).Methods(http.MethodPost)
	r.HandleFunc("/sheet", h.deleteSheetHandler).Methods(http.MethodDelete)
	r.HandleFunc("/prefix", h.prefixHandler).Methods(http.MethodPut)
	r.HandleFunc("/plan", h.planHandler).Methods(http.MethodGet)
	r.HandleFunc("/preview.png", h.previewPNGHandler).Methods(http.MethodGet)
	r.HandleFunc("/preview", h.previewHandler).Methods(http.MethodGet)
	r.HandleFunc("/export", h.exportHandler).Methods(http.MethodPost)
}
