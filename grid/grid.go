// Package grid partitions a sprite sheet's pixel dimensions into a grid of
// equally sized frames.
//
// Plan is a pure function. It is meant to be called on every change of the
// image or of the split parameters; it keeps no state between calls.
//
// The layout is computed eagerly even when the parameters are incomplete or
// do not tile the image exactly, so that a frame-count hint and a preview
// overlay can be shown while the user is still typing. Whether the layout may
// be exported is decided by Result.Valid.
package grid

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how the split parameters are interpreted.
type Mode int

const (
	// BySize splits the image into frames of a fixed pixel size.
	BySize Mode = iota
	// ByCount splits the image into a fixed number of rows and columns.
	ByCount
)

func (m Mode) String() string {
	switch m {
	case BySize:
		return "size"
	case ByCount:
		return "count"
	}
	return "bad mode"
}

// ParseMode accepts "size" or "count".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "":
		return BySize, nil
	case "count":
		return ByCount, nil
	}
	return BySize, fmt.Errorf("unknown split mode %q; want size or count", s)
}

// Spec holds the split parameters as entered. Zero means "not entered".
//
// Only FrameWidth and FrameHeight are consulted in BySize mode, and only
// Rows and Cols in ByCount mode.
type Spec struct {
	Mode        Mode
	FrameWidth  int
	FrameHeight int
	Rows        int
	Cols        int
}

// SizeSpec is a shorthand for a BySize spec.
func SizeSpec(frameWidth, frameHeight int) Spec {
	return Spec{Mode: BySize, FrameWidth: frameWidth, FrameHeight: frameHeight}
}

// CountSpec is a shorthand for a ByCount spec.
func CountSpec(rows, cols int) Spec {
	return Spec{Mode: ByCount, Rows: rows, Cols: cols}
}

// Layout is the derived grid.
type Layout struct {
	FrameWidth  int
	FrameHeight int
	Rows        int
	Cols        int
}

// Total returns the number of frames in the layout.
func (l Layout) Total() int {
	return l.Rows * l.Cols
}

func (l Layout) String() string {
	return fmt.Sprintf("%dx%d frames of %dx%d px", l.Cols, l.Rows, l.FrameWidth, l.FrameHeight)
}

// Field names used in FieldError.
const (
	FieldImage       = "image"
	FieldFrameWidth  = "frame_width"
	FieldFrameHeight = "frame_height"
	FieldRows        = "rows"
	FieldCols        = "cols"
)

// ErrorKind classifies a FieldError.
type ErrorKind string

const (
	Missing      ErrorKind = "missing"
	NotPositive  ErrorKind = "not_positive"
	NotDivisible ErrorKind = "not_divisible"
)

// FieldError is an inline, per-field validation failure.
type FieldError struct {
	Field string    `json:"field"`
	Kind  ErrorKind `json:"kind"`
	// Remainder is the leftover pixel count for NotDivisible.
	Remainder int `json:"remainder,omitempty"`
}

func (e FieldError) String() string {
	switch e.Kind {
	case Missing:
		return e.Field + " is missing"
	case NotPositive:
		return e.Field + " must be a positive integer"
	case NotDivisible:
		return fmt.Sprintf("%s does not divide the image evenly (%d px left over)", e.Field, e.Remainder)
	}
	return e.Field + ": " + string(e.Kind)
}

// Result is the outcome of Plan.
type Result struct {
	Layout
	Errors []FieldError
}

// Valid reports whether the layout tiles the image exactly and may be
// exported.
func (r Result) Valid() bool {
	return len(r.Errors) == 0 && r.Rows > 0 && r.Cols > 0
}

// Err returns nil for a valid result, and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// ValidationError is the error form of an invalid Result, used on the
// export path.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "grid: invalid layout"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "grid: invalid layout: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// Plan maps image dimensions and split parameters onto a grid layout.
func Plan(width, height int, spec Spec) Result {
	var res Result

	if width <= 0 || height <= 0 {
		res.Errors = append(res.Errors, FieldError{Field: FieldImage, Kind: NotPositive})
		return res
	}

	// Divisors along each axis: the frame size in size mode, the count in
	// count mode.
	var colDiv, rowDiv int
	var colField, rowField string

	switch spec.Mode {
	case ByCount:
		colDiv, colField = spec.Cols, FieldCols
		rowDiv, rowField = spec.Rows, FieldRows
		if colDiv > 0 {
			res.Cols = colDiv
			res.FrameWidth = width / colDiv
		}
		if rowDiv > 0 {
			res.Rows = rowDiv
			res.FrameHeight = height / rowDiv
		}
	default:
		colDiv, colField = spec.FrameWidth, FieldFrameWidth
		rowDiv, rowField = spec.FrameHeight, FieldFrameHeight
		if colDiv > 0 {
			res.FrameWidth = colDiv
			res.Cols = width / colDiv
		}
		if rowDiv > 0 {
			res.FrameHeight = rowDiv
			res.Rows = height / rowDiv
		}
	}

	// A partial layout counts as zero frames.
	if colDiv <= 0 || rowDiv <= 0 {
		res.Rows, res.Cols = 0, 0
	}

	res.Errors = append(res.Errors, checkAxis(colField, colDiv, width)...)
	res.Errors = append(res.Errors, checkAxis(rowField, rowDiv, height)...)
	return res
}

func checkAxis(field string, div, extent int) []FieldError {
	switch {
	case div == 0:
		return []FieldError{{Field: field, Kind: Missing}}
	case div < 0:
		return []FieldError{{Field: field, Kind: NotPositive}}
	case extent%div != 0:
		return []FieldError{{Field: field, Kind: NotDivisible, Remainder: extent % div}}
	}
	return nil
}
