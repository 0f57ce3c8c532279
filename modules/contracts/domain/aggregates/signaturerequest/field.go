package signaturerequest

import "errors"

var (
	ErrFieldOffPage     = errors.New("signature field coordinates out of page bounds")
	ErrFieldEmptySize   = errors.New("signature field has no size")
	ErrFieldInvalidPage = errors.New("signature field page must be positive")
)

type FieldKind string

const (
	FieldSignature  FieldKind = "signature"
	FieldInitials   FieldKind = "initials"
	FieldDateSigned FieldKind = "date_signed"
)

// Field describes the placement of a single mark to be captured.
// Coordinates are fractions of the page, origin top-left. Read-mostly
// once the request is dispatched.
type Field struct {
	Kind     FieldKind
	Page     int
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Required bool
}

func (f Field) Validate() error {
	if f.Page < 1 {
		return ErrFieldInvalidPage
	}
	if f.Width <= 0 || f.Height <= 0 {
		return ErrFieldEmptySize
	}
	if f.X < 0 || f.Y < 0 || f.X+f.Width > 1 || f.Y+f.Height > 1 {
		return ErrFieldOffPage
	}
	return nil
}
