package envelope

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTerminator = errors.New("envelope: missing NUL terminator")
	ErrLengthOutOfRange  = errors.New("envelope: length out of range")
	ErrInvalidMediaType  = errors.New("envelope: invalid media type")
	ErrMediaTypeRequired = errors.New("envelope: media type required")
	ErrInvalidWrapType   = errors.New("envelope: invalid wrap type")
)

// MediaTypeError describes a media-type grammar violation.
type MediaTypeError struct {
	MediaType string
	Reason    string
}

func (e *MediaTypeError) Error() string {
	return fmt.Sprintf("envelope: invalid media type %q: %s", e.MediaType, e.Reason)
}

func (e *MediaTypeError) Unwrap() error { return ErrInvalidMediaType }
