package envelope

import "strings"

// MaxMediaTypeLength is the longest media type a File header may carry.
const MaxMediaTypeLength = 127

// ValidateMediaType checks the File header grammar: 1..127 ASCII bytes,
// exactly one '/', with non-empty type and subtype, and no control
// characters, backslash or DEL.
func ValidateMediaType(mediaType string) error {
	if mediaType == "" {
		return &MediaTypeError{MediaType: mediaType, Reason: "empty"}
	}
	if len(mediaType) > MaxMediaTypeLength {
		return &MediaTypeError{MediaType: mediaType, Reason: "longer than 127 bytes"}
	}
	for i := 0; i < len(mediaType); i++ {
		switch ch := mediaType[i]; {
		case ch < 0x20:
			return &MediaTypeError{MediaType: mediaType, Reason: "contains a control character"}
		case ch == '\\':
			return &MediaTypeError{MediaType: mediaType, Reason: "contains a backslash"}
		case ch == 0x7f:
			return &MediaTypeError{MediaType: mediaType, Reason: "contains DEL"}
		case ch > 0x7f:
			return &MediaTypeError{MediaType: mediaType, Reason: "contains a non-ASCII byte"}
		}
	}
	if strings.Count(mediaType, "/") != 1 {
		return &MediaTypeError{MediaType: mediaType, Reason: "must contain exactly one '/'"}
	}
	typ, sub, _ := strings.Cut(mediaType, "/")
	if typ == "" {
		return &MediaTypeError{MediaType: mediaType, Reason: "must not start with '/'"}
	}
	if sub == "" {
		return &MediaTypeError{MediaType: mediaType, Reason: "empty subtype"}
	}
	return nil
}
