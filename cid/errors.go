package cid

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

var (
	ErrInvalidPrefix = errors.New("cid: prefix must be non-empty lowercase printable ASCII")

	errNotBech32m = errors.New("checksum is not bech32m")
)

// Reason classifies a bech32m decode failure.
type Reason string

const (
	ReasonChecksum  Reason = "checksum"
	ReasonCharset   Reason = "charset"
	ReasonMixedCase Reason = "mixed-case"
	ReasonLength    Reason = "length"
	ReasonSeparator Reason = "separator"
	ReasonPadding   Reason = "padding"
)

// DecodeError reports why a string is not a valid CID.
type DecodeError struct {
	Reason Reason
	Input  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cid: invalid bech32m (%s) %q: %v", e.Reason, e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsReason reports whether err is a *DecodeError with the given reason.
func IsReason(err error, reason Reason) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Reason == reason
}

func classify(input string, err error) error {
	reason := ReasonChecksum
	switch err.(type) {
	case bech32.ErrMixedCase:
		reason = ReasonMixedCase
	case bech32.ErrInvalidCharacter, bech32.ErrNonCharsetChar, bech32.ErrInvalidDataByte:
		reason = ReasonCharset
	case bech32.ErrInvalidLength:
		reason = ReasonLength
	case bech32.ErrInvalidSeparatorIndex:
		reason = ReasonSeparator
	case bech32.ErrInvalidIncompleteGroup, bech32.ErrInvalidBitGroups:
		reason = ReasonPadding
	case bech32.ErrInvalidChecksum:
		reason = ReasonChecksum
	}
	return &DecodeError{Reason: reason, Input: input, Err: err}
}
