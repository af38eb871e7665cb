package obfuscate

import "errors"

// Failure kinds. Match them with errors.Is against any error returned by
// Encode or Decode.
var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrInvalidLength = errors.New("invalid length")
	ErrNonDigitCore  = errors.New("non-digit core")
	ErrNotPositive   = errors.New("not a positive integer")
)

// DecodeError describes why a token (or, for Encode, an id) was rejected.
type DecodeError struct {
	Kind  error
	Token string
}

func (e *DecodeError) Error() string {
	return "obfuscate: " + e.Kind.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}
