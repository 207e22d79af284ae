package highway

import "errors"

var (
	// ErrInvalidKeyLength is returned for a non-empty key shorter than 32 bytes.
	ErrInvalidKeyLength = errors.New("highway: key must be empty or at least 32 bytes")
	// ErrInvalidKey is returned when a textual key is not hex.
	ErrInvalidKey = errors.New("highway: key is not hex")
	// ErrInvalidWidth is returned for a digest width other than 64, 128 or 256.
	ErrInvalidWidth = errors.New("highway: digest width must be 64, 128 or 256")
	// ErrSessionFinalized is returned when a session is used after Finalize.
	ErrSessionFinalized = errors.New("highway: session already finalized")
	// ErrDigestSize is returned when an output buffer does not match the width.
	ErrDigestSize = errors.New("highway: digest buffer size mismatch")
)
