package record

import "errors"

// ErrMalformedRecord indicates a persisted record could not be decoded into
// a tracking.Solution: an unknown assignment_type, or a type/shape mismatch
// the underlying encoding/json decoder rejected. Never silently coerced.
var ErrMalformedRecord = errors.New("record: malformed persisted record")
