package costmodel

import "errors"

// ErrInvalidParameters indicates a Parameters value with inverted or
// non-positive ranges that no cost function can sensibly evaluate.
var ErrInvalidParameters = errors.New("costmodel: invalid parameters")
