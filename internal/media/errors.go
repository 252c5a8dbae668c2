package media

import "errors"

// ErrInvalidNameLength is returned when a track name does not fit the fixed
// wire width.
var ErrInvalidNameLength = errors.New("invalid track name length")
