package imports

import "errors"

// Sentinel errors for the imports service layer.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidFile = errors.New("file failed validation")
	ErrNoClient    = errors.New("client id is required")
)
