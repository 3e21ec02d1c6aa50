package securetoken

import "errors"

var (
	ErrTooShort      = errors.New("securetoken: length must be at least 16 bytes")
	ErrRandomFailure = errors.New("securetoken: random source failed")
)
