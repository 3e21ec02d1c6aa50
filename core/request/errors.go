package request

import "errors"

var (
	// ErrReadBody is returned when the request body cannot be read.
	ErrReadBody = errors.New("request: failed to read body")
	// ErrMalformedBody is recorded in Request.BodyErr when the payload does
	// not match its content type. It never fails FromHTTP.
	ErrMalformedBody = errors.New("request: malformed body")
)
