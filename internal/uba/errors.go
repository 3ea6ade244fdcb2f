package uba

import "errors"

var (
	// ErrEmptyBody marks a response that arrived with no payload at all.
	ErrEmptyBody = errors.New("empty response body")

	// ErrMalformedPayload marks a body that is not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrDecode marks a JSON object whose structure does not match the API shape.
	ErrDecode = errors.New("payload decode failed")
)
