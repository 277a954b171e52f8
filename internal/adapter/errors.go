package adapter

import "errors"

var (
	// ErrUnauthorized is returned when the server rejects the bearer token.
	// The auth collaborator must refresh the session before retrying.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrEmptyResponse is returned when the server answers 2xx but the body
	// cannot be decoded into the expected response shape.
	ErrEmptyResponse = errors.New("server response was empty or malformed")
)
