package directory

import "errors"

// Domain errors for the directory package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, directory.ErrUnauthorized) {
//	    // re-authenticate
//	}
var (
	// ErrRequestFailed is returned when a directory call fails at the transport level.
	ErrRequestFailed = errors.New("directory: request failed")

	// ErrUnauthorized is returned when the directory rejects the credentials or token.
	ErrUnauthorized = errors.New("directory: unauthorised")

	// ErrNotFound is returned when the requested directory object does not exist.
	ErrNotFound = errors.New("directory: not found")

	// ErrBadResponse is returned when the directory returns an unexpected
	// status code or an undecodable body.
	ErrBadResponse = errors.New("directory: bad response")
)
