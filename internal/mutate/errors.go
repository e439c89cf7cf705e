package mutate

import "errors"

// Sentinel errors carried in Result.Err when a configured endpoint fails.
// Dispatch never returns these; callers inspect the result and use errors.Is.
var (
	// ErrTransport indicates the request never produced a response.
	ErrTransport = errors.New("mutation endpoint unreachable")

	// ErrRemoteStatus indicates a non-2xx response.
	ErrRemoteStatus = errors.New("mutation endpoint returned an error status")

	// ErrRemoteRejected indicates a 2xx response reporting success=false.
	ErrRemoteRejected = errors.New("mutation endpoint rejected the change")

	// ErrMalformedResponse indicates a body that is not the expected object.
	ErrMalformedResponse = errors.New("mutation endpoint returned a malformed response")
)

// IsTransient reports whether a remote failure may succeed if retried later.
// Nothing in this package retries; the CLI uses it to word its warning.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRemoteStatus)
}
