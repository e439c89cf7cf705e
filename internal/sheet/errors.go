package sheet

import (
	"errors"
	"fmt"
)

// Errors returned while retrieving or parsing a sheet.
//
// Check them with errors.Is; *FetchError matches ErrFetch.
var (
	// ErrFetch is matched by every *FetchError.
	ErrFetch = errors.New("failed to fetch data from any URL")

	// ErrNoData is returned when the export holds no rows beyond the header.
	ErrNoData = errors.New("no data found in the spreadsheet")

	// ErrBadStatus wraps a non-2xx export response.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrEmptyBody is returned for a 2xx export response with no body.
	ErrEmptyBody = errors.New("empty response body")
)

// Attempt records the outcome of one candidate URL.
type Attempt struct {
	URL    string
	Status int // 0 when no response arrived
	Err    error
}

// FetchError reports that every candidate URL failed.
type FetchError struct {
	DocumentID string
	Attempts   []Attempt
}

// Last returns the final attempt, or a zero Attempt when none was made.
func (e *FetchError) Last() Attempt {
	if len(e.Attempts) == 0 {
		return Attempt{}
	}
	return e.Attempts[len(e.Attempts)-1]
}

// LastStatus returns the HTTP status of the final attempt (0 if none).
func (e *FetchError) LastStatus() int {
	return e.Last().Status
}

func (e *FetchError) Error() string {
	last := e.Last()
	if last.Err == nil {
		return fmt.Sprintf("sheet %s: %v", e.DocumentID, ErrFetch)
	}
	return fmt.Sprintf("sheet %s: %v after %d attempts: %v", e.DocumentID, ErrFetch, len(e.Attempts), last.Err)
}

// Unwrap exposes the last underlying error.
func (e *FetchError) Unwrap() error {
	return e.Last().Err
}

// Is makes errors.Is(err, ErrFetch) true for any *FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
