package fetch

import (
	"errors"
	"fmt"
)

// ErrRobotsDisallowed is returned when the site's robots.txt forbids
// crawling the listing path for our User-Agent.
var ErrRobotsDisallowed = errors.New("crawl disallowed by robots.txt")

// FetchError is the terminal failure of a fetch, after classification and
// any retries. It carries enough context for the run report: which URL,
// the last HTTP status seen (0 for transport failures), and how many
// attempts were made.
type FetchError struct {
	// URL is the URL that failed.
	URL string

	// LastStatus is the HTTP status of the final attempt.
	// Zero when the failure happened below the HTTP layer.
	LastStatus int

	// Attempts is the number of attempts made, including the first.
	Attempts int

	// Err is the error of the final attempt.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.LastStatus, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

// Unwrap returns the final attempt's error for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the terminal cause was a transient condition.
// True means the retries were exhausted on something that might clear, like
// a 5xx streak; false means the first attempt already settled it, like a 404.
func (e *FetchError) Transient() bool {
	return transient(e.LastStatus, e.Err)
}
