// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"errors"
	"fmt"
)

// Common errors returned by the scholar client.
var (
	// ErrRemote indicates the search host answered with an unexpected status.
	ErrRemote = errors.New("unexpected response from search host")

	// ErrParse indicates expected markup was absent from a fetched page.
	ErrParse = errors.New("unexpected page structure")

	// ErrChallengeFailed indicates a fetch hit more verification challenges
	// than the configured bound allows.
	ErrChallengeFailed = errors.New("verification challenge not resolved")

	// ErrNoDetailRef indicates Fill was called on a publication without an
	// "Import into BibTeX" link.
	ErrNoDetailRef = errors.New("publication has no detail reference")

	// ErrDetached indicates a publication was not produced by a Client, for
	// example one decoded from JSON, and cannot fetch anything.
	ErrDetached = errors.New("publication is not attached to a client")
)

// RemoteError represents a non-200, non-503 answer from the search host.
type RemoteError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "404 Not Found"
	Path       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("search host returned HTTP %d (%s) for %s", e.StatusCode, e.Status, e.Path)
}

// Is reports whether target is ErrRemote.
func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// ParseError reports a missing or malformed piece of markup. The current
// extraction is tied to the remote layout; when the layout changes this is
// the error callers see.
type ParseError struct {
	What   string // which element or pattern was expected
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("parse: %s not found", e.What)
	}
	return fmt.Sprintf("parse: %s: %s", e.What, e.Detail)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func parseErr(what, detail string) error {
	return &ParseError{What: what, Detail: detail}
}

// IsRemote returns true if err carries an unexpected HTTP status.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}

// IsParse returns true if err was caused by missing markup.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}
