package flow

import "errors"

// Request-time validation errors. Endpoints map these onto HTTP status
// codes; the broker never sees them.
var (
	// ErrNotFound covers both a missing book and an ownership mismatch.
	// The two cases are deliberately indistinguishable so callers cannot
	// probe for book ids belonging to other users.
	ErrNotFound = errors.New("book not found")

	// ErrConflict means the book's current status does not permit
	// starting a flow, or a concurrent start won the race.
	ErrConflict = errors.New("book not in an illustrable state")

	// ErrAlreadyCompleted is a Conflict with a more specific message:
	// the book is finished and must never be re-illustrated.
	ErrAlreadyCompleted = errors.New("book already illustrated")

	// ErrNoPages means the book is structurally unprocessable.
	ErrNoPages = errors.New("book has no pages")
)
