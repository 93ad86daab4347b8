package store

import (
	"errors"
	"strings"
)

// Domain rule violations. Handlers map these onto HTTP status codes;
// everything else coming out of the store is an internal error.
var (
	// ErrNotFound marks a reference to a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSelfConversation is returned when a buyer tries to contact
	// themselves about their own listing.
	ErrSelfConversation = errors.New("cannot start a conversation about your own listing")

	// ErrNotParticipant is returned when a user who is neither buyer nor
	// seller touches a conversation.
	ErrNotParticipant = errors.New("not a participant in this conversation")

	// ErrEmptyBody is returned for empty or whitespace-only message bodies.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrSelfReview is returned when a seller reviews themselves.
	ErrSelfReview = errors.New("cannot review yourself")

	// ErrDuplicateReview is returned when a reviewer already reviewed the
	// seller. The existing review is kept untouched.
	ErrDuplicateReview = errors.New("seller already reviewed by this user")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidPrice is returned for negative prices or prices with more
	// than two decimal places.
	ErrInvalidPrice = errors.New("price must be non-negative with at most 2 decimal places")

	// ErrSlugTaken is returned when a category slug already exists.
	ErrSlugTaken = errors.New("category slug already exists")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The driver exposes constraint errors as plain errors, so this
// matches on the stable message prefix SQLite emits.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns free text into a substring LIKE pattern. LIKE
// metacharacters in the input are escaped so they match literally; the
// query must carry a matching ESCAPE '\' clause.
func likePattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
