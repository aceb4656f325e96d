package app

import "errors"

// Messages are user-facing and returned verbatim in JSON error bodies.
var (
	ErrInvalidUsername = errors.New("Invalid username")
	ErrDuplicateUser   = errors.New("Username already exists")

	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords, so responses do not enable account enumeration.
	ErrInvalidCredentials = errors.New("Invalid username or password")

	ErrUserRequired   = errors.New("User ID is required")
	ErrInvalidISBN    = errors.New("Invalid ISBN format")
	ErrBookNotFound   = errors.New("Book not found")
	ErrReviewNotFound = errors.New("Review not found")
	ErrInvalidAuthor  = errors.New("Invalid author format")
	ErrNoTitleMatch   = errors.New("No books found with this title")
)
