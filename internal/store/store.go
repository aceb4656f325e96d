package store

import (
	"errors"

	"bookcatalog/pkg/domain"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrReviewNotFound = errors.New("review not found")
)

// Store defines persistence operations for the catalog and the user
// directory. The default implementation is in-memory; a GORM-backed
// implementation can be swapped in without touching the application logic.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUser(username string) (bool, error)
	GetUser(username string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)

	// catalog
	SaveBook(domain.Book) error
	GetBook(isbn string) (domain.Book, bool, error)
	ListBooks() ([]domain.Book, error)
	BookCount() (int, error)

	// reviews, keyed by (isbn, username); upsert reports insert vs overwrite
	UpsertReview(isbn, username, text string) (domain.ReviewOutcome, error)
	DeleteReview(isbn, username string) error
}

// SessionStore binds opaque session IDs to usernames.
type SessionStore interface {
	NewSession(username string) (string, error)
	GetUsernameBySession(id string) (string, bool, error)
	DeleteSession(id string) error
}
