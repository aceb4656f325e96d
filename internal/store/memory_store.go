package store

import (
	"sync"

	"bookcatalog/pkg/domain"
)

// MemoryStore keeps the catalog and user directory in-process. This is the
// reference deployment mode: a single process with no persistence across
// restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]domain.Book
	order []string // ISBNs in insertion order
	users map[string]domain.User
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]domain.Book),
		users: make(map[string]domain.User),
	}
}

// SaveUser stores a credential record. Usernames are unique keys; callers
// check existence first, a second save overwrites.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	return nil
}

// HasUser checks whether a username is registered.
func (m *MemoryStore) HasUser(username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[username]
	return ok, nil
}

// GetUser looks up a credential record by username.
func (m *MemoryStore) GetUser(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	return u, ok, nil
}

// ListUsers returns all registered users.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	return res, nil
}

// SaveBook stores or replaces a catalog entry and tracks insertion order.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ISBN]; !exists {
		m.order = append(m.order, b.ISBN)
	}
	if b.Reviews == nil {
		b.Reviews = make(map[string]string)
	}
	m.books[b.ISBN] = b
	return nil
}

// GetBook retrieves a catalog entry by ISBN.
func (m *MemoryStore) GetBook(isbn string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[isbn]
	if !ok {
		return domain.Book{}, false, nil
	}
	return copyBook(b), true, nil
}

// ListBooks returns the catalog in insertion order.
func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.order))
	for _, isbn := range m.order {
		if b, ok := m.books[isbn]; ok {
			res = append(res, copyBook(b))
		}
	}
	return res, nil
}

// BookCount returns the number of catalog entries.
func (m *MemoryStore) BookCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

// UpsertReview writes the review for (isbn, username), last write wins.
func (m *MemoryStore) UpsertReview(isbn, username, text string) (domain.ReviewOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return "", ErrBookNotFound
	}
	outcome := domain.ReviewCreated
	if _, exists := b.Reviews[username]; exists {
		outcome = domain.ReviewUpdated
	}
	b.Reviews[username] = text
	return outcome, nil
}

// DeleteReview removes the review for (isbn, username).
func (m *MemoryStore) DeleteReview(isbn, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return ErrBookNotFound
	}
	if _, exists := b.Reviews[username]; !exists {
		return ErrReviewNotFound
	}
	delete(b.Reviews, username)
	return nil
}

// copyBook snapshots the reviews map so callers never alias store state.
func copyBook(b domain.Book) domain.Book {
	reviews := make(map[string]string, len(b.Reviews))
	for user, text := range b.Reviews {
		reviews[user] = text
	}
	b.Reviews = reviews
	return b
}
