package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bookcatalog/internal/store"
	"bookcatalog/internal/token"
	"bookcatalog/pkg/domain"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	isbnPattern     = regexp.MustCompile(`^\d{1,9}$`)
	// 1-3 whitespace-separated word tokens, each up to 30 chars, optional
	// trailing period per token.
	authorPattern = regexp.MustCompile(`^(\w{1,30}\.?\s+){0,2}\w{1,30}\.?$`)
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	TokenSecret string
	TokenTTL    time.Duration
	// LookupDelayMax bounds the simulated backing-store latency on catalog
	// lookups and the user listing. Zero disables the delay.
	LookupDelayMax time.Duration
	Store          store.Store
	Tokens         *token.Issuer
}

// App wires the user directory, the catalog, and the review manager.
type App struct {
	store    store.Store
	tokens   *token.Issuer
	delayMax time.Duration
}

// New constructs the application. The store defaults to in-memory unless a
// database URL is configured; an empty catalog is seeded with the classics.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL != "" {
			gs, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			dataStore = gs
		} else {
			dataStore = store.NewMemoryStore()
		}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		if strings.TrimSpace(cfg.TokenSecret) == "" {
			return nil, fmt.Errorf("token secret is required")
		}
		tokens = token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL)
	}
	a := &App{
		store:    dataStore,
		tokens:   tokens,
		delayMax: cfg.LookupDelayMax,
	}
	if err := a.seedCatalog(); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return a, nil
}

// Tokens exposes the issuer so the HTTP layer can verify bearer tokens.
func (a *App) Tokens() *token.Issuer {
	return a.tokens
}

// IsValidUsername reports whether the name is non-empty alphanumeric.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidISBN reports whether the identifier is a bounded digit string.
func IsValidISBN(isbn string) bool {
	return isbnPattern.MatchString(isbn)
}

// Register stores a new credential pair. Usernames are validated and unique;
// passwords are stored hashed.
func (a *App) Register(username, password string) error {
	if !IsValidUsername(username) {
		return ErrInvalidUsername
	}
	exists, err := a.store.HasUser(username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return ErrDuplicateUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Login validates credentials and issues a signed bearer token.
func (a *App) Login(username, password string) (string, error) {
	user, ok, err := a.store.GetUser(username)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	tok, err := a.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

// ListUsers is a diagnostic export of the user directory.
func (a *App) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := a.simulateLatency(ctx); err != nil {
		return nil, err
	}
	return a.store.ListUsers()
}

// AllBooks returns the catalog.
func (a *App) AllBooks(ctx context.Context) ([]domain.Book, error) {
	if err := a.simulateLatency(ctx); err != nil {
		return nil, err
	}
	return a.store.ListBooks()
}

// BookByISBN looks up a single catalog entry.
func (a *App) BookByISBN(ctx context.Context, isbn string) (domain.Book, error) {
	if !IsValidISBN(isbn) {
		return domain.Book{}, ErrInvalidISBN
	}
	if err := a.simulateLatency(ctx); err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.GetBook(isbn)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// BooksByAuthor returns catalog entries whose author contains the query,
// case-insensitively. An empty result is not an error.
func (a *App) BooksByAuthor(ctx context.Context, author string) ([]domain.Book, error) {
	if !authorPattern.MatchString(author) {
		return nil, ErrInvalidAuthor
	}
	if err := a.simulateLatency(ctx); err != nil {
		return nil, err
	}
	books, err := a.store.ListBooks()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(author)
	matches := make([]domain.Book, 0)
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Author), needle) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}

// BooksByTitle returns catalog entries whose title contains the query,
// case-insensitively. No match is an error.
func (a *App) BooksByTitle(ctx context.Context, title string) ([]domain.Book, error) {
	if err := a.simulateLatency(ctx); err != nil {
		return nil, err
	}
	books, err := a.store.ListBooks()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(title)
	matches := make([]domain.Book, 0)
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), needle) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNoTitleMatch
	}
	return matches, nil
}

// Reviews returns the reviewer->text map for a catalog entry.
func (a *App) Reviews(ctx context.Context, isbn string) (map[string]string, error) {
	if err := a.simulateLatency(ctx); err != nil {
		return nil, err
	}
	book, ok, err := a.store.GetBook(isbn)
	if err != nil {
		return nil, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return nil, ErrBookNotFound
	}
	return book.Reviews, nil
}

// UpsertReview writes the review for (isbn, username). Writing over an
// existing review is an update, not a duplicate; last write wins.
func (a *App) UpsertReview(ctx context.Context, isbn, username, text string) (domain.ReviewOutcome, error) {
	if strings.TrimSpace(username) == "" {
		return "", ErrUserRequired
	}
	if !IsValidISBN(isbn) {
		return "", ErrInvalidISBN
	}
	if err := a.simulateLatency(ctx); err != nil {
		return "", err
	}
	outcome, err := a.store.UpsertReview(isbn, username, text)
	if errors.Is(err, store.ErrBookNotFound) {
		return "", ErrBookNotFound
	}
	if err != nil {
		return "", fmt.Errorf("upsert review: %w", err)
	}
	return outcome, nil
}

// DeleteReview removes the review for (isbn, username).
func (a *App) DeleteReview(ctx context.Context, isbn, username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUserRequired
	}
	if !IsValidISBN(isbn) {
		return ErrInvalidISBN
	}
	if err := a.simulateLatency(ctx); err != nil {
		return err
	}
	err := a.store.DeleteReview(isbn, username)
	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return ErrBookNotFound
	case errors.Is(err, store.ErrReviewNotFound):
		return ErrReviewNotFound
	case err != nil:
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// simulateLatency stands in for a future external data dependency. The
// store access itself is never split across the delay, so no torn state.
func (a *App) simulateLatency(ctx context.Context) error {
	if a.delayMax <= 0 {
		return nil
	}
	select {
	case <-time.After(rand.N(a.delayMax)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
