package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookcatalog/internal/app"
	"bookcatalog/internal/ratelimit"
	"bookcatalog/internal/store"
	"bookcatalog/internal/util"
	"bookcatalog/pkg/domain"
)

// Non-standard auth status codes, preserved for client compatibility.
// 703 signals "no credential presented", 901 "credential presented but
// invalid or expired" — deliberately distinguishable from a generic 401.
const (
	statusNoTokenProvided = 703
	statusTokenInvalid    = 901
)

const sessionCookieName = "session_id"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	Sessions                   store.SessionStore
	RedisAddr                  string
	RedisPassword              string
	TrustedProxyCIDRs          []string
	LoginRateLimitPerMinute    int
	RegisterRateLimitPerMinute int
}

// Server exposes the public catalog and the protected review endpoints.
type Server struct {
	app             *app.App
	sessions        store.SessionStore
	mux             *http.ServeMux
	trustedProxies  *util.TrustedProxies
	loginLimiter    *ratelimit.Limiter
	registerLimiter *ratelimit.Limiter
}

// New constructs the server with routes configured. Rate limiting is only
// active when a redis address is configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("server requires a session store")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		sessions:       cfg.Sessions,
		mux:            http.NewServeMux(),
		trustedProxies: trusted,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		registerLimit := cfg.RegisterRateLimitPerMinute
		if registerLimit <= 0 {
			registerLimit = 5
		}
		s.loginLimiter, err = ratelimit.New(cfg.RedisAddr, cfg.RedisPassword,
			"bookcatalog:ratelimit:login", ratelimit.Quota{Limit: loginLimit, Window: time.Minute})
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
		s.registerLimiter, err = ratelimit.New(cfg.RedisAddr, cfg.RedisPassword,
			"bookcatalog:ratelimit:register", ratelimit.Quota{Limit: registerLimit, Window: time.Minute})
		if err != nil {
			return nil, fmt.Errorf("init register limiter: %w", err)
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// public catalog
	s.mux.HandleFunc("/catalog", s.handleCatalog)
	s.mux.HandleFunc("/catalog/isbn/", s.handleBookByISBN)
	s.mux.HandleFunc("/catalog/author/", s.handleBooksByAuthor)
	s.mux.HandleFunc("/catalog/title/", s.handleBooksByTitle)
	s.mux.HandleFunc("/catalog/review/", s.handleBookReviews)

	// accounts
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/test/users", s.handleListUsers)

	// review mutations, session-or-token gated
	s.mux.Handle("/protected/review/", s.protected(s.handleReview))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authedHandler receives the identity resolved by the auth gate.
type authedHandler func(http.ResponseWriter, *http.Request, string)

// protected is the per-request auth gate. An established session wins;
// otherwise the bearer token in the Authorization header is verified and,
// on success, promoted to a session so later calls skip verification.
func (s *Server) protected(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username, ok := s.sessionUser(r); ok {
			s.audit(r, "auth.session", "success", "user", username)
			next(w, r, username)
			return
		}
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if raw == "" {
			s.audit(r, "auth.token", "fail", "reason", "missing_token")
			writeError(w, statusNoTokenProvided, "No token provided.")
			return
		}
		// Tokens are accepted raw or with a Bearer prefix.
		username, err := s.app.Tokens().Verify(strings.TrimSpace(strings.TrimPrefix(raw, "Bearer ")))
		if err != nil {
			s.audit(r, "auth.token", "fail", "reason", "invalid_or_expired")
			writeError(w, statusTokenInvalid, fmt.Sprintf("Failed to authenticate token, due to %v", err))
			return
		}
		s.bindSession(w, username)
		s.audit(r, "auth.token", "success", "user", username)
		next(w, r, username)
	})
}

func (s *Server) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	username, ok, err := s.sessions.GetUsernameBySession(cookie.Value)
	if err != nil || !ok {
		return "", false
	}
	return username, true
}

// bindSession promotes a verified token identity to a session. Failure is
// tolerated: the request is already authenticated, only the shortcut for
// later requests is lost.
func (s *Server) bindSession(w http.ResponseWriter, username string) {
	id, err := s.sessions.NewSession(username)
	if err != nil {
		slog.Warn("bind session failed", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// account handlers

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		s.audit(r, "register", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.Register(req.Username, req.Password); err != nil {
		s.audit(r, "register", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "register", "success", "user", req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tok, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user", req.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful",
		"token":   tok,
	})
}

// handleListUsers is a diagnostic export of registered usernames.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// catalog handlers

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.AllBooks(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleBookByISBN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	isbn := pathParam(r, "/catalog/isbn/")
	book, err := s.app.BookByISBN(r.Context(), isbn)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleBooksByAuthor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	author := pathParam(r, "/catalog/author/")
	books, err := s.app.BooksByAuthor(r.Context(), author)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleBooksByTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	title := pathParam(r, "/catalog/title/")
	books, err := s.app.BooksByTitle(r.Context(), title)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleBookReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	isbn := pathParam(r, "/catalog/review/")
	reviews, err := s.app.Reviews(r.Context(), isbn)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// review mutations

type reviewRequest struct {
	Review string `json:"review"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, username string) {
	isbn := pathParam(r, "/protected/review/")
	switch r.Method {
	case http.MethodPut:
		var req reviewRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		outcome, err := s.app.UpsertReview(r.Context(), isbn, username, req.Review)
		if err != nil {
			writeAppError(w, err)
			return
		}
		// Created and updated are distinguishable so callers can tell
		// insert from overwrite.
		if outcome == domain.ReviewCreated {
			writeJSON(w, http.StatusCreated, map[string]string{"message": "Review added successfully"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Review updated successfully"})
	case http.MethodDelete:
		if err := s.app.DeleteReview(r.Context(), isbn, username); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Review deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

// helpers

func pathParam(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeAppError maps application errors to the service's status taxonomy:
// validation 400, bad credentials 401, missing resources 404.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidUsername),
		errors.Is(err, app.ErrDuplicateUser),
		errors.Is(err, app.ErrInvalidISBN),
		errors.Is(err, app.ErrUserRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrReviewNotFound),
		errors.Is(err, app.ErrInvalidAuthor),
		errors.Is(err, app.ErrNoTitleMatch):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	allowed, retryAfter := limiter.Allow(key)
	if allowed {
		return true
	}
	// Round up so the client never retries inside the blocked window.
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}
