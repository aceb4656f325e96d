package token

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMissing means no credential was supplied at all.
	ErrTokenMissing = errors.New("no token provided")
	// ErrTokenInvalid means a credential was supplied but failed
	// signature or expiry checks.
	ErrTokenInvalid = errors.New("failed to authenticate token")
)

// Claims binds a username to a time-limited bearer credential.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens with a process-wide HMAC secret
// loaded once at startup.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds a token issuer. TTL defaults to one hour.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed HS256 token carrying the username claim.
func (i *Issuer) Issue(username string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify validates signature and expiry and returns the embedded username.
func (i *Issuer) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrTokenMissing
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}
