package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidKeyword is returned when the shared keyword does not match.
	ErrInvalidKeyword = errors.New("invalid keyword")
	// ErrInvalidToken is returned for malformed, forged or expired unlock tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRateLimited is returned when a client tries the keyword too often.
	ErrRateLimited = errors.New("too many attempts")
)

const tokenSubject = "editor"

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Claims are carried by unlock tokens.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) GuardOption {
	return func(g *Guard) { g.cost = cost }
}

// WithRateLimiter limits keyword attempts per client.
func WithRateLimiter(rl *RateLimiter) GuardOption {
	return func(g *Guard) { g.limiter = rl }
}

// WithClock replaces time.Now for token timestamps.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// Guard protects mutating operations with a single shared keyword.
// Only the keyword's bcrypt hash is kept in memory.
type Guard struct {
	keywordHash string
	secret      []byte
	ttl         time.Duration
	cost        int
	limiter     *RateLimiter
	now         func() time.Time
}

// NewGuard hashes keyword and prepares HS256 token signing with secret.
func NewGuard(keyword, secret string, ttl time.Duration, opts ...GuardOption) (*Guard, error) {
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	g := &Guard{
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.ttl <= 0 {
		g.ttl = 12 * time.Hour
	}

	hash, err := HashPassword(keyword, g.cost)
	if err != nil {
		return nil, err
	}
	g.keywordHash = hash
	return g, nil
}

// CheckKeyword verifies keyword against the stored hash.
func (g *Guard) CheckKeyword(keyword string) error {
	if keyword == "" || !CheckPasswordHash(keyword, g.keywordHash) {
		return ErrInvalidKeyword
	}
	return nil
}

// Unlock exchanges a correct keyword for a signed token. client identifies the
// caller for rate limiting, typically the remote IP.
func (g *Guard) Unlock(client, keyword string) (string, time.Time, error) {
	if g.limiter != nil && !g.limiter.Allow(client) {
		return "", time.Time{}, ErrRateLimited
	}
	if err := g.CheckKeyword(keyword); err != nil {
		return "", time.Time{}, err
	}
	return g.IssueToken()
}

// IssueToken signs a new unlock token.
func (g *Guard) IssueToken() (string, time.Time, error) {
	now := g.now()
	expires := now.Add(g.ttl)
	claims := &Claims{
		Scope: tokenSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken checks signature, algorithm and expiry.
func (g *Guard) ValidateToken(tokenString string) error {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid || claims.Scope != tokenSubject {
		return ErrInvalidToken
	}
	return nil
}

// Authorize accepts either a valid bearer token or the keyword.
func (g *Guard) Authorize(keyword, bearer string) error {
	if bearer != "" {
		if err := g.ValidateToken(bearer); err == nil {
			return nil
		}
		if keyword == "" {
			return ErrInvalidToken
		}
	}
	return g.CheckKeyword(keyword)
}
