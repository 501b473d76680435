package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrBlacklistedToken = errors.New("token has been revoked")
)

type CustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens and keeps the logout
// blacklist until each revoked token would have expired anyway.
type TokenManager struct {
	secret []byte
	ttl    time.Duration

	mu          sync.RWMutex
	blacklisted map[string]time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		blacklisted: make(map[string]time.Time),
	}
}

func (m *TokenManager) GenerateToken(userID uint, email string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "wemarket",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) ParseToken(tokenString string) (*CustomClaims, error) {
	if m.IsBlacklisted(tokenString) {
		return nil, ErrBlacklistedToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Blacklist revokes a token. Unparseable tokens are kept for the full TTL.
func (m *TokenManager) Blacklist(tokenString string) {
	expiry := time.Now().Add(m.ttl)
	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err == nil && claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	m.blacklisted[tokenString] = expiry
	m.mu.Unlock()
}

func (m *TokenManager) IsBlacklisted(tokenString string) bool {
	m.mu.RLock()
	expiry, exists := m.blacklisted[tokenString]
	m.mu.RUnlock()
	if !exists {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}

	m.mu.Lock()
	delete(m.blacklisted, tokenString)
	m.mu.Unlock()
	return false
}

// PruneBlacklist drops revoked tokens that have expired.
func (m *TokenManager) PruneBlacklist() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, expiry := range m.blacklisted {
		if now.After(expiry) {
			delete(m.blacklisted, token)
			removed++
		}
	}
	return removed
}
