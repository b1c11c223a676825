package users

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims represents JWT token claims.
type Claims struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer instance.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair returns a fresh access/refresh pair for u.
func (t *TokenIssuer) IssuePair(u *User) (TokenPair, error) {
	access, err := t.generate(u.ID, u.Username, TokenAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.generate(u.ID, u.Username, TokenRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess returns a new access token for the subject of claims.
func (t *TokenIssuer) IssueAccess(claims *Claims) (string, error) {
	return t.generate(claims.UserID, claims.Username, TokenAccess, t.accessTTL)
}

func (t *TokenIssuer) generate(userID int64, username string, typ TokenType, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("users: sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies signature, expiry and token type. Every failure wraps ErrInvalidToken.
func (t *TokenIssuer) Parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.TokenType)
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
