package users

import "errors"

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidCredentials is returned for a bad username/password pair.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInvalidToken covers malformed, expired, mis-signed or wrong-typed tokens.
	ErrInvalidToken = errors.New("users: invalid token")
	// ErrTokenBlacklisted is returned for a refresh token revoked by logout.
	ErrTokenBlacklisted = errors.New("users: token is blacklisted")

	// ErrDuplicateUsername is returned by repositories when the username is taken.
	ErrDuplicateUsername = errors.New("users: username already exists")
	// ErrDuplicateEmail is returned by repositories when the email is taken,
	// compared case-insensitively.
	ErrDuplicateEmail = errors.New("users: email already exists")
)
