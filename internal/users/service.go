package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-manager/internal/observability/metrics"
	"github.com/wolfman30/lead-manager/internal/tenancy"
	"github.com/wolfman30/lead-manager/internal/validation"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

var usersTracer = otel.Tracer("leadmanager/users")

const msgBadCredentials = "Unable to log in with provided credentials."

// Service implements registration, login and token lifecycle.
type Service struct {
	repo      Repository
	hasher    PasswordHasher
	tokens    *TokenIssuer
	blacklist Blacklist
	metrics   *metrics.LeadMetrics
	logger    *logging.Logger
}

// NewService creates an identity service.
func NewService(repo Repository, hasher PasswordHasher, tokens *TokenIssuer, blacklist Blacklist, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		blacklist: blacklist,
		metrics:   m,
		logger:    logger,
	}
}

// Register creates an account and returns it with a fresh token pair.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (result *AuthResult, err error) {
	ctx, span := usersTracer.Start(ctx, "users.register")
	defer span.End()
	defer func() { s.metrics.ObserveAuth("register", err == nil) }()

	errs := req.Validate()
	if !errs.Empty() {
		return nil, validation.NewError("Registration failed", errs)
	}
	user := &User{
		Username:  strings.TrimSpace(*req.Username),
		Email:     strings.TrimSpace(*req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := s.checkUnique(ctx, user, errs); err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, validation.NewError("Registration failed", errs)
	}

	user.PasswordHash, err = s.hasher.Hash(*req.Password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, uniqueToValidation("Registration failed", err)
	}
	span.SetAttributes(attribute.Int64("user.id", created.ID))

	pair, err := s.tokens.IssuePair(created)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", created.ID, "username", created.Username)
	return &AuthResult{User: created.View(), TokenPair: pair}, nil
}

// Login verifies credentials. Failures never reveal which field was wrong.
func (s *Service) Login(ctx context.Context, req LoginRequest) (result *AuthResult, err error) {
	ctx, span := usersTracer.Start(ctx, "users.login")
	defer span.End()
	defer func() { s.metrics.ObserveAuth("login", err == nil) }()

	if errs := req.Validate(); !errs.Empty() {
		return nil, validation.NewError("Login failed", errs)
	}

	var user *User
	if username := strings.TrimSpace(req.Username); username != "" {
		user, err = s.repo.GetByUsername(ctx, username)
	} else {
		user, err = s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, badCredentials()
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, badCredentials()
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.View(), TokenPair: pair}, nil
}

// Logout blacklists refreshToken. An empty token is a successful no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := usersTracer.Start(ctx, "users.logout")
	defer span.End()
	defer func() { s.metrics.ObserveAuth("logout", err == nil) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.logger.Info("refresh token revoked", "user_id", claims.UserID)
	return nil
}

// Refresh exchanges a valid, unrevoked refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (access string, err error) {
	ctx, span := usersTracer.Start(ctx, "users.refresh")
	defer span.End()
	defer func() { s.metrics.ObserveAuth("refresh", err == nil) }()

	claims, err := s.tokens.Parse(strings.TrimSpace(refreshToken), TokenRefresh)
	if err != nil {
		return "", err
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenBlacklisted
	}
	return s.tokens.IssueAccess(claims)
}

// Authenticate resolves a bearer access token to its owner.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (tenancy.Owner, error) {
	ctx, span := usersTracer.Start(ctx, "users.authenticate")
	defer span.End()

	claims, err := s.tokens.Parse(accessToken, TokenAccess)
	if err != nil {
		return tenancy.Owner{}, err
	}
	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return tenancy.Owner{}, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
		}
		return tenancy.Owner{}, err
	}
	return tenancy.Owner{ID: user.ID, Username: user.Username}, nil
}

// Profile returns the user with id.
func (s *Service) Profile(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies in to the user. PUT (partial=false) requires
// username and email.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput, partial bool) (*User, error) {
	ctx, span := usersTracer.Start(ctx, "users.update_profile")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", id), attribute.Bool("partial", partial))

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	errs := in.Validate(partial)
	if !errs.Empty() {
		return nil, validation.NewError("Profile update failed", errs)
	}
	in.apply(user)
	if err := s.checkUnique(ctx, user, errs); err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, validation.NewError("Profile update failed", errs)
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, uniqueToValidation("Profile update failed", err)
	}
	s.logger.Info("profile updated", "user_id", id)
	return updated, nil
}

// ChangePassword verifies the current password and stores a hash of the new one.
// Issued tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) (err error) {
	ctx, span := usersTracer.Start(ctx, "users.change_password")
	defer span.End()
	defer func() { s.metrics.ObserveAuth("change_password", err == nil) }()

	if req.OldPassword == "" || req.NewPassword == "" {
		errs := validation.Errors{"old_password": {}, "new_password": {}}
		if req.OldPassword == "" {
			errs.Add("old_password", validation.MsgRequired)
		}
		if req.NewPassword == "" {
			errs.Add("new_password", validation.MsgRequired)
		}
		return validation.NewError("Both old and new passwords are required", errs)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.OldPassword); err != nil {
		return validation.NewError("Current password is incorrect", validation.Errors{
			"old_password": {"Current password is incorrect."},
		})
	}
	if len(req.NewPassword) < minPasswordLength {
		return validation.NewError("New password must be at least 8 characters long", validation.Errors{
			"new_password": {"Password must be at least 8 characters long."},
		})
	}
	if len(req.NewPassword) > maxPasswordBytes {
		return validation.NewError("New password is too long", validation.Errors{
			"new_password": {msgPasswordTooLong},
		})
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", id)
	return nil
}

// checkUnique records uniqueness failures for user's username and email in errs.
func (s *Service) checkUnique(ctx context.Context, user *User, errs validation.Errors) error {
	taken, err := s.repo.UsernameTaken(ctx, user.Username, user.ID)
	if err != nil {
		return err
	}
	if taken {
		errs.Add("username", msgUsernameTaken)
	}
	taken, err = s.repo.EmailTaken(ctx, user.Email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		errs.Add("email", msgEmailTaken)
	}
	return nil
}

// uniqueToValidation converts a lost uniqueness race into the same field
// error the pre-check would have produced.
func uniqueToValidation(message string, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return validation.NewError(message, validation.Errors{"username": {msgUsernameTaken}})
	case errors.Is(err, ErrDuplicateEmail):
		return validation.NewError(message, validation.Errors{"email": {msgEmailTaken}})
	}
	return err
}

func badCredentials() error {
	return validation.NewError("Login failed", validation.Errors{
		validation.NonFieldErrors: {msgBadCredentials},
	})
}
