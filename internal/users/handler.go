package users

import (
	"errors"
	"net/http"

	"github.com/wolfman30/lead-manager/internal/http/envelope"
	"github.com/wolfman30/lead-manager/internal/tenancy"
	"github.com/wolfman30/lead-manager/internal/validation"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

// Handler serves the /auth endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new auth handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// refreshBody accepts both key spellings used by clients.
type refreshBody struct {
	Refresh      string `json:"refresh"`
	RefreshToken string `json:"refresh_token"`
}

func (b refreshBody) token() string {
	if b.RefreshToken != "" {
		return b.RefreshToken
	}
	return b.Refresh
}

// Register handles POST /auth/register/
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Registration failed")
		return
	}
	envelope.OK(w, http.StatusCreated, "User registered successfully", result)
}

// Login handles POST /auth/login/
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Login failed")
		return
	}
	envelope.OK(w, http.StatusOK, "Login successful", result)
}

// Logout handles POST /auth/logout/. Failures are reported in the envelope
// with a 400, never as a server error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := envelope.Decode(r, &body); err != nil && !errors.Is(err, envelope.ErrEmptyBody) {
		logoutFailed(w, err)
		return
	}
	if err := h.svc.Logout(r.Context(), body.token()); err != nil {
		h.logger.Warn("logout failed", "error", err)
		logoutFailed(w, err)
		return
	}
	envelope.OK(w, http.StatusOK, "Logout successful", nil)
}

func logoutFailed(w http.ResponseWriter, err error) {
	envelope.Write(w, http.StatusBadRequest, envelope.Envelope{
		Success: false,
		Message: "Logout failed",
		Error:   err.Error(),
	})
}

// RefreshToken handles POST /auth/token/refresh/
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if !decode(w, r, &body) {
		return
	}
	if body.token() == "" {
		envelope.Fail(w, http.StatusBadRequest, "Token refresh failed", validation.Errors{
			"refresh": {validation.MsgRequired},
		})
		return
	}
	access, err := h.svc.Refresh(r.Context(), body.token())
	if err != nil {
		h.writeError(w, err, "Token refresh failed")
		return
	}
	envelope.OK(w, http.StatusOK, "Token refreshed", map[string]string{
		"access_token": access,
		"access":       access,
	})
}

// VerifyToken handles GET and POST /auth/token/verify/
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	envelope.OK(w, http.StatusOK, "Token is valid", map[string]any{"user": user.View()})
}

// Profile handles GET /auth/profile/
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	envelope.OK(w, http.StatusOK, "", user.View())
}

// UpdateProfile handles PUT /auth/profile/
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, false)
}

// PatchProfile handles PATCH /auth/profile/
func (h *Handler) PatchProfile(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, true)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, partial bool) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var in ProfileInput
	if !decode(w, r, &in) {
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), owner.ID, in, partial)
	if err != nil {
		h.writeError(w, err, "Profile update failed")
		return
	}
	envelope.OK(w, http.StatusOK, "Profile updated successfully", user.View())
}

// ChangePassword handles POST /auth/change-password/
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), owner.ID, req); err != nil {
		h.writeError(w, err, "Password change failed")
		return
	}
	envelope.OK(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return nil, false
	}
	user, err := h.svc.Profile(r.Context(), owner.ID)
	if err != nil {
		h.writeError(w, err, "Failed to load profile")
		return nil, false
	}
	return user, true
}

func requireOwner(w http.ResponseWriter, r *http.Request) (tenancy.Owner, bool) {
	o, ok := tenancy.OwnerFromContext(r.Context())
	if !ok {
		envelope.Fail(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
		return tenancy.Owner{}, false
	}
	return o, true
}

// decode reads an optional JSON body; only malformed JSON is rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := envelope.Decode(r, v); err != nil && !errors.Is(err, envelope.ErrEmptyBody) {
		envelope.MalformedBody(w, err)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, failMessage string) {
	if verr, ok := validation.As(err); ok {
		envelope.Invalid(w, failMessage, verr)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenBlacklisted):
		envelope.Fail(w, http.StatusUnauthorized, "Token is invalid or expired", nil)
	case errors.Is(err, ErrUserNotFound):
		envelope.Fail(w, http.StatusUnauthorized, "User not found", nil)
	default:
		h.logger.Error(failMessage, "error", err)
		envelope.Fail(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
