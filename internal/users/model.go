package users

import (
	"strings"
	"time"

	"github.com/wolfman30/lead-manager/internal/validation"
)

const (
	minPasswordLength = 8
	// bcrypt only accepts up to 72 bytes of input.
	maxPasswordBytes = 72

	msgUsernameTaken   = "A user with that username already exists."
	msgEmailTaken      = "A user with that email already exists."
	msgPasswordTooLong = "This password is too long. It must contain at most 72 bytes."
)

// User is an account that owns leads.
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	DateJoined   time.Time
}

// UserView is the public JSON form of a user. The password hash never leaves the service.
type UserView struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

// View returns the serializable form of u.
func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.DateJoined,
	}
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User UserView `json:"user"`
	TokenPair
}

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
}

// Validate checks formats and the password policy. Uniqueness is checked by the service.
func (r *RegisterRequest) Validate() validation.Errors {
	errs := validation.Errors{}
	if errs.Required("username", r.Username) {
		errs.Check("username", strings.TrimSpace(*r.Username), "required,max=150,username")
	}
	if errs.Required("email", r.Email) {
		errs.Check("email", strings.TrimSpace(*r.Email), "required,email,max=254")
	}
	if errs.Required("password", r.Password) {
		username := ""
		if r.Username != nil {
			username = strings.TrimSpace(*r.Username)
		}
		for _, msg := range passwordProblems(*r.Password, username) {
			errs.Add("password", msg)
		}
	}
	if r.PasswordConfirm != nil && r.Password != nil && *r.PasswordConfirm != *r.Password {
		errs.Add("password_confirm", "Passwords don't match.")
	}
	errs.Check("first_name", r.FirstName, "max=150")
	errs.Check("last_name", r.LastName, "max=150")
	return errs
}

// passwordProblems applies the registration password policy.
func passwordProblems(password, username string) []string {
	if password == "" {
		return []string{validation.MsgBlank}
	}
	var out []string
	if len(password) < minPasswordLength {
		out = append(out, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > maxPasswordBytes {
		out = append(out, msgPasswordTooLong)
	}
	if validation.IsNumeric(password) {
		out = append(out, "This password is entirely numeric.")
	}
	if username != "" && strings.EqualFold(password, username) {
		out = append(out, "The password is too similar to the username.")
	}
	return out
}

// LoginRequest is the body of POST /auth/login/. Email is used when username is empty.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that an identifier and a password were supplied.
func (r *LoginRequest) Validate() validation.Errors {
	errs := validation.Errors{}
	if strings.TrimSpace(r.Username) == "" && strings.TrimSpace(r.Email) == "" {
		errs.Add("username", validation.MsgRequired)
	}
	if r.Password == "" {
		errs.Add("password", validation.MsgRequired)
	}
	return errs
}

// ProfileInput is the body of PUT/PATCH /auth/profile/.
type ProfileInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Validate checks the input. In full mode username and email must be present.
func (in *ProfileInput) Validate(partial bool) validation.Errors {
	errs := validation.Errors{}
	check := func(field string, value *string, required bool, tags string) {
		if value == nil {
			if required && !partial {
				errs.Add(field, validation.MsgRequired)
			}
			return
		}
		errs.Check(field, strings.TrimSpace(*value), tags)
	}
	check("username", in.Username, true, "required,max=150,username")
	check("email", in.Email, true, "required,email,max=254")
	check("first_name", in.FirstName, false, "max=150")
	check("last_name", in.LastName, false, "max=150")
	return errs
}

func (in *ProfileInput) apply(u *User) {
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
}

// ChangePasswordRequest is the body of POST /auth/change-password/.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
