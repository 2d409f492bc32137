package handler

import "github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"

type SignupRequest struct {
	Username             string `json:"username"              validate:"required"`
	Email                string `json:"email"                 validate:"required,email"`
	Password             string `json:"password"              validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required_without=Username"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// Credentials returns the identity values supplied in the request.
func (r LoginRequest) Credentials() map[string]string {
	credentials := map[string]string{}
	if r.Email != "" {
		credentials["email"] = r.Email
	}
	if r.Username != "" {
		credentials["username"] = r.Username
	}

	return credentials
}

type LoginResponse struct {
	AccessToken   string      `json:"access_token"`
	RememberToken string      `json:"remember_token,omitempty"`
	User          *model.User `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password             string `json:"password"              validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
