package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/repository"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/usecase"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/validation"
	"github.com/vasapolrittideah/confide-mongo/shared/middleware"
	"github.com/vasapolrittideah/confide-mongo/shared/translator"
)

// PayloadValidator validates decoded request bodies.
type PayloadValidator interface {
	Struct(s any) error
}

// TokenIssuer issues and validates access tokens.
type TokenIssuer interface {
	middleware.TokenValidator
	GenerateToken(userID, email string) (string, error)
}

type userHTTPHandler struct {
	logger      *zerolog.Logger
	userUsecase usecase.UserUsecase
	validator   PayloadValidator
	tokens      TokenIssuer
	trans       usecase.Translator
}

// NewUserHTTPHandler returns the router serving the user endpoints.
func NewUserHTTPHandler(
	logger *zerolog.Logger,
	userUsecase usecase.UserUsecase,
	validator PayloadValidator,
	tokens TokenIssuer,
	trans usecase.Translator,
) http.Handler {
	h := &userHTTPHandler{
		logger:      logger,
		userUsecase: userUsecase,
		validator:   validator,
		tokens:      tokens,
		trans:       trans,
	}

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Signup)
		r.Get("/confirm/{code}", h.Confirm)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password/{token}", h.ResetPassword)
		r.Post("/login", h.Login)
		r.With(middleware.RequireJWT(tokens)).Get("/me", h.Me)
	})

	return r
}

func (h *userHTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userUsecase.NewUser()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create user model")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	user.Username = req.Username
	user.Email = req.Email
	user.Password = req.Password
	user.PasswordConfirmation = req.PasswordConfirmation

	err = h.userUsecase.Save(r.Context(), user)

	var failure *validation.Failure
	switch {
	case err == nil:
	case errors.As(err, &failure):
		writeFailure(w, failure)
		return
	case errors.Is(err, usecase.ErrNotificationFailed):
		h.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("user created without confirmation email")
	default:
		h.logger.Error().Err(err).Msg("failed to save user")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *userHTTPHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ok, err := h.userUsecase.ConfirmByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to confirm user")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	if !ok {
		writeError(w, http.StatusNotFound, h.trans.Get(translator.KeyWrongConfirmation))
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: h.trans.Get(translator.KeyConfirmation)})
}

func (h *userHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.userUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("failed to request password reset")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusAccepted, MessageResponse{
		Message: "if the email is registered, a password reset link has been sent",
	})
}

func (h *userHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	ok, err := h.userUsecase.ResetPasswordByToken(
		r.Context(),
		chi.URLParam(r, "token"),
		req.Password,
		req.PasswordConfirmation,
	)
	if err != nil {
		if errors.Is(err, usecase.ErrTokenNotFound) {
			writeError(w, http.StatusNotFound, "password reset token not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to reset password")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	if !ok {
		writeError(w, http.StatusUnprocessableEntity, h.trans.Get(translator.KeyWrongPasswordReset))
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: h.trans.Get(translator.KeyPasswordReset)})
}

func (h *userHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userUsecase.Login(r.Context(), usecase.LoginParams{
		Credentials: req.Credentials(),
		Password:    req.Password,
		Remember:    req.Remember,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, h.trans.Get(translator.KeyWrongCredentials))
		case errors.Is(err, usecase.ErrUserNotConfirmed):
			writeError(w, http.StatusForbidden, h.trans.Get(translator.KeyNotConfirmed))
		default:
			h.logger.Error().Err(err).Msg("failed to login")
			writeError(w, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	accessToken, err := h.tokens.GenerateToken(user.AuthIdentifier(), user.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate access token")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken:   accessToken,
		RememberToken: user.RememberToken,
		User:          user,
	})
}

func (h *userHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	user, err := h.userUsecase.GetUserByEmail(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to get current user")
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself when it fails.
func (h *userHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		var failure *validation.Failure
		if errors.As(err, &failure) {
			writeFailure(w, failure)
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

func writeFailure(w http.ResponseWriter, failure *validation.Failure) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "validation failed",
		Fields: failure.Fields,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
