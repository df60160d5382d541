package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/pkg/httpx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

const (
	maxUsernameLen = 64
	maxEmailLen    = 256
	minPasswordLen = 8
	maxPasswordLen = 255
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Detail   string `json:"detail"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type SignupHandler struct {
	AuthService *service.AuthService
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Username is required")
		return
	}
	if len(req.Username) > maxUsernameLen {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Username must be at most 64 characters")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil || len(req.Email) > maxEmailLen {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Password must be between 8 and 255 characters")
		return
	}

	user, err := h.AuthService.Signup(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAccount) {
			httpx.WriteError(w, http.StatusConflict, "Account already exists")
			return
		}
		log.Error("signup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, signupResponse{
		Username: user.Username,
		Email:    user.Email,
		Avatar:   user.AvatarURL,
		Detail:   "User successfully created. Check your email for confirmation.",
	})
}

type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles the password login form. The form follows the OAuth2
// password-grant shape, so the email travels in the username field.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Username and password are required")
		return
	}

	pair, err := h.AuthService.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			unauthorized(w, "Invalid credentials")
		case errors.Is(err, service.ErrEmailNotConfirmed):
			unauthorized(w, "Email not confirmed")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

type ConfirmEmailHandler struct {
	AuthService *service.AuthService
}

func (h *ConfirmEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	already, err := h.AuthService.ConfirmEmail(ctx, r.PathValue("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrAccountNotFound) {
			httpx.WriteError(w, http.StatusBadRequest, "Verification error")
			return
		}
		log.Error("email confirmation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if already {
		httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Your email is already confirmed"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Email confirmed"})
}

type RefreshHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP exchanges a bearer refresh token for a fresh pair.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, ok := bearerToken(r)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	pair, err := h.AuthService.RefreshTokens(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			unauthorized(w, "Invalid refresh token")
			return
		}
		log.Error("token refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

type requestEmailRequest struct {
	Email string `json:"email"`
}

type RequestEmailHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP re-sends the confirmation mail. The response never reveals
// whether the address belongs to an account.
func (h *RequestEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req requestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	already, err := h.AuthService.RequestConfirmation(ctx, req.Email)
	if err != nil {
		log.Error("confirmation request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if already {
		httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Your email is already confirmed"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Check your email for confirmation"})
}
