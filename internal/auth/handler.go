package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sebuszqo/CardVault/internal/user"
)

const tokenTypeBearer = "bearer"

type Handler struct {
	authService Service
}

func NewHandler(authService Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

func respondToken(w http.ResponseWriter, status int, token string) {
	respondJSON(w, status, map[string]interface{}{
		"status":       "success",
		"access_token": token,
		"token_type":   tokenTypeBearer,
	})
}

func decodeCredentials(r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, req.Email != "" && req.Password != ""
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, token, err := h.authService.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailAlreadyExists):
			respondError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrEmailLength), errors.Is(err, user.ErrPasswordTooShort):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "Could not register user")
		}
		return
	}

	respondToken(w, http.StatusCreated, token)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondToken(w, http.StatusOK, token)
}
