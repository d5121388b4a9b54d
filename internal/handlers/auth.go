package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/dermalens/internal/auth"
	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/repo"
	"github.com/crucial707/dermalens/internal/web"
)

const (
	msgLoginOK          = "Login successful"
	msgLoginFailed      = "Invalid username or password"
	msgUserExists       = "User already exists."
	msgPasswordChanged  = "Password updated"
	msgPasswordMismatch = "Current password is incorrect"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Auth     *auth.Service
	Sessions *auth.Sessions
	Tokens   *auth.Tokens
}

// signupForm is the POST /signup form. Age is optional; bcrypt ignores
// anything past 72 bytes, so longer passwords are refused.
type signupForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required,maxbytes=72"`
	Age      *int   `form:"age" validate:"omitempty,gte=0,lte=150"`
}

// ==========================
// Signup Page
// ==========================
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, "signup.html", web.Page{})
}

// ==========================
// Signup (form post)
// ==========================
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderPage(w, r, http.StatusBadRequest, "signup.html", web.Page{Error: "Invalid form submission."})
		return
	}

	echo := map[string]string{
		"username": r.PostFormValue("username"),
		"age":      r.PostFormValue("age"),
	}
	form := signupForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			renderPage(w, r, http.StatusBadRequest, "signup.html", web.Page{Error: "age must be a whole number", Form: echo})
			return
		}
		form.Age = &age
	}

	if err := validate.Struct(form); err != nil {
		renderPage(w, r, http.StatusBadRequest, "signup.html", web.Page{Error: firstMessage(validationFields(err)), Form: echo})
		return
	}

	_, err := h.Auth.CreateUser(r.Context(), form.Username, form.Password, form.Age)
	switch {
	case errors.Is(err, repo.ErrDuplicateUser):
		renderPage(w, r, http.StatusConflict, "signup.html", web.Page{Error: msgUserExists, LoginLink: true, Form: echo})
		return
	case err != nil:
		slog.Error("signup: create user failed", "error", err)
		renderPage(w, r, http.StatusInternalServerError, "signup.html", web.Page{Error: "Could not create the account. Please try again.", Form: echo})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ==========================
// Login (session cookie)
// ==========================
// Login always answers 200 with {success, message} for a well-formed body
// so the browser script has a single shape to read.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid JSON")
		return
	}

	user, err := h.Auth.Verify(r.Context(), strings.TrimSpace(input.Username), input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeResult(w, http.StatusOK, false, msgLoginFailed)
			return
		}
		slog.Error("login: verify failed", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		slog.Error("login: save session failed", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeResult(w, http.StatusOK, true, msgLoginOK)
}

// ==========================
// Token (bearer for API clients)
// ==========================
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.Auth.Verify(r.Context(), strings.TrimSpace(input.Username), input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			JSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		slog.Error("token: verify failed", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	signed, err := h.Tokens.Issue(user)
	if err != nil {
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": signed,
		"user":  user,
	})
}

// ==========================
// Logout
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		slog.Warn("logout: clear session failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// ==========================
// Change Password
// ==========================
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Current string `json:"current_password" validate:"required"`
		New     string `json:"new_password" validate:"required,maxbytes=72"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(input); err != nil {
		JSONValidationError(w, "validation failed", validationFields(err), http.StatusBadRequest)
		return
	}

	err := h.Auth.ChangePassword(r.Context(), userID, input.Current, input.New)
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, true, msgPasswordChanged)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeResult(w, http.StatusBadRequest, false, msgPasswordMismatch)
	default:
		slog.Error("change password failed", "user_id", userID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

func firstMessage(fields map[string]string) string {
	for _, key := range []string{"username", "password", "age"} {
		if msg, ok := fields[key]; ok {
			return msg
		}
	}
	return "Invalid form submission."
}
