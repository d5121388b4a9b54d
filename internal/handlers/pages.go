package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/models"
	"github.com/crucial707/dermalens/internal/repo"
	"github.com/crucial707/dermalens/internal/web"
)

// UserLookup loads the signed-in user for page headers.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// PageHandler serves the HTML pages.
type PageHandler struct {
	Users UserLookup
	Auth  *middleware.Authenticator
}

// Login renders the login page, or sends an already signed-in user to /app.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Auth.UserID(r); ok {
		http.Redirect(w, r, "/app", http.StatusFound)
		return
	}
	renderPage(w, r, http.StatusOK, "login.html", web.Page{})
}

func (h *PageHandler) App(w http.ResponseWriter, r *http.Request) {
	h.userPage(w, r, "index.html")
}

func (h *PageHandler) History(w http.ResponseWriter, r *http.Request) {
	h.userPage(w, r, "history.html")
}

func (h *PageHandler) userPage(w http.ResponseWriter, r *http.Request, name string) {
	id, _ := middleware.UserIDFrom(r.Context())
	user, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Session outlived its account.
			http.Redirect(w, r, "/logout", http.StatusFound)
			return
		}
		slog.Error("load page user failed", "user_id", id, "error", err)
		http.Error(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	renderPage(w, r, http.StatusOK, name, web.Page{Name: user.Username})
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data web.Page) {
	if err := web.Render(w, status, name, data); err != nil {
		slog.Error("render page failed", "page", name, "path", r.URL.Path, "error", err)
		http.Error(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}
