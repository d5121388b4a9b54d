package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates static
var files embed.FS

// Page is the data every template receives.
type Page struct {
	Name  string
	Error string
	// Form echoes submitted signup values back after a validation error.
	Form map[string]string
	// LoginLink adds a link back to the login page under the error.
	LoginLink bool
}

// Pages rendered inside layout.html. login.html is standalone.
var layoutPages = []string{"signup.html", "index.html", "history.html"}

var pages = mustParse()

func mustParse() map[string]*template.Template {
	out := make(map[string]*template.Template, len(layoutPages)+1)
	out["login.html"] = template.Must(template.ParseFS(files, "templates/login.html"))
	for _, name := range layoutPages {
		out[name] = template.Must(template.ParseFS(files, "templates/layout.html", "templates/"+name))
	}
	return out
}

// Render writes the named page with status. The page is executed into a
// buffer first so a template failure never leaves a half-written response.
func Render(w http.ResponseWriter, status int, name string, data Page) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	entry := "layout"
	if name == "login.html" {
		entry = "login"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, entry, data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded scripts and stylesheets; mount it with the
// /static/ prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
