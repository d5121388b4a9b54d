package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/dermalens/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	userCols    = []string{"id", "username", "password_hash", "age", "created_at"}
	historyCols = []string{"id", "user_id", "image_path", "analysis", "created_at"}
)

type fakeAnalyzer struct{ text string }

func (f fakeAnalyzer) Analyze(context.Context, []byte) (string, error) { return f.text, nil }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		SecretKey:          "test-secret-for-integration",
		StaticDir:          t.TempDir(),
		MaxUploadMB:        2,
		SessionMaxAgeHours: 1,
		JWTExpireHours:     1,
	}
}

func newTestServer(t *testing.T, analyzerText string) (*httptest.Server, sqlmock.Sqlmock, config.Config) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := testConfig(t)
	srv := httptest.NewServer(newRouter(db, cfg, fakeAnalyzer{text: analyzerText}))
	t.Cleanup(srv.Close)
	return srv, mock, cfg
}

// browser returns a client that keeps cookies and reports redirects instead
// of following them.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func passwordHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func do(t *testing.T, c *http.Client, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

// TestAPI_BrowserFlow is an integration test: it drives the full router with a
// sqlmock-backed DB through signup, login, analysis, history and logout.
func TestAPI_BrowserFlow(t *testing.T) {
	text := "- Round, evenly pigmented lesion\nDisclaimer: not a diagnosis."
	srv, mock, cfg := newTestServer(t, text)
	client := browser(t)
	now := time.Now()

	// 1) Signup
	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("dana").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("dana", sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "dana", "h", nil, now))

	form := url.Values{"username": {"dana"}, "password": {"pw"}}
	req, _ := http.NewRequest("POST", srv.URL+"/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := do(t, client, req)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("signup: got %d to %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// 2) Login
	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("dana").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "dana", passwordHash(t, "pw"), nil, now))

	loginBody, _ := json.Marshal(map[string]string{"username": "dana", "password": "pw"})
	req, _ = http.NewRequest("POST", srv.URL+"/api/login", bytes.NewReader(loginBody))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, client, req)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"success":true`) {
		t.Fatalf("login: got %d %s", resp.StatusCode, body)
	}

	// 3) Analyze
	mock.ExpectQuery(`INSERT INTO history`).
		WithArgs(1, sqlmock.AnyArg(), text).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "mole.png")
	part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	mw.Close()
	req, _ = http.NewRequest("POST", srv.URL+"/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body = do(t, client, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze: got %d %s", resp.StatusCode, body)
	}
	var analyzed map[string]string
	json.Unmarshal(body, &analyzed)
	if analyzed["analysis"] != text {
		t.Errorf("analysis: got %q", analyzed["analysis"])
	}

	stored, _ := filepath.Glob(filepath.Join(cfg.StaticDir, "uploads", "user_1", "*_mole.png"))
	if len(stored) != 1 {
		t.Fatalf("stored files: %v", stored)
	}
	rel := "uploads/user_1/" + filepath.Base(stored[0])

	// 4) History and the stored image
	mock.ExpectQuery(`FROM history`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(historyCols).AddRow(1, 1, rel, text, now))

	req, _ = http.NewRequest("GET", srv.URL+"/api/history", nil)
	resp, body = do(t, client, req)
	var items []struct {
		ID        int    `json:"id"`
		ImagePath string `json:"image_path"`
		Analysis  string `json:"analysis"`
		Date      string `json:"date"`
	}
	if err := json.Unmarshal(body, &items); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("history: got %d %s", resp.StatusCode, body)
	}
	if len(items) != 1 || items[0].ImagePath != rel || items[0].Date == "" {
		t.Errorf("unexpected history: %+v", items)
	}

	req, _ = http.NewRequest("GET", srv.URL+"/static/"+rel, nil)
	resp, _ = do(t, client, req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stored image: got %d", resp.StatusCode)
	}

	// 5) Delete, then delete again
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2`).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(historyCols).AddRow(1, 1, rel, text, now))
	mock.ExpectExec(`DELETE FROM history`).
		WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2`).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(historyCols))
	mock.ExpectRollback()

	req, _ = http.NewRequest("DELETE", srv.URL+"/api/history/delete/1", nil)
	resp, body = do(t, client, req)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "History item deleted") {
		t.Fatalf("delete: got %d %s", resp.StatusCode, body)
	}
	if left, _ := filepath.Glob(filepath.Join(cfg.StaticDir, "uploads", "user_1", "*")); len(left) != 0 {
		t.Errorf("image file should be removed: %v", left)
	}

	req, _ = http.NewRequest("DELETE", srv.URL+"/api/history/delete/1", nil)
	resp, _ = do(t, client, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", resp.StatusCode)
	}

	// 6) Logout, after which the API refuses the browser
	req, _ = http.NewRequest("GET", srv.URL+"/logout", nil)
	resp, _ = do(t, client, req)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Errorf("logout: got %d to %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	req, _ = http.NewRequest("GET", srv.URL+"/api/history", nil)
	resp, _ = do(t, client, req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("history after logout: got %d, want 401", resp.StatusCode)
	}

	req, _ = http.NewRequest("GET", srv.URL+"/app", nil)
	resp, _ = do(t, client, req)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Errorf("app after logout: got %d to %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// TestAPI_BearerToken logs in for a JWT and calls GET /api/me with it.
func TestAPI_BearerToken(t *testing.T) {
	srv, mock, _ := newTestServer(t, "unused")
	now := time.Now()

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("integration").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "integration", passwordHash(t, "pw"), 40, now))
	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "integration", "h", 40, now))

	// 1) Token
	loginBody, _ := json.Marshal(map[string]string{"username": "integration", "password": "pw"})
	resp, err := http.Post(srv.URL+"/api/token", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status: got %d, want 200", resp.StatusCode)
	}
	var tokenOut struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenOut); err != nil || tokenOut.Token == "" {
		t.Fatalf("token response: %v", err)
	}

	// 2) GET /api/me with Bearer token
	req, _ := http.NewRequest("GET", srv.URL+"/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenOut.Token)
	meResp, body := do(t, srv.Client(), req)
	if meResp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"username":"integration"`) {
		t.Fatalf("GET /api/me: got %d %s", meResp.StatusCode, body)
	}

	// 3) A forged token is refused
	req, _ = http.NewRequest("GET", srv.URL+"/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenOut.Token+"x")
	meResp, _ = do(t, srv.Client(), req)
	if meResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("forged token: got %d, want 401", meResp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_Pages(t *testing.T) {
	srv, _, _ := newTestServer(t, "unused")

	for path, want := range map[string]string{
		"/":                 "login-form",
		"/signup":           "<form",
		"/static/style.css": "",
	} {
		resp, body := do(t, srv.Client(), mustRequest(t, "GET", srv.URL+path))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: got %d", path, resp.StatusCode)
		}
		if want != "" && !strings.Contains(string(body), want) {
			t.Errorf("GET %s: body does not contain %q", path, want)
		}
		if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("GET %s: missing security headers", path)
		}
	}
}

func TestAPI_UnauthenticatedUpload(t *testing.T) {
	srv, mock, _ := newTestServer(t, "unused")

	req := mustRequest(t, "POST", srv.URL+"/api/analyze")
	resp, body := do(t, srv.Client(), req)
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(string(body), "unauthorized") {
		t.Errorf("got %d %s", resp.StatusCode, body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func mustRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

// TestAPI_Health is a quick smoke test for the health endpoint.
func TestAPI_Health(t *testing.T) {
	srv, _, _ := newTestServer(t, "unused")

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status: got %d, want 200", resp.StatusCode)
	}
}

// TestAPI_Ready checks that /ready pings the DB and returns 200 when DB is reachable.
func TestAPI_Ready(t *testing.T) {
	srv, _, _ := newTestServer(t, "unused")

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", resp.StatusCode)
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv, _, _ := newTestServer(t, "unused")

	http.Get(srv.URL + "/health")
	resp, body := do(t, srv.Client(), mustRequest(t, "GET", srv.URL+"/metrics"))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("GET /metrics: got %d", resp.StatusCode)
	}
}
