package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/crucial707/dermalens/cmd/cli/config"
)

// Client talks to the DermaLens JSON API with an optional bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns an anonymous client for the configured API URL.
func New() *Client {
	return &Client{
		BaseURL: config.APIURL(),
		// Model calls can take a while.
		HTTP: &http.Client{Timeout: 3 * time.Minute},
	}
}

// Authenticated returns a client carrying the saved token.
func Authenticated() (*Client, error) {
	token, err := config.LoadToken()
	if err != nil {
		return nil, err
	}
	c := New()
	c.Token = token
	return c, nil
}

// APIError is a non-2xx answer. Message holds the server's "error" or
// "message" field when the body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// PostJSON sends payload as JSON and decodes the answer into out.
func (c *Client) PostJSON(path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do("POST", path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) Get(path string, out interface{}) error {
	return c.do("GET", path, nil, "", out)
}

func (c *Client) Delete(path string, out interface{}) error {
	return c.do("DELETE", path, nil, "", out)
}

// Upload posts the file at filePath as the multipart field "file".
func (c *Client) Upload(path, filePath string, out interface{}) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do("POST", path, &buf, mw.FormDataContentType(), out)
}

func (c *Client) do(method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return string(bytes.TrimSpace(raw))
}
