// Package apiclient talks to the remote listing and auth API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"dreamhome/internal/images"
)

// TokenCookie is the cookie the remote API authenticates mutating calls with.
const TokenCookie = "access_token"

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: %d %s", e.Status, e.Message)
}

// APIMessage is the server's own message, for user-facing notices.
func (e *APIError) APIMessage() string { return e.Message }

func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

// do sends the request and decodes a JSON answer into out when out is
// not nil. The response cookies are returned so sign-in can pick up the
// access token.
func (c *Client) do(ctx context.Context, r request, out any) ([]*http.Cookie, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: r.token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
		}
	}
	return resp.Cookies(), nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &msg)
	m := msg.Message
	if m == "" {
		m = msg.Error
	}
	if m == "" {
		m = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: m}
}

func jsonRequest(method, path, token string, v any) (request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return request{method: method, path: path, token: token, body: bytes.NewReader(b), contentType: "application/json"}, nil
}

// multipartRequest writes v as the "payload" part followed by one part
// per file under field.
func multipartRequest(method, path, token string, v any, field string, files []images.LocalFile) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="payload"`)
	h.Set("Content-Type", "application/json")
	pw, err := w.CreatePart(h)
	if err != nil {
		return request{}, err
	}
	if _, err := pw.Write(payload); err != nil {
		return request{}, err
	}

	for _, f := range files {
		fh := textproto.MIMEHeader{}
		fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		fh.Set("Content-Type", ct)
		fw, err := w.CreatePart(fh)
		if err != nil {
			return request{}, err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return request{}, err
		}
	}
	if err := w.Close(); err != nil {
		return request{}, err
	}
	return request{method: method, path: path, token: token, body: &buf, contentType: w.FormDataContentType()}, nil
}

func tokenFrom(cookies []*http.Cookie) string {
	for _, ck := range cookies {
		if ck.Name == TokenCookie {
			return ck.Value
		}
	}
	return ""
}
