package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/backend"
	"dreamhome/internal/config"
	"dreamhome/internal/domain"
	"dreamhome/internal/http/handlers"
	"dreamhome/internal/repos"
)

// pngBytes sniffs as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type testEnv struct {
	t    *testing.T
	app  *fiber.App
	deps *handlers.Deps
	api  *apiclient.Client
}

type envOption func(*config.Config, *handlers.AppOptions)

// newEnv runs the web app against the mock API mounted on an httptest
// server, each with its own in-memory database.
func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	apiDB, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open api db: %v", err)
	}
	srv, err := backend.New(apiDB, backend.Config{JWTSecret: "test-secret", MediaDir: t.TempDir()})
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	api := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(api.Close)

	webDB, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open web db: %v", err)
	}
	cfg := config.Default()
	cfg.APIBaseURL = api.URL
	cfg.AssistantURL = api.URL
	cfg.MediaDir = t.TempDir()
	cfg.TypingDelay = 10 * time.Millisecond
	ao := handlers.AppOptions{RateMax: 1000, SignInMax: 100}
	for _, o := range opts {
		o(&cfg, &ao)
	}
	ao.Views = handlers.NewEngine("../../web/templates")
	ao.MediaDir = cfg.MediaDir
	if ao.BodyLimit == 0 {
		ao.BodyLimit = cfg.BodyLimit()
	}

	deps, err := handlers.NewDeps(webDB, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), api.Client())
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	return &testEnv{t: t, app: handlers.NewApp(ao, deps), deps: deps, api: apiclient.New(api.URL, api.Client())}
}

// browser keeps cookies between requests like a real one would.
type browser struct {
	env     *testEnv
	cookies map[string]string
}

func (e *testEnv) browser() *browser {
	b := &browser{env: e, cookies: map[string]string{}}
	b.get("/sign-in") // sid + csrf cookies
	return b
}

func (b *browser) do(req *http.Request) *http.Response {
	b.env.t.Helper()
	for k, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := b.env.app.Test(req, -1)
	if err != nil {
		b.env.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(httptest.NewRequest("GET", path, nil))
}

func (b *browser) post(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.cookies["csrf_"])
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

type upload struct {
	name string
	data []byte
}

func (b *browser) postMultipart(path string, fields url.Values, field string, files ...upload) *http.Response {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("csrf", b.cookies["csrf_"])
	for k, vs := range fields {
		for _, v := range vs {
			_ = w.WriteField(k, v)
		}
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		h.Set("Content-Type", "application/octet-stream")
		pw, _ := w.CreatePart(h)
		_, _ = pw.Write(f.data)
	}
	_ = w.Close()
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

// follow does one GET of the redirect target.
func (b *browser) follow(resp *http.Response) *http.Response {
	b.env.t.Helper()
	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		b.env.t.Fatalf("expected redirect, got %d: %s", resp.StatusCode, body(resp))
	}
	return b.get(resp.Header.Get("Location"))
}

func (b *browser) signIn(email string) {
	b.env.t.Helper()
	resp := b.post("/sign-in", url.Values{"email": {email}, "password": {"Passw0rd!"}})
	if resp.StatusCode != http.StatusFound {
		b.env.t.Fatalf("sign in %s: got %d: %s", email, resp.StatusCode, body(resp))
	}
	if b.cookies[apiclient.TokenCookie] == "" {
		b.env.t.Fatal("access token cookie not relayed")
	}
}

func body(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

var tokenRe = regexp.MustCompile(`name="token" value="([^"]+)"`)

func confirmToken(t *testing.T, page string) string {
	t.Helper()
	m := tokenRe.FindStringSubmatch(page)
	if m == nil {
		t.Fatalf("no confirmation token in page: %s", page)
	}
	return m[1]
}

func listingFields(name string) url.Values {
	return url.Values{
		"name":         {name},
		"description":  {"Quiet street, close to the park"},
		"address":      {"1 Test Lane"},
		"type":         {"sale"},
		"regularPrice": {"325000"},
		"bedroom":      {"3"},
		"bathroom":     {"2"},
		"parking":      {"on"},
	}
}

func (e *testEnv) findListing(name string) domain.Listing {
	e.t.Helper()
	all, err := e.api.ListAll(context.Background())
	if err != nil {
		e.t.Fatalf("list: %v", err)
	}
	for _, l := range all {
		if l.Name == name {
			return l
		}
	}
	e.t.Fatalf("listing %q not found", name)
	return domain.Listing{}
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs swaps the standard logger output while fn runs and returns
// the JSON event lines written.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func hasAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
