package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"dreamhome/internal/apiclient"
)

func TestProtectedScreensRedirectAnonymous(t *testing.T) {
	env := newEnv(t)
	b := env.browser()

	var logs []logEntry
	logs = captureLogs(t, func() {
		for _, p := range []string{"/show-listing", "/listing", "/listing/new", "/profile", "/sign-out"} {
			resp := b.get(p)
			if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/sign-in" {
				t.Fatalf("%s: expected redirect to /sign-in, got %d %q", p, resp.StatusCode, resp.Header.Get("Location"))
			}
		}
		resp := b.postMultipart("/listing/images", listingFields("x"), "images", upload{"a.png", pngBytes})
		if resp.Header.Get("Location") != "/sign-in" {
			t.Fatalf("image upload not guarded: %d", resp.StatusCode)
		}
	})
	if _, ok := hasAction(logs, "access.denied"); !ok {
		t.Fatal("access.denied not logged")
	}
}

func TestRejectedTokenSignsOut(t *testing.T) {
	env := newEnv(t)
	b := env.browser()
	b.signIn("alice@dreamhome.test")

	b.cookies[apiclient.TokenCookie] = "not-a-jwt"
	resp := b.get("/show-listing")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/sign-in" {
		t.Fatalf("expected redirect to sign-in, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	page := body(b.follow(resp))
	if !strings.Contains(page, "Your session has expired") {
		t.Fatalf("expiry notice missing: %s", page)
	}
	if resp := b.get("/profile"); resp.StatusCode != http.StatusFound {
		t.Fatalf("session still signed in: %d", resp.StatusCode)
	}

	// signing in again works normally
	b.signIn("alice@dreamhome.test")
	if resp := b.post("/listing/edit/unknown-id", url.Values{}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown listing: expected 404, got %d", resp.StatusCode)
	}
}
