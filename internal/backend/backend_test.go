package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/backend"
	"dreamhome/internal/domain"
	"dreamhome/internal/images"
	"dreamhome/internal/repos"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*backend.Server, *fiber.App, string) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	media := t.TempDir()
	srv, err := backend.New(db, backend.Config{JWTSecret: "test-secret", MediaDir: media})
	require.NoError(t, err)
	return srv, srv.App(), media
}

func signin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/signin", strings.NewReader(`{"email":"`+email+`","password":"Passw0rd!"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		if ck.Name == "access_token" {
			require.True(t, ck.HttpOnly)
			return ck.Value
		}
	}
	t.Fatal("no access_token cookie")
	return ""
}

func TestSigninWrongPassword(t *testing.T) {
	_, app, _ := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/signin", strings.NewReader(`{"email":"alice@dreamhome.test","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMutationsNeedToken(t *testing.T) {
	_, app, _ := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/listing/create", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSchemaRejectsBadListing(t *testing.T) {
	_, app, _ := newServer(t)
	tok := signin(t, app, "alice@dreamhome.test")

	body := `{"name":"","description":"d","address":"a","regularPrice":10,"bedroom":1,"bathroom":1,
	  "furnished":false,"parking":false,"offer":true,"type":"rent","imageUrls":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/listing/create", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: tok})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["message"])
}

// The client package against the mock API, end to end.
func TestClientRoundTrip(t *testing.T) {
	srv, app, media := newServer(t)
	hs := httptest.NewServer(adaptor.FiberApp(app))
	defer hs.Close()
	ctx := context.Background()
	c := apiclient.New(hs.URL, hs.Client())

	user, tok, err := c.SignIn(ctx, apiclient.SignInRequest{Email: "alice@dreamhome.test", Password: "Passw0rd!"})
	require.NoError(t, err)
	require.Equal(t, "u-alice", user.ID)
	require.NotEmpty(t, tok)

	in := domain.Listing{
		Name: "Garden Flat", Description: "Ground floor", Address: "3 Park Ln",
		RegularPrice: 900, Bedroom: 1, Bathroom: 1, Type: domain.TypeRent,
		ImageURLs: []string{"https://cdn.example/remote.jpg", images.FileRef(0)},
		UserRef:   user.ID,
	}
	png := []byte("\x89PNG\r\n\x1a\nrest")
	created, err := c.Create(ctx, tok, in, []images.LocalFile{{Name: "room.png", ContentType: "image/png", Data: png}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.CreatedAt)
	require.Len(t, created.ImageURLs, 2)
	require.Equal(t, "https://cdn.example/remote.jpg", created.ImageURLs[0])
	require.True(t, strings.HasPrefix(created.ImageURLs[1], "/media/listings/"))
	stored, err := os.ReadFile(filepath.Join(media, "listings", filepath.Base(created.ImageURLs[1])))
	require.NoError(t, err)
	require.Equal(t, png, stored)

	created.Offer = true
	created.DiscountPrice = domain.Float(800)
	updated, err := c.Update(ctx, tok, created.ID, created, nil)
	require.NoError(t, err)
	require.Equal(t, 800.0, *updated.DiscountPrice)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	owned, err := c.ListByOwner(ctx, tok, user.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, owned[0].ID)

	// bob may not touch alice's listing
	_, bobTok, err := c.SignIn(ctx, apiclient.SignInRequest{Email: "bob@dreamhome.test", Password: "Passw0rd!"})
	require.NoError(t, err)
	err = c.Delete(ctx, bobTok, created.ID)
	require.True(t, apiclient.IsStatus(err, http.StatusForbidden))

	require.NoError(t, c.Delete(ctx, tok, created.ID))
	_, err = c.Get(ctx, created.ID)
	require.True(t, apiclient.IsStatus(err, http.StatusNotFound))

	_, err = srv.Listings.Get(created.ID)
	require.Error(t, err)
}

func TestFailedUploadLeavesNoFiles(t *testing.T) {
	_, app, media := newServer(t)
	hs := httptest.NewServer(adaptor.FiberApp(app))
	defer hs.Close()
	ctx := context.Background()
	c := apiclient.New(hs.URL, hs.Client())

	_, tok, err := c.SignIn(ctx, apiclient.SignInRequest{Email: "alice@dreamhome.test", Password: "Passw0rd!"})
	require.NoError(t, err)

	in := domain.Listing{
		Name: "Half Uploaded", Description: "d", Address: "a",
		RegularPrice: 900, Bedroom: 1, Bathroom: 1, Type: domain.TypeRent,
		ImageURLs: []string{images.FileRef(0), images.FileRef(1)},
		UserRef:   "u-alice",
	}
	files := []images.LocalFile{
		{Name: "ok.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nrest")},
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
	}
	_, err = c.Create(ctx, tok, in, files)
	require.True(t, apiclient.IsStatus(err, http.StatusBadRequest), "got %v", err)

	left, err := filepath.Glob(filepath.Join(media, "listings", "*"))
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestSignupGoogleAndAccountLifecycle(t *testing.T) {
	_, app, _ := newServer(t)
	hs := httptest.NewServer(adaptor.FiberApp(app))
	defer hs.Close()
	ctx := context.Background()
	c := apiclient.New(hs.URL, hs.Client())

	require.NoError(t, c.SignUp(ctx, apiclient.SignUpRequest{Username: "carol", Email: "carol@dreamhome.test", Password: "Str0ng!pass"}))
	err := c.SignUp(ctx, apiclient.SignUpRequest{Username: "carol2", Email: "carol@dreamhome.test", Password: "Str0ng!pass"})
	require.True(t, apiclient.IsStatus(err, http.StatusConflict))

	g, tok, err := c.Google(ctx, apiclient.GoogleProfile{Name: "Dan Smith", Email: "dan@dreamhome.test", Image: "https://img/dan.png"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, "https://img/dan.png", g.Avatar)
	again, _, err := c.Google(ctx, apiclient.GoogleProfile{Name: "Dan Smith", Email: "dan@dreamhome.test"})
	require.NoError(t, err)
	require.Equal(t, g.ID, again.ID)

	upd, err := c.UpdateUser(ctx, tok, g.ID, apiclient.UserUpdate{Username: "danny"},
		&images.LocalFile{Name: "me.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	require.Equal(t, "danny", upd.Username)
	require.True(t, strings.HasPrefix(upd.Avatar, "/media/listings/"))

	_, err = c.UpdateUser(ctx, tok, "u-alice", apiclient.UserUpdate{Username: "x"}, nil)
	require.True(t, apiclient.IsStatus(err, http.StatusForbidden))

	require.NoError(t, c.DeleteUser(ctx, tok, g.ID))
}

func TestChatCannedReply(t *testing.T) {
	_, app, _ := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"anything to rent?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(b), "for rent")
}
