package handlers

import (
	"errors"
	"time"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/guard"
	applog "dreamhome/internal/log"
	"dreamhome/internal/session"
	"dreamhome/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func ensureSID(c *fiber.Ctx, secure bool) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   secure,
		})
	}
	return sid
}

// AttachSession puts the browser's session and signed-in user into Locals.
func AttachSession(reg *session.Registry, secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := reg.Get(ensureSID(c, secure))
		c.Locals("session", s)
		if u := s.User(); u != nil {
			c.Locals("user", u)
		}
		return c.Next()
	}
}

// RequireUser lets signed-in sessions through; everyone else is sent to
// the sign-in screen before anything renders.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := sessionOf(c)
		var target string
		g := guard.New(guard.SignInPath, guard.NavigatorFunc(func(p string) { target = p }))
		if s == nil || !g.Mount(s.User()) {
			applog.Security(c, "access.denied", map[string]any{"path": c.Path()})
			if target == "" {
				target = guard.SignInPath
			}
			return c.Redirect(target)
		}
		return c.Next()
	}
}

func sessionOf(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals("session").(*session.Session)
	return s
}

func accessToken(c *fiber.Ctx) string { return c.Cookies(apiclient.TokenCookie) }

func setAccessToken(c *fiber.Ctx, tok string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     apiclient.TokenCookie,
		Value:    tok,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
	})
}

func clearAccessToken(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     apiclient.TokenCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

// expired handles a 401 from the remote API: the token is gone, so the
// session signs out and the guard's redirect is followed. Caller holds
// the session lock. It reports false for any other error.
func expired(c *fiber.Ctx, s *session.Session, err error, secure bool) (bool, error) {
	if !apiclient.IsStatus(err, fiber.StatusUnauthorized) {
		return false, nil
	}
	applog.Security(c, "auth.token.rejected", nil)
	s.Store.Dispatch(store.Signout{})
	clearAccessToken(c, secure)
	s.Flash("Your session has expired. Please sign in again.")
	target := s.TakeRedirect()
	if target == "" {
		target = guard.SignInPath
	}
	return true, c.Redirect(target)
}

// apiNotice is the text shown for a failed remote call.
func apiNotice(err error, fallback string) string {
	var ae *apiclient.APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
