package handlers

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	applog "dreamhome/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type AppOptions struct {
	Views        fiber.Views
	StaticDir    string
	MediaDir     string
	BodyLimit    int
	SecureCookie bool
	// requests per minute per client, static and media excluded
	RateMax int
	// sign-in attempts per 10 minutes per client
	SignInMax int
}

// ErrorHandler logs the error and shows a friendly page without internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code = fe.Code
		switch code {
		case fiber.StatusNotFound:
			msg = "Page not found"
		case fiber.StatusRequestEntityTooLarge:
			msg = "The upload is too large."
		default:
			msg = "The request could not be processed."
		}
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// NewApp builds the web application: middleware stack, static files and
// every screen route.
func NewApp(o AppOptions, deps *Deps) *fiber.App {
	if o.RateMax <= 0 {
		o.RateMax = 120
	}
	if o.SignInMax <= 0 {
		o.SignInMax = 5
	}
	app := fiber.New(fiber.Config{Views: o.Views, ErrorHandler: ErrorHandler})
	if o.BodyLimit > 0 {
		app.Server().MaxRequestBodySize = o.BodyLimit
	}

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        o.RateMax,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   o.SecureCookie,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"path": c.Path()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(AttachSession(deps.Sessions, o.SecureCookie))

	// ---------- Static assets ----------
	if o.StaticDir != "" {
		app.Static("/static", o.StaticDir)
	}
	if o.MediaDir != "" {
		app.Get("/media/*", serveMedia(o.MediaDir))
	}

	// ---------- Screens ----------
	app.Get("/", deps.HomeHandler.Home)
	app.Get("/show-listing/:id", deps.ShowHandler.Detail)

	app.Get("/sign-in", deps.AuthHandler.SignInForm)
	app.Post("/sign-in", limiter.New(limiter.Config{
		Max:        o.SignInMax,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.signin.hit", nil)
			return render(c.Status(fiber.StatusTooManyRequests), "signin", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.SignIn)
	app.Get("/sign-up", deps.AuthHandler.SignUpForm)
	app.Post("/sign-up", deps.AuthHandler.SignUp)
	app.Post("/auth/google", deps.AuthHandler.Google)

	auth := RequireUser()
	app.Get("/sign-out", auth, deps.AuthHandler.SignOutConfirm)
	app.Post("/sign-out", auth, deps.AuthHandler.SignOut)
	app.Get("/profile", auth, deps.ProfileHandler.View)
	app.Post("/profile", auth, deps.ProfileHandler.Update)
	app.Get("/profile/delete", auth, deps.ProfileHandler.DeleteConfirm)
	app.Post("/profile/delete", auth, deps.ProfileHandler.Delete)

	app.Get("/show-listing", auth, deps.ShowHandler.Owned)
	app.Get("/listing", auth, deps.ListingHandler.Form)
	app.Post("/listing", auth, deps.ListingHandler.Submit)
	app.Get("/listing/new", auth, deps.ListingHandler.New)
	app.Post("/listing/images", auth, deps.ListingHandler.AddImages)
	app.Post("/listing/images/remove", auth, deps.ListingHandler.RemoveImage)
	app.Post("/listing/images/clear", auth, deps.ListingHandler.ClearImages)
	app.Post("/listing/edit/:id", auth, deps.ListingHandler.Edit)
	app.Get("/listing/delete/:id", auth, deps.ShowHandler.DeleteConfirm)
	app.Post("/listing/delete/:id", auth, deps.ShowHandler.Delete)

	// Chat widget
	app.Get("/api/chat/welcome", deps.ChatHandler.Welcome)
	app.Get("/api/chat", deps.ChatHandler.History)
	app.Post("/api/chat", deps.ChatHandler.Send)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}

// serveMedia serves uploads and previews from dir, refusing traversal.
func serveMedia(dir string) fiber.Handler {
	if !filepath.IsAbs(dir) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		// Block encoded traversal attempts as well as raw .. or null bytes
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
