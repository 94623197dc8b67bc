// Package backend is a development stand-in for the remote listing, auth
// and chat API. It stores everything in SQLite and follows the same
// routes, cookies and JSON shapes as the hosted service.
package backend

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	applog "dreamhome/internal/log"
	"dreamhome/internal/repos"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const tokenCookie = "access_token"

type Config struct {
	JWTSecret string
	MediaDir  string
	// MediaURL prefixes uploaded file URLs, "/media" by default.
	MediaURL  string
	MaxImages int
	BodyLimit int
}

type Server struct {
	Users    *repos.UserRepo
	Listings *repos.ListingRepo
	Tokens   *TokenService

	schema *jsonschema.Schema
	cfg    Config
}

func New(db *sqlx.DB, cfg Config) (*Server, error) {
	tokens, err := NewTokenService(cfg.JWTSecret, 0)
	if err != nil {
		return nil, err
	}
	schema, err := compileListingSchema()
	if err != nil {
		return nil, err
	}
	if cfg.MediaURL == "" {
		cfg.MediaURL = "/media"
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 10
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 64 << 20
	}
	if err := os.MkdirAll(filepath.Join(cfg.MediaDir, "listings"), 0o755); err != nil {
		return nil, err
	}
	return &Server{
		Users:    repos.NewUserRepo(db),
		Listings: repos.NewListingRepo(db),
		Tokens:   tokens,
		schema:   schema,
		cfg:      cfg,
	}, nil
}

// App builds the Fiber app serving the API.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    s.cfg.BodyLimit,
		ErrorHandler: jsonErrorHandler,
	})
	app.Use(requestid.New())

	api := app.Group("/api")
	api.Post("/signup", s.SignUp)
	api.Post("/signin", s.SignIn)
	api.Post("/google", s.Google)
	api.Get("/signout", s.SignOut)
	api.Put("/user/:id", s.requireToken, s.UpdateUser)
	api.Delete("/user/:id", s.requireToken, s.DeleteUser)

	api.Get("/listing", s.ListAll)
	api.Get("/listing/:id", s.GetListing)
	api.Get("/user/listings/:userId", s.requireToken, s.ListByOwner)
	api.Post("/listing/create", s.requireToken, s.CreateListing)
	api.Put("/listing/update/:id", s.requireToken, s.UpdateListing)
	api.Delete("/listing/delete/:id", s.requireToken, s.DeleteListing)

	api.Post("/chat", s.Chat)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	return app
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "statusCode": status, "message": msg})
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	applog.Error(c, "mockapi.error", err, nil)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// requireToken resolves the access_token cookie to a user id in Locals("uid").
func (s *Server) requireToken(c *fiber.Ctx) error {
	tok := c.Cookies(tokenCookie)
	if tok == "" {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	uid, err := s.Tokens.Validate(tok)
	if err != nil {
		applog.Security(c, "mockapi.token.invalid", nil)
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals("uid", uid)
	return c.Next()
}

func callerID(c *fiber.Ctx) string {
	uid, _ := c.Locals("uid").(string)
	return uid
}

func (s *Server) setToken(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   int(s.Tokens.TTL().Seconds()),
	})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}
