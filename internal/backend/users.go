package backend

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dreamhome/internal/domain"
	applog "dreamhome/internal/log"
	"dreamhome/internal/repos"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type signUpBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) SignUp(c *fiber.Ctx) error {
	var in signUpBody
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request")
	}
	username, ok := validate.Username(in.Username)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Username must be 3-30 letters, digits, dots, dashes or underscores")
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "A valid email is required")
	}
	if !validate.Password(in.Password) {
		return fail(c, fiber.StatusBadRequest, "Password needs 8+ characters with upper, lower, digit and symbol")
	}
	if _, err := s.Users.ByEmail(email); err == nil {
		return fail(c, fiber.StatusConflict, "User already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	row := repos.UserRow{User: domain.User{ID: uuid.NewString(), Username: username, Email: email}, Hash: string(hash)}
	if err := s.Users.Create(row); err != nil {
		return err
	}
	applog.Audit(c, "mockapi.signup", map[string]any{"user_id": row.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "User created successfully"})
}

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) SignIn(c *fiber.Ctx) error {
	var in signInBody
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request")
	}
	row, err := s.Users.ByEmail(strings.TrimSpace(in.Email))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(row.Hash), []byte(in.Password)) != nil {
		applog.Security(c, "mockapi.signin.fail", nil)
		return fail(c, fiber.StatusUnauthorized, "Wrong credentials")
	}
	return s.startSession(c, row.User)
}

type googleBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Google signs in the account with the provider's email, creating it on
// first use with a random password.
func (s *Server) Google(c *fiber.Ctx) error {
	var in googleBody
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request")
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "A valid email is required")
	}
	row, err := s.Users.ByEmail(email)
	if err == nil {
		return s.startSession(c, row.User)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := domain.User{ID: uuid.NewString(), Username: providerUsername(in.Name), Email: email, Avatar: in.Image}
	if err := s.Users.Create(repos.UserRow{User: u, Hash: string(hash)}); err != nil {
		return err
	}
	applog.Audit(c, "mockapi.google.signup", map[string]any{"user_id": u.ID})
	return s.startSession(c, u)
}

func providerUsername(name string) string {
	base := strings.ToLower(strings.Join(strings.Fields(name), ""))
	var b strings.Builder
	for _, r := range base {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() < 3 {
		b.WriteString("user")
	}
	return b.String() + uuid.NewString()[:4]
}

func (s *Server) startSession(c *fiber.Ctx, u domain.User) error {
	tok, err := s.Tokens.Generate(u.ID, u.Email)
	if err != nil {
		return err
	}
	s.setToken(c, tok)
	applog.Audit(c, "mockapi.signin", map[string]any{"user_id": u.ID})
	return c.JSON(u)
}

func (s *Server) SignOut(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{Name: tokenCookie, Value: "", Path: "/", HTTPOnly: true, Expires: time.Now().Add(-time.Hour)})
	return c.JSON(fiber.Map{"success": true, "message": "User has been logged out"})
}

type userUpdateBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUser takes JSON, or multipart with a "payload" part and an
// optional "avatar" file.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if id != callerID(c) {
		applog.Security(c, "mockapi.user.update.denied", map[string]any{"user_id": callerID(c), "target": id})
		return fail(c, fiber.StatusForbidden, "You can only update your own account")
	}
	row, err := s.Users.ByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	var in userUpdateBody
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Malformed multipart body")
		}
		if p := form.Value["payload"]; len(p) == 1 {
			if err := json.Unmarshal([]byte(p[0]), &in); err != nil {
				return fail(c, fiber.StatusBadRequest, "Malformed payload")
			}
		}
		if fhs := form.File["avatar"]; len(fhs) == 1 {
			u, err := s.storeUpload(c, fhs[0])
			if errors.Is(err, errStore) {
				return err
			}
			if err != nil {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			row.Avatar = u
		}
	} else if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Malformed request")
	}

	if in.Username != "" {
		name, ok := validate.Username(in.Username)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Username must be 3-30 letters, digits, dots, dashes or underscores")
		}
		row.Username = name
	}
	if in.Email != "" {
		email, ok := validate.Email(in.Email)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "A valid email is required")
		}
		row.Email = email
	}
	row.Hash = ""
	if in.Password != "" {
		if !validate.Password(in.Password) {
			return fail(c, fiber.StatusBadRequest, "Password needs 8+ characters with upper, lower, digit and symbol")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		row.Hash = string(h)
	}
	if err := s.Users.Update(*row); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fail(c, fiber.StatusConflict, "Email is already in use")
		}
		return err
	}
	applog.Audit(c, "mockapi.user.update", map[string]any{"user_id": id})
	return c.JSON(row.User)
}

func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if id != callerID(c) {
		applog.Security(c, "mockapi.user.delete.denied", map[string]any{"user_id": callerID(c), "target": id})
		return fail(c, fiber.StatusForbidden, "You can only delete your own account")
	}
	if err := s.Users.DeleteUserCascade(id); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{Name: tokenCookie, Value: "", Path: "/", HTTPOnly: true, Expires: time.Now().Add(-time.Hour)})
	applog.Audit(c, "mockapi.user.delete", map[string]any{"user_id": id})
	return c.JSON(fiber.Map{"success": true, "message": "User has been deleted"})
}
