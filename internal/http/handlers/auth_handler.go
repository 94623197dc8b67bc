package handlers

import (
	"errors"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/confirm"
	"dreamhome/internal/guard"
	"dreamhome/internal/log"
	"dreamhome/internal/services"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const actionSignOut = "auth.signout"

type AuthHandler struct {
	Auth         *services.AuthService
	SecureCookie bool
}

func (h *AuthHandler) SignInForm(c *fiber.Ctx) error {
	return render(c, "signin", fiber.Map{"Err": ""})
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	fail := func(msg string) error {
		return render(c.Status(fiber.StatusUnauthorized), "signin", fiber.Map{"Err": msg, "Email": email})
	}
	if _, ok := validate.Email(email); !ok {
		log.Security(c, "auth.signin.fail", map[string]any{"email": email, "reason": "bad_format"})
		return fail("Invalid email or password")
	}
	if !validate.Password(pass) {
		log.Security(c, "auth.signin.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return fail("Invalid email or password")
	}

	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	tok, err := h.Auth.SignIn(c.UserContext(), s, email, pass)
	if errors.Is(err, services.ErrBadCreds) {
		log.Security(c, "auth.signin.fail", map[string]any{"email": email})
		return fail("Invalid email or password")
	}
	if err != nil {
		log.Error(c, "auth.signin.error", err, map[string]any{"email": email})
		return fail(apiNotice(err, "Sign in failed. Please try again."))
	}
	setAccessToken(c, tok, h.SecureCookie)
	log.Audit(c, "auth.signin.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) SignUpForm(c *fiber.Ctx) error {
	return render(c, "signup", fiber.Map{"Err": ""})
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	in := apiclient.SignUpRequest{Password: c.FormValue("password")}
	var okName, okEmail bool
	in.Username, okName = validate.Username(c.FormValue("username"))
	in.Email, okEmail = validate.Email(c.FormValue("email"))
	redo := func(status int, msg string) error {
		return render(c.Status(status), "signup", fiber.Map{"Err": msg, "Username": c.FormValue("username"), "Email": c.FormValue("email")})
	}
	switch {
	case !okName:
		log.Security(c, "validation.fail", map[string]any{"form": "signup", "fields": []string{"username"}})
		return redo(fiber.StatusUnprocessableEntity, "Username must be 3-30 letters, digits, dots, dashes or underscores")
	case !okEmail:
		log.Security(c, "validation.fail", map[string]any{"form": "signup", "fields": []string{"email"}})
		return redo(fiber.StatusUnprocessableEntity, "Enter a valid email address")
	case !validate.Password(in.Password):
		log.Security(c, "validation.fail", map[string]any{"form": "signup", "fields": []string{"password"}})
		return redo(fiber.StatusUnprocessableEntity, "Password needs 8-64 characters with upper and lower case letters, a digit and a symbol")
	}

	if err := h.Auth.SignUp(c.UserContext(), in); err != nil {
		log.Security(c, "auth.signup.fail", map[string]any{"email": in.Email})
		return redo(fiber.StatusBadRequest, apiNotice(err, "Sign up failed. Please try again."))
	}
	log.Audit(c, "auth.signup", map[string]any{"email": in.Email})
	sessionOf(c).Flash("Account created. Please sign in.")
	return c.Redirect("/sign-in")
}

// Google receives the profile the identity-provider popup produced.
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	p := apiclient.GoogleProfile{Name: c.FormValue("name"), Image: c.FormValue("image")}
	email, ok := validate.Email(c.FormValue("email"))
	if !ok || p.Name == "" {
		log.Security(c, "auth.google.fail", map[string]any{"reason": "bad_profile"})
		return render(c.Status(fiber.StatusBadRequest), "signin", fiber.Map{"Err": "Can't login with google"})
	}
	p.Email = email

	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	tok, err := h.Auth.Google(c.UserContext(), s, p)
	if err != nil {
		log.Error(c, "auth.google.error", err, map[string]any{"email": email})
		return render(c.Status(fiber.StatusUnauthorized), "signin", fiber.Map{"Err": apiNotice(err, "Can't login with google")})
	}
	setAccessToken(c, tok, h.SecureCookie)
	log.Audit(c, "auth.google.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) SignOutConfirm(c *fiber.Ctx) error {
	s := sessionOf(c)
	cf := s.Confirms.Open(actionSignOut, s.ID, "Are you sure you want to sign out?")
	return render(c, "confirm", fiber.Map{
		"Title":  "Sign out",
		"Prompt": cf.Prompt,
		"Token":  cf.Token,
		"Action": "/sign-out",
		"Back":   "/profile",
	})
}

// SignOut ends the session once confirmed. The guard picks the
// destination.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	s := sessionOf(c)
	cf, err := s.Confirms.Resolve(c.FormValue("token"), actionSignOut, s.ID, c.FormValue("answer") == "yes")
	if err != nil {
		log.Security(c, "confirm.unknown", map[string]any{"action": actionSignOut})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "This request has expired. Please try again."})
	}
	if cf.State() != confirm.Confirmed {
		return c.Redirect("/profile")
	}

	s.Lock()
	defer s.Unlock()
	h.Auth.SignOut(s)
	clearAccessToken(c, h.SecureCookie)
	log.Audit(c, "auth.signout", map[string]any{"sid": s.ID})
	target := s.TakeRedirect()
	if target == "" {
		target = guard.SignInPath
	}
	return c.Redirect(target)
}
