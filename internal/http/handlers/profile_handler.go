package handlers

import (
	"strings"

	"dreamhome/internal/apiclient"
	"dreamhome/internal/confirm"
	"dreamhome/internal/guard"
	"dreamhome/internal/images"
	applog "dreamhome/internal/log"
	"dreamhome/internal/services"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const actionDeleteAccount = "user.delete"

type ProfileHandler struct {
	Auth         *services.AuthService
	SecureCookie bool
	MaxFileBytes int64
}

func (h *ProfileHandler) View(c *fiber.Ctx) error {
	return render(c, "profile", fiber.Map{"Err": ""})
}

// Update changes only the fields that were filled in. An avatar file, when
// chosen, goes up with the same request.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var in apiclient.UserUpdate
	bad := func(field, msg string) error {
		applog.Security(c, "validation.fail", map[string]any{"form": "profile", "fields": []string{field}})
		return render(c.Status(fiber.StatusUnprocessableEntity), "profile", fiber.Map{"Err": msg})
	}
	if v := strings.TrimSpace(c.FormValue("username")); v != "" {
		name, ok := validate.Username(v)
		if !ok {
			return bad("username", "Username must be 3-30 letters, digits, dots, dashes or underscores")
		}
		in.Username = name
	}
	if v := strings.TrimSpace(c.FormValue("email")); v != "" {
		email, ok := validate.Email(v)
		if !ok {
			return bad("email", "Enter a valid email address")
		}
		in.Email = email
	}
	if v := c.FormValue("password"); v != "" {
		if !validate.Password(v) {
			return bad("password", "Password needs 8-64 characters with upper and lower case letters, a digit and a symbol")
		}
		in.Password = v
	}
	files, err := readFiles(c, "avatar", h.MaxFileBytes)
	if err != nil {
		return bad("avatar", err.Error())
	}
	var avatar *images.LocalFile
	if len(files) > 0 {
		avatar = &files[0]
	}

	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	_, err = h.Auth.UpdateProfile(c.UserContext(), s, accessToken(c), in, avatar)
	if done, rerr := expired(c, s, err, h.SecureCookie); done {
		return rerr
	}
	if err != nil {
		applog.Error(c, "user.update.fail", err, nil)
		return render(c.Status(fiber.StatusBadRequest), "profile", fiber.Map{"Err": apiNotice(err, "Failed to update profile")})
	}
	applog.Audit(c, "user.update", map[string]any{"avatar": avatar != nil})
	s.Flash("User is updated successfully!")
	return c.Redirect("/profile")
}

func (h *ProfileHandler) DeleteConfirm(c *fiber.Ctx) error {
	s := sessionOf(c)
	cf := s.Confirms.Open(actionDeleteAccount, s.User().ID, "Are you sure you want to delete your account? This cannot be undone.")
	return render(c, "confirm", fiber.Map{
		"Title":  "Delete account",
		"Prompt": cf.Prompt,
		"Token":  cf.Token,
		"Action": "/profile/delete",
		"Back":   "/profile",
	})
}

func (h *ProfileHandler) Delete(c *fiber.Ctx) error {
	s := sessionOf(c)
	cf, err := s.Confirms.Resolve(c.FormValue("token"), actionDeleteAccount, s.User().ID, c.FormValue("answer") == "yes")
	if err != nil {
		applog.Security(c, "confirm.unknown", map[string]any{"action": actionDeleteAccount})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "This request has expired. Please try again."})
	}
	if cf.State() != confirm.Confirmed {
		return c.Redirect("/profile")
	}

	s.Lock()
	defer s.Unlock()
	err = h.Auth.DeleteAccount(c.UserContext(), s, accessToken(c))
	if done, rerr := expired(c, s, err, h.SecureCookie); done {
		return rerr
	}
	if err != nil {
		applog.Error(c, "user.delete.fail", err, nil)
		s.Flash(apiNotice(err, "Failed to delete account"))
		return c.Redirect("/profile")
	}
	clearAccessToken(c, h.SecureCookie)
	applog.Audit(c, "user.delete", nil)
	target := s.TakeRedirect()
	if target == "" {
		target = guard.SignInPath
	}
	return c.Redirect(target)
}
