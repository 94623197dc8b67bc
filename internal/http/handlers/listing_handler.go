package handlers

import (
	"strconv"

	"dreamhome/internal/form"
	applog "dreamhome/internal/log"
	"dreamhome/internal/services"
	"dreamhome/internal/session"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// ListingHandler serves the create/edit form. Every button on the form
// posts the whole form, so typed values survive image changes.
type ListingHandler struct {
	Catalog      *services.CatalogService
	MaxFileBytes int64
	SecureCookie bool
}

func (h *ListingHandler) renderForm(c *fiber.Ctx, s *session.Session, status int, errs form.FieldErrors) error {
	f := s.Form()
	title := "Create a Listing"
	if f.Target().IsEdit() {
		title = "Update Listing"
	}
	return render(c.Status(status), "listing_form", fiber.Map{
		"Title":     title,
		"IsEdit":    f.Target().IsEdit(),
		"Fields":    f.Fields,
		"Errors":    errs,
		"Images":    f.Images.Entries(),
		"Max":       f.Images.Max(),
		"Remaining": f.Images.Remaining(),
	})
}

func (h *ListingHandler) Form(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	return h.renderForm(c, s, fiber.StatusOK, nil)
}

// New drops any edit target and opens an empty form.
func (h *ListingHandler) New(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	if err := s.StartNew(); err != nil {
		applog.Error(c, "listing.previews.release", err, nil)
	}
	return c.Redirect("/listing")
}

// Edit fetches one of the user's own listings and loads it into the
// edit session.
func (h *ListingHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Listing not found")
	}
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()

	u := s.User()
	l, err := h.Catalog.Listing(c.UserContext(), id)
	if done, rerr := expired(c, s, err, h.SecureCookie); done {
		return rerr
	}
	if err != nil {
		return notFound(c, "Listing not found")
	}
	if l.UserRef != u.ID {
		applog.Security(c, "listing.edit.denied", map[string]any{"listing": id})
		return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "You can only edit your own listings"})
	}
	if err := s.BeginEdit(l); err != nil {
		applog.Error(c, "listing.previews.release", err, nil)
	}
	return c.Redirect("/listing")
}

// bind copies the posted fields onto the open form and adds any chosen
// files. A batch that does not fit is refused as a whole.
func (h *ListingHandler) bind(c *fiber.Ctx, s *session.Session) form.FieldErrors {
	f := s.Form()
	errs := f.Bind(formValues(c))
	files, err := readFiles(c, "images", h.MaxFileBytes)
	if err != nil {
		s.Flash(err.Error())
		return errs
	}
	if len(files) == 0 {
		return errs
	}
	warn, err := f.Images.AddFiles(files)
	switch {
	case err != nil:
		applog.Error(c, "listing.images.add", err, nil)
		s.Flash("Could not read the selected images")
	case warn != nil:
		s.Flash(warn.String())
	}
	return errs
}

func (h *ListingHandler) AddImages(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	h.bind(c, s)
	return c.Redirect("/listing")
}

func (h *ListingHandler) RemoveImage(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	h.bind(c, s)
	i, err := strconv.Atoi(c.FormValue("index"))
	if err == nil {
		err = s.Form().Images.RemoveAt(i)
	}
	if err != nil {
		applog.Info(c, "listing.images.remove.skip", map[string]any{"index": c.FormValue("index")})
	}
	return c.Redirect("/listing")
}

func (h *ListingHandler) ClearImages(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	h.bind(c, s)
	if err := s.Form().Images.Clear(); err != nil {
		applog.Error(c, "listing.previews.release", err, nil)
	}
	return c.Redirect("/listing")
}

// Submit creates or updates the listing. Field errors re-render the form;
// a remote failure keeps everything as typed and shows the API's message.
func (h *ListingHandler) Submit(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()
	h.bind(c, s)
	target := s.Form().Target()

	res, err := h.Catalog.SubmitForm(c.UserContext(), s, accessToken(c))
	if err != nil {
		// saved, only the preview cleanup failed
		applog.Error(c, "listing.previews.release", err, nil)
	}
	switch {
	case len(res.Errors) > 0:
		fields := make([]string, 0, len(res.Errors))
		for k := range res.Errors {
			fields = append(fields, k)
		}
		applog.Security(c, "validation.fail", map[string]any{"form": "listing", "fields": fields})
		return h.renderForm(c, s, fiber.StatusUnprocessableEntity, res.Errors)
	case res.Saved == nil:
		if done, rerr := expired(c, s, res.Err, h.SecureCookie); done {
			return rerr
		}
		applog.Error(c, "listing.save.fail", res.Err, map[string]any{"edit": target.IsEdit()})
		s.Flash(res.Notice)
		return c.Redirect("/listing")
	}
	action := "listing.create"
	if target.IsEdit() {
		action = "listing.update"
	}
	applog.Audit(c, action, map[string]any{"listing": res.Saved.ID})
	s.Flash(form.SuccessNotice(target))
	return c.Redirect("/show-listing")
}
