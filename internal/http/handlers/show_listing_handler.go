package handlers

import (
	"dreamhome/internal/apiclient"
	"dreamhome/internal/confirm"
	applog "dreamhome/internal/log"
	"dreamhome/internal/services"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const actionDeleteListing = "listing.delete"

// ShowListingHandler serves the owned-listings screen, listing details and
// the delete confirmation.
type ShowListingHandler struct {
	Catalog      *services.CatalogService
	SecureCookie bool
}

func (h *ShowListingHandler) Owned(c *fiber.Ctx) error {
	s := sessionOf(c)
	s.Lock()
	defer s.Unlock()

	owned, err := h.Catalog.Owned(c.UserContext(), s, accessToken(c))
	if done, rerr := expired(c, s, err, h.SecureCookie); done {
		return rerr
	}
	data := fiber.Map{"Listings": owned.Items()}
	if err != nil {
		applog.Error(c, "listing.owned.fetch", err, nil)
		data["Err"] = "Error showing listings"
	}
	return render(c, "show_listing", data)
}

func (h *ShowListingHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Listing not found")
	}
	l, err := h.Catalog.Listing(c.UserContext(), id)
	if apiclient.IsStatus(err, fiber.StatusNotFound) {
		return notFound(c, "Listing not found")
	}
	if err != nil {
		return err
	}
	return render(c, "listing_detail", fiber.Map{"Listing": l})
}

// DeleteConfirm asks before deleting.
func (h *ShowListingHandler) DeleteConfirm(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Listing not found")
	}
	s := sessionOf(c)
	cf := s.Confirms.Open(actionDeleteListing, id, "Are you sure you want to delete this listing?")
	return render(c, "confirm", fiber.Map{
		"Title":  "Delete listing",
		"Prompt": cf.Prompt,
		"Token":  cf.Token,
		"Action": "/listing/delete/" + id,
		"Back":   "/show-listing",
	})
}

// Delete resolves the confirmation. The owned list loses the entry only
// when the remote delete succeeds.
func (h *ShowListingHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Listing not found")
	}
	s := sessionOf(c)
	cf, err := s.Confirms.Resolve(c.FormValue("token"), actionDeleteListing, id, c.FormValue("answer") == "yes")
	if err != nil {
		applog.Security(c, "confirm.unknown", map[string]any{"action": actionDeleteListing})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "This request has expired. Please try again."})
	}
	if cf.State() != confirm.Confirmed {
		return c.Redirect("/show-listing")
	}

	s.Lock()
	defer s.Unlock()
	err = h.Catalog.Delete(c.UserContext(), s, accessToken(c), id)
	if done, rerr := expired(c, s, err, h.SecureCookie); done {
		return rerr
	}
	if err != nil {
		applog.Error(c, "listing.delete.fail", err, map[string]any{"listing": id})
		s.Flash(apiNotice(err, "Failed to delete listing"))
		return c.Redirect("/show-listing")
	}
	applog.Audit(c, "listing.delete", map[string]any{"listing": id})
	s.Flash("Listing deleted successfully!")
	return c.Redirect("/show-listing")
}
