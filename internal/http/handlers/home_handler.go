package handlers

import (
	applog "dreamhome/internal/log"
	"dreamhome/internal/services"

	"github.com/gofiber/fiber/v2"
)

type HomeHandler struct {
	Catalog *services.CatalogService
}

// Home renders the offer, rent and sale sections from one fetch. A failed
// fetch still renders the page with placeholder cards.
func (h *HomeHandler) Home(c *fiber.Ctx) error {
	home, err := h.Catalog.Home(c.UserContext())
	data := fiber.Map{"Offers": home.Offers, "Rent": home.Rent, "Sale": home.Sale}
	if err != nil {
		applog.Error(c, "home.fetch", err, nil)
		data["Err"] = "Listings could not be loaded right now."
	}
	return render(c, "home", data)
}
