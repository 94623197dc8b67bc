package backend

import (
	"fmt"
	"strings"

	"dreamhome/internal/domain"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type chatBody struct {
	Prompt string `json:"prompt"`
}

// Chat answers with a canned reply built from the stored listings, in
// place of the hosted model.
func (s *Server) Chat(c *fiber.Ctx) error {
	var in chatBody
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "AI failed to respond"})
	}
	prompt, ok := validate.Prompt(in.Prompt)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prompt is required"})
	}
	ls, err := s.Listings.All()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "AI failed to respond"})
	}
	return c.JSON(fiber.Map{"text": cannedReply(prompt, ls)})
}

func cannedReply(prompt string, ls []domain.Listing) string {
	p := strings.ToLower(prompt)
	var rent, sale, offers int
	for _, l := range ls {
		switch {
		case l.Type.Is(domain.TypeRent):
			rent++
		case l.Type.Is(domain.TypeSale):
			sale++
		}
		if l.HasDiscount() {
			offers++
		}
	}
	switch {
	case strings.Contains(p, "rent"):
		return fmt.Sprintf("There are %d homes for rent right now. Tell me your budget and preferred area and I will narrow them down.", rent)
	case strings.Contains(p, "buy") || strings.Contains(p, "sale"):
		return fmt.Sprintf("There are %d homes for sale right now. How many bedrooms do you need?", sale)
	case strings.Contains(p, "offer") || strings.Contains(p, "discount") || strings.Contains(p, "deal"):
		return fmt.Sprintf("%d listings currently have a discounted offer price.", offers)
	}
	return fmt.Sprintf("We have %d listings: %d for rent and %d for sale. What are you looking for?", len(ls), rent, sale)
}
