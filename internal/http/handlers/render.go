package handlers

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"dreamhome/internal/session"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	if s, ok := c.Locals("session").(*session.Session); ok {
		if _, set := data["Notices"]; !set {
			data["Notices"] = s.TakeFlash()
		}
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		// The cookie still carries the token when Locals was not populated.
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// NewEngine loads the templates under dir with the helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("price", formatPrice)
	engine.AddFunc("num", func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) })
	engine.AddFunc("inc", func(i int) int { return i + 1 })
	engine.AddFunc("imgsrc", imageSrc)
	return engine
}

// imageSrc lets inline previews through the URL sanitizer. Only image
// data URLs are trusted; anything else is escaped as usual.
func imageSrc(src string) any {
	if strings.HasPrefix(src, "data:image/") && !strings.HasPrefix(src, "data:image/svg") {
		return template.URL(src)
	}
	return src
}

// formatPrice renders 1234567.5 as "1,234,567.50" and whole amounts
// without decimals.
func formatPrice(v float64) string {
	p := message.NewPrinter(language.English)
	cents := math.Round(v * 100)
	if math.Mod(cents, 100) == 0 {
		return p.Sprintf("%.0f", cents/100)
	}
	return p.Sprintf("%.2f", cents/100)
}
