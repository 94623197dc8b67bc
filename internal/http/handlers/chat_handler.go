package handlers

import (
	"errors"
	"time"

	"dreamhome/internal/assistant"
	applog "dreamhome/internal/log"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler backs the chat widget. Replies are JSON; the widget renders
// them as text, never as markup.
type ChatHandler struct {
	Assistant   *assistant.Client
	TypingDelay time.Duration
	Now         func() time.Time
}

// Welcome opens a fresh transcript. The widget shows the typing indicator
// for delayMs before the message.
func (h *ChatHandler) Welcome(c *fiber.Ctx) error {
	m := sessionOf(c).Chat.Open(h.Now())
	return c.JSON(fiber.Map{"role": m.Role, "text": m.Text, "delayMs": h.TypingDelay.Milliseconds()})
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	prompt, ok := validate.Prompt(c.FormValue("prompt"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Type a message first"})
	}
	m, sent, err := sessionOf(c).Chat.Send(c.UserContext(), h.Assistant, prompt)
	switch {
	case errors.Is(err, assistant.ErrEmptyPrompt):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Type a message first"})
	case err != nil:
		return err
	case !sent:
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Please wait for the current reply"})
	}
	applog.Info(c, "chat.reply", map[string]any{"chars": len(prompt)})
	return c.JSON(m)
}

// History returns the transcript so a reloaded page can redraw it.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": sessionOf(c).Chat.Messages()})
}
