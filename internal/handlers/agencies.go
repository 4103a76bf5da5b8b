package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/regwatch/internal/templates"
)

// AgenciesHandler lists the configured agency aliases with their slugs
func AgenciesHandler(runner ReportRunner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		aliases := runner.Agencies()
		slugs := make(map[string][]string, len(aliases))
		for _, alias := range aliases {
			s, err := runner.Slugs(alias)
			if err != nil {
				c.Status(fiber.StatusInternalServerError)
				return render(c, templates.Error("Agencies", "Error loading agencies"))
			}
			slugs[alias] = s
		}

		// JSON for API clients
		if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
			return c.JSON(slugs)
		}

		return render(c, templates.Agencies(aliases, slugs))
	}
}
