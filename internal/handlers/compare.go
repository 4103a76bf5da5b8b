package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/model"
	"github.com/jjenkins/regwatch/internal/service"
	"github.com/jjenkins/regwatch/internal/templates"
)

// errUpstream is shown to clients instead of raw fetch errors
var errUpstream = errors.New("the Federal Register could not be reached, try again later")

// CompareHandler renders a live comparison for ?agency=&days=
func CompareHandler(runner ReportRunner, defaults Defaults, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, status, err := runComparison(c, runner, defaults, log)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, service.ErrUnknownAgency) {
				msg += ". Known agencies: " + strings.Join(runner.Agencies(), ", ")
			}
			c.Status(status)
			return render(c, templates.Error("Comparison failed", msg))
		}
		return render(c, templates.Comparison(report, runner.Agencies()))
	}
}

// CompareAPIHandler returns a live comparison as JSON
func CompareAPIHandler(runner ReportRunner, defaults Defaults, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, status, err := runComparison(c, runner, defaults, log)
		if errors.Is(err, service.ErrUnknownAgency) {
			return c.Status(status).JSON(fiber.Map{"error": err.Error(), "agencies": runner.Agencies()})
		}
		if err != nil {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(report)
	}
}

// runComparison parses the query and runs the report, mapping failures to a status code
func runComparison(c *fiber.Ctx, runner ReportRunner, defaults Defaults, log logger.Logger) (*model.Report, int, error) {
	agency := strings.ToUpper(strings.TrimSpace(c.Query("agency", defaults.Agency)))
	days := c.QueryInt("days", defaults.Days)
	if days < 1 || days > maxDays {
		return nil, fiber.StatusBadRequest, fmt.Errorf("days must be between 1 and %d", maxDays)
	}

	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := model.ParseDay(raw)
		if err != nil {
			return nil, fiber.StatusBadRequest, errors.New("as_of must be a YYYY-MM-DD date")
		}
		asOf = parsed
	}

	report, err := runner.Run(c.UserContext(), agency, days, asOf)
	switch {
	case errors.Is(err, service.ErrUnknownAgency):
		return nil, fiber.StatusNotFound, err
	case errors.Is(err, model.ErrInvalidWindow):
		return nil, fiber.StatusBadRequest, err
	case err != nil:
		log.Error("Failed to generate report", logger.String("agency", agency), logger.Error(err))
		return nil, fiber.StatusBadGateway, errUpstream
	}

	return report, fiber.StatusOK, nil
}
