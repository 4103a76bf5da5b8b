package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/templates"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

const persistenceDisabled = "Report history is disabled. Set DATABASE_URL to store reports."

// HistoryHandler lists saved reports, optionally filtered by ?agency=
func HistoryHandler(reports ReportReader, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if reports == nil {
			return render(c, templates.Error("History", persistenceDisabled))
		}

		agency := strings.ToUpper(strings.TrimSpace(c.Query("agency")))
		limit := c.QueryInt("limit", defaultHistoryLimit)
		if limit < 1 || limit > maxHistoryLimit {
			limit = defaultHistoryLimit
		}

		summaries, err := reports.GetRecent(c.UserContext(), agency, limit)
		if err != nil {
			log.Error("Failed to load report history", logger.Error(err))
			c.Status(fiber.StatusInternalServerError)
			return render(c, templates.Error("History", "Error loading report history"))
		}

		return render(c, templates.History(summaries, agency))
	}
}

// ReportDetailHandler renders one saved report and its documents
func ReportDetailHandler(reports ReportReader, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if reports == nil {
			c.Status(fiber.StatusNotFound)
			return render(c, templates.Error("Report", persistenceDisabled))
		}

		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			c.Status(fiber.StatusBadRequest)
			return render(c, templates.Error("Report", "Invalid report id"))
		}

		ctx := c.UserContext()
		summary, err := reports.GetByID(ctx, id)
		if err != nil {
			log.Error("Failed to load report", logger.String("id", id.String()), logger.Error(err))
			c.Status(fiber.StatusInternalServerError)
			return render(c, templates.Error("Report", "Error loading report"))
		}
		if summary == nil {
			c.Status(fiber.StatusNotFound)
			return render(c, templates.Error("Report", "Report not found"))
		}

		docs, err := reports.GetDocuments(ctx, id)
		if err != nil {
			log.Error("Failed to load report documents", logger.String("id", id.String()), logger.Error(err))
			c.Status(fiber.StatusInternalServerError)
			return render(c, templates.Error("Report", "Error loading report documents"))
		}

		return render(c, templates.ReportDetail(summary, docs))
	}
}
