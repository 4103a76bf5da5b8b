package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/templates"
)

// HomeHandler renders the comparison form and, when history is stored, aggregate metrics.
// reports and metrics may be nil when no database is configured.
func HomeHandler(runner ReportRunner, reports ReportReader, metrics MetricsReader, defaults Defaults, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		home := templates.HomeMetrics{
			Agencies:      runner.Agencies(),
			DefaultAgency: defaults.Agency,
			DefaultDays:   defaults.Days,
		}

		if reports != nil {
			total, err := reports.CountReports(ctx)
			if err != nil {
				log.Warn("Failed to count reports", logger.Error(err))
			} else {
				home.TotalReports = total
				home.HasData = total > 0
			}
		}

		if home.HasData && metrics != nil {
			stored, err := metrics.GetLatestMetrics(ctx)
			if err != nil {
				log.Warn("Failed to load metrics", logger.Error(err))
			} else {
				home.TotalNewDocuments = stored["total_new_documents"]
				home.BusiestAgency = stored["busiest_agency"]
			}
		}

		return render(c, templates.Home(home))
	}
}
