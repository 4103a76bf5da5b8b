package handlers

import (
	"context"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"

	"github.com/jjenkins/regwatch/internal/model"
)

// maxDays bounds the window length accepted from query strings
const maxDays = 365

// ReportRunner generates reports on demand
type ReportRunner interface {
	Run(ctx context.Context, agency string, days int, asOf time.Time) (*model.Report, error)
	Agencies() []string
	Slugs(alias string) ([]string, error)
}

// ReportReader reads saved report history
type ReportReader interface {
	GetRecent(ctx context.Context, agency string, limit int) ([]model.ReportSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReportSummary, error)
	GetDocuments(ctx context.Context, reportID uuid.UUID) ([]model.StoredDocument, error)
	CountReports(ctx context.Context) (int, error)
}

// MetricsReader reads aggregate report metrics
type MetricsReader interface {
	GetLatestMetrics(ctx context.Context) (map[string]string, error)
}

// Defaults are used when a request omits agency or days
type Defaults struct {
	Agency string
	Days   int
}

// render writes a templ component as the response body, keeping any status already set on c
func render(c *fiber.Ctx, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page, templ.WithStatus(c.Response().StatusCode())))
	return handler(c)
}
