package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zatca-gateway/internal/clearance"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
	"github.com/jhoicas/zatca-gateway/internal/enrollment"
)

// RouterDeps collects the dependencies the router wires into handlers.
type RouterDeps struct {
	Clearance        *clearance.Engine
	Enrollment       *enrollment.Engine
	Invoices         repository.InvoiceRepository
	AdminTokenSecret string
}

// Router registers every endpoint in SPEC_FULL.md §6: the mandatory
// clearance/enrollment surface plus the supplemental operator routes. The
// operator routes under /admin are registered only when AdminTokenSecret is
// non-empty.
func Router(app *fiber.App, deps RouterDeps) {
	h := &Handlers{Clearance: deps.Clearance, Enrollment: deps.Enrollment, Invoices: deps.Invoices}

	app.Get("/", h.Root)
	app.Get("/health_check", h.HealthCheck)
	app.Post("/onboard", h.Onboard)
	app.Post("/enroll", h.Enroll)
	app.Post("/submit_invoice", h.SubmitInvoice)

	if deps.AdminTokenSecret != "" {
		admin := &AdminHandlers{Invoices: deps.Invoices}
		adminGroup := app.Group("/admin", AdminAuthMiddleware(deps.AdminTokenSecret))
		adminGroup.Get("/invoices", admin.ListInvoices)
		adminGroup.Get("/invoices/:uuid/certificate.pdf", admin.CertificatePDF)
	}
}
