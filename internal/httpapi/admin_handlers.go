package httpapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zatca-gateway/internal/clearcert"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
	"github.com/jhoicas/zatca-gateway/internal/dto"
)

// AdminHandlers implements the supplemental operator endpoints carried from
// original_source's dropped debug routes (SPEC_FULL.md §4.9). They never
// touch the clearance or enrollment engines directly, only the invoice
// repository, read-only.
type AdminHandlers struct {
	Invoices repository.InvoiceRepository
}

type adminInvoiceSummary struct {
	UUID      string `json:"uuid"`
	Company   string `json:"company"`
	CreatedAt string `json:"created_at"`
}

type adminInvoiceListResponse struct {
	Count    int                    `json:"count"`
	Invoices []adminInvoiceSummary `json:"invoices"`
}

// ListInvoices answers GET /admin/invoices.
func (h *AdminHandlers) ListInvoices(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	invoices, total, err := h.Invoices.ListByCompanyPage(c.Context(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "could not list invoices"})
	}

	out := adminInvoiceListResponse{Count: total, Invoices: make([]adminInvoiceSummary, 0, len(invoices))}
	for _, inv := range invoices {
		out.Invoices = append(out.Invoices, adminInvoiceSummary{
			UUID:      inv.UUID,
			Company:   inv.Company,
			CreatedAt: inv.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(out)
}

// CertificatePDF answers GET /admin/invoices/:uuid/certificate.pdf.
func (h *AdminHandlers) CertificatePDF(c *fiber.Ctx) error {
	id := c.Params("uuid")
	inv, found, err := h.Invoices.FindByUUID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "could not load invoice"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "invoice not found"})
	}

	pdfBytes, err := clearcert.Render(inv)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "could not render certificate"})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s-certificate.pdf"`, inv.UUID))
	return c.Send(pdfBytes)
}
