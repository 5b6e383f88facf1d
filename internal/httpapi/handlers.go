package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zatca-gateway/internal/clearance"
	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
	"github.com/jhoicas/zatca-gateway/internal/dto"
	"github.com/jhoicas/zatca-gateway/internal/enrollment"
)

// Handlers groups the handlers for the mandatory endpoints (SPEC_FULL.md §6).
type Handlers struct {
	Clearance  *clearance.Engine
	Enrollment *enrollment.Engine
	Invoices   repository.InvoiceRepository
}

// HealthCheck answers GET /health_check.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// Onboard answers POST /onboard: issues a one-time enrollment token.
func (h *Handlers) Onboard(c *fiber.Ctx) error {
	var in dto.OnboardRequest
	if err := c.BodyParser(&in); err != nil || in.CompanyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "company_id is required"})
	}
	token, err := h.Enrollment.IssueToken(c.Context(), in.CompanyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "could not issue token"})
	}
	return c.JSON(dto.OnboardResponse{Message: "token issued", Token: token})
}

// Enroll answers POST /enroll: exchanges a token and CSR for a certificate.
func (h *Handlers) Enroll(c *fiber.Ctx) error {
	var in dto.EnrollRequest
	if err := c.BodyParser(&in); err != nil || in.Token == "" || in.CSR == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "token and csr are required"})
	}
	csrDER, err := decodeBase64(in.CSR)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_CSR", Message: "csr is not base64"})
	}

	certPEM, err := h.Enrollment.Enroll(c.Context(), in.Token, csrDER)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: errorCode(err), Message: "enrollment failed"})
	}
	return c.JSON(dto.EnrollResponse{
		Certificate: encodeBase64(certPEM),
		Status:      "enrolled",
	})
}

// SubmitInvoice answers POST /submit_invoice: runs the clearance pipeline.
func (h *Handlers) SubmitInvoice(c *fiber.Ctx) error {
	var in dto.SubmitInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "malformed request body"})
	}
	decoded, err := in.Decode()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: errorCode(err), Message: err.Error()})
	}

	result, err := h.Clearance.Clear(c.Context(), decoded.UUID, decoded.InvoiceHash, decoded.InvoiceXML, h.Invoices)
	if err != nil {
		status := statusFor(err)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			// never echo wrapped database or CA errors back to the client
			message = "internal error"
		}
		return c.Status(status).JSON(dto.ErrorResponse{Code: errorCode(err), Message: message})
	}

	return c.JSON(dto.NewClearedResponse(encodeBase64(result.ClearedInvoiceXML)))
}

// Root answers the unauthenticated GET / liveness greeting (SPEC_FULL.md §4.9).
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.SendString("zatca-gateway is running")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedEnvelope), errors.Is(err, domain.ErrMalformedXML),
		errors.Is(err, domain.ErrInvalidCertificate), errors.Is(err, domain.ErrInvalidCSR),
		errors.Is(err, domain.ErrTokenMismatch), errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrPihMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrHashMismatch):
		return fiber.StatusNotAcceptable
	case errors.Is(err, domain.ErrCaUnavailable), errors.Is(err, domain.ErrPersistence):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedEnvelope):
		return "MALFORMED_ENVELOPE"
	case errors.Is(err, domain.ErrMalformedXML):
		return "MALFORMED_XML"
	case errors.Is(err, domain.ErrInvalidCertificate):
		return "INVALID_CERTIFICATE"
	case errors.Is(err, domain.ErrInvalidCSR):
		return "INVALID_CSR"
	case errors.Is(err, domain.ErrTokenMismatch):
		return "TOKEN_MISMATCH"
	case errors.Is(err, domain.ErrHashMismatch):
		return "HASH_MISMATCH"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, domain.ErrPihMismatch):
		return "PIH_MISMATCH"
	case errors.Is(err, domain.ErrCaUnavailable):
		return "CA_UNAVAILABLE"
	case errors.Is(err, domain.ErrPersistence):
		return "PERSISTENCE"
	default:
		return "INTERNAL"
	}
}
