// Package dto decodes and validates the JSON envelopes the HTTP surface
// accepts and returns.
package dto

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/zatca-gateway/internal/domain"
)

// SubmitInvoiceRequest is the inbound /submit_invoice body.
type SubmitInvoiceRequest struct {
	UUID         string `json:"uuid"`
	InvoiceHash  string `json:"invoice_hash"`
	Invoice      string `json:"invoice"`
}

// Decoded is the parsed and base64-decoded form of SubmitInvoiceRequest.
type Decoded struct {
	UUID        string
	InvoiceHash []byte
	InvoiceXML  []byte
}

// Decode validates and base64-decodes r.
func (r SubmitInvoiceRequest) Decode() (Decoded, error) {
	if r.UUID == "" || r.InvoiceHash == "" || r.Invoice == "" {
		return Decoded{}, fmt.Errorf("%w: missing uuid, invoice_hash, or invoice", domain.ErrMalformedEnvelope)
	}
	if _, err := uuid.Parse(r.UUID); err != nil {
		return Decoded{}, fmt.Errorf("%w: invalid uuid: %v", domain.ErrMalformedEnvelope, err)
	}
	hash, err := base64.StdEncoding.DecodeString(r.InvoiceHash)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: invoice_hash is not base64: %v", domain.ErrMalformedEnvelope, err)
	}
	xmlBytes, err := base64.StdEncoding.DecodeString(r.Invoice)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: invoice is not base64: %v", domain.ErrMalformedEnvelope, err)
	}
	return Decoded{UUID: r.UUID, InvoiceHash: hash, InvoiceXML: xmlBytes}, nil
}

// ValidationMessage mirrors ZATCA's XSD validation report shape.
type ValidationMessage struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Status   string `json:"status"`
}

// ValidationResults is the validation_results block of SubmitInvoiceResponse.
type ValidationResults struct {
	InfoMessages    []ValidationMessage `json:"infoMessages"`
	WarningMessages []ValidationMessage `json:"warningMessages"`
	ErrorMessages   []ValidationMessage `json:"errorMessages"`
	ValidationStatus string             `json:"validationStatus"`
}

// SubmitInvoiceResponse is the /submit_invoice success body.
type SubmitInvoiceResponse struct {
	ClearenceStatus   string            `json:"clearenceStatus"`
	ClearedInvoice    string            `json:"clearedInvoice"`
	ValidationResults ValidationResults `json:"validationResults"`
}

// NewClearedResponse builds the standard "cleared, XSD pass" response.
func NewClearedResponse(clearedInvoiceB64 string) SubmitInvoiceResponse {
	return SubmitInvoiceResponse{
		ClearenceStatus: "CLEARED",
		ClearedInvoice:  clearedInvoiceB64,
		ValidationResults: ValidationResults{
			InfoMessages: []ValidationMessage{{
				Type:     "INFO",
				Code:     "XSD_VALIDATION",
				Category: "STRUCTURE",
				Message:  "XSD validation passed",
				Status:   "PASS",
			}},
			WarningMessages:  []ValidationMessage{},
			ErrorMessages:    []ValidationMessage{},
			ValidationStatus: "PASS",
		},
	}
}

// OnboardRequest is the inbound /onboard body.
type OnboardRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"company_id"`
}

// OnboardResponse is the /onboard success body.
type OnboardResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// EnrollRequest is the inbound /enroll body. CSR is base64 DER.
type EnrollRequest struct {
	Token string `json:"token"`
	CSR   string `json:"csr"`
}

// EnrollResponse is the /enroll success body.
type EnrollResponse struct {
	Certificate string `json:"certificate"`
	Status      string `json:"status"`
}

// ErrorResponse is the uniform error body across the HTTP surface.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
