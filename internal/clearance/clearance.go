// Package clearance orchestrates the seven-step invoice clearance pipeline
// (SPEC_FULL.md §4.5): decode, canonicalize, verify hash, verify
// certificate, verify signature, verify the PIH chain, re-sign, persist.
package clearance

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/zatca-gateway/internal/canon"
	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
	"github.com/jhoicas/zatca-gateway/internal/gcrypto"
	"github.com/jhoicas/zatca-gateway/internal/pih"
	"github.com/jhoicas/zatca-gateway/internal/xmlstream"
)

// Engine is stateless aside from its dependencies; one Engine serves every
// request concurrently.
type Engine struct {
	ca      *entity.CAMaterial
	canon   canon.Canonicalizer
	locker  *pih.Locker
	now     func() time.Time
}

func NewEngine(ca *entity.CAMaterial, canonicalizer canon.Canonicalizer, locker *pih.Locker) *Engine {
	return &Engine{ca: ca, canon: canonicalizer, locker: locker, now: time.Now}
}

// Result is what a successful Clear call produces.
type Result struct {
	ClearedInvoiceXML []byte
	InvoiceHash       []byte
}

// Clear runs the full pipeline against rawXML, whose declared hash is
// expectedHash, persisting the outcome through invoices. Any failure aborts
// before persistence.
func (e *Engine) Clear(ctx context.Context, invoiceUUID string, expectedHash []byte, rawXML []byte, invoices repository.InvoiceRepository) (Result, error) {
	if _, err := uuid.Parse(invoiceUUID); err != nil {
		return Result{}, fmt.Errorf("%w: invalid uuid: %v", domain.ErrMalformedEnvelope, err)
	}

	// Step 1: locate signature, certificate, and supplier id.
	sigB64, certB64, err := xmlstream.ExtractSignatureAndCertificate(rawXML)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	companyID, err := xmlstream.ExtractCompanyID(rawXML)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}

	// Step 2: canonicalize the invoice subset and compute its digest.
	subset, err := xmlstream.ExtractInvoiceSubset(rawXML)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	canonicalSubset, err := e.canon.Canonicalize(subset)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	computedHash := gcrypto.ComputeHash(canonicalSubset)

	// Step 3: hash check.
	if !gcrypto.ConstantTimeEqual(computedHash[:], expectedHash) {
		return Result{}, domain.ErrHashMismatch
	}

	// Step 4: certificate chain.
	leafDER, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: certificate is not base64: %v", domain.ErrInvalidCertificate, err)
	}
	leaf, err := parseCertificate(leafDER)
	if err != nil {
		return Result{}, err
	}
	if err := gcrypto.VerifyCertWithCA(e.ca, leaf); err != nil {
		return Result{}, err
	}

	// Step 5: signature.
	signature, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return Result{}, fmt.Errorf("%w: signature is not base64: %v", domain.ErrInvalidSignature, err)
	}
	if err := gcrypto.VerifySignatureWithCert(computedHash[:], signature, leaf); err != nil {
		return Result{}, err
	}

	// Step 6: PIH chain, serialized per supplier.
	unlock := e.locker.Lock(companyID)
	defer unlock()

	if err := e.verifyPIH(ctx, rawXML, companyID, invoices); err != nil {
		return Result{}, err
	}

	// Step 7: re-sign.
	resigned, err := e.resign(rawXML, computedHash[:])
	if err != nil {
		return Result{}, err
	}

	// Step 8: persist.
	if err := invoices.Create(ctx, entity.Invoice{
		UUID:       invoiceUUID,
		Company:    companyID,
		InvoiceB64: base64.StdEncoding.EncodeToString(resigned),
		Hash:       computedHash[:],
	}); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return Result{ClearedInvoiceXML: resigned, InvoiceHash: computedHash[:]}, nil
}

// bootstrapPIH is SHA-256("0"), the expected chain root for a supplier's
// first-ever invoice.
func bootstrapPIH() [32]byte {
	return gcrypto.ComputeHash([]byte("0"))
}

func (e *Engine) verifyPIH(ctx context.Context, rawXML []byte, companyID string, invoices repository.InvoiceRepository) error {
	pihB64, err := xmlstream.ExtractPIH(rawXML)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	submittedPIH, err := base64.StdEncoding.DecodeString(pihB64)
	if err != nil {
		return fmt.Errorf("%w: pih is not base64: %v", domain.ErrMalformedXML, err)
	}

	expected, found, err := invoices.LatestHashForCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if !found {
		boot := bootstrapPIH()
		expected = boot[:]
	}

	if !gcrypto.ConstantTimeEqual(submittedPIH, expected) {
		return domain.ErrPihMismatch
	}
	return nil
}

// resign runs SPEC_FULL.md §4.5 step 7: refresh SigningTime, recompute the
// two SignedInfo digests, sign SignedInfo with the gateway's CA key, and
// embed the new signature value.
func (e *Engine) resign(rawXML []byte, invoiceDigest []byte) ([]byte, error) {
	xml1, err := xmlstream.EditSigningTime(rawXML, e.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}

	sp, err := xmlstream.ExtractSignedProperties(xml1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	canonicalSP, err := e.canon.Canonicalize(sp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	spDigest := gcrypto.ComputeHash(canonicalSP)

	xml2, err := xmlstream.EditSignedInfo(xml1,
		base64.StdEncoding.EncodeToString(invoiceDigest),
		base64.StdEncoding.EncodeToString(spDigest[:]),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}

	si, err := xmlstream.ExtractSignedInfo(xml2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	canonicalSI, err := e.canon.Canonicalize(si)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}

	siDigest := gcrypto.ComputeHash(canonicalSI)

	signature, err := gcrypto.SignDigest(e.ca, siDigest[:])
	if err != nil {
		return nil, err
	}

	xml3, err := xmlstream.EditSignature(xml2, base64.StdEncoding.EncodeToString(signature))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	return xml3, nil
}
