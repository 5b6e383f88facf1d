// Package enrollment implements the CSR enrollment protocol: issuing
// one-time onboarding tokens and exchanging a valid token plus CSR for a
// gateway-issued certificate (SPEC_FULL.md §4.4).
package enrollment

import (
	"context"
	"crypto/sha256"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/zatca-gateway/internal/domain"
	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
	"github.com/jhoicas/zatca-gateway/internal/gcrypto"
)

// Engine orchestrates token issuance and CSR enrollment.
type Engine struct {
	challenges repository.ChallengeRepository
	ca         *entity.CAMaterial
	tokenTTL   time.Duration
}

func NewEngine(challenges repository.ChallengeRepository, ca *entity.CAMaterial, tokenTTL time.Duration) *Engine {
	return &Engine{challenges: challenges, ca: ca, tokenTTL: tokenTTL}
}

// IssueToken generates a raw token of the form "<companyID>:<uuidv4>",
// stores its SHA-256 hash, and returns the raw token (shown to the caller
// exactly once; the gateway never stores it in recoverable form).
func (e *Engine) IssueToken(ctx context.Context, companyID string) (rawToken string, err error) {
	rawToken = companyID + ":" + uuid.NewString()
	hash := sha256.Sum256([]byte(rawToken))

	challenge := entity.CSRChallenge{
		TokenHash: hash[:],
		CompanyID: companyID,
		ExpiresAt: time.Now().Add(e.tokenTTL),
	}
	if err := e.challenges.Create(ctx, challenge); err != nil {
		return "", fmt.Errorf("enrollment: issue token: %w", err)
	}
	return rawToken, nil
}

// Enroll validates rawToken and csrDER against the stored challenge for the
// CSR's claimed company, then issues a certificate. On success the
// challenge is marked used so it cannot be replayed.
func (e *Engine) Enroll(ctx context.Context, rawToken string, csrDER []byte) (certificatePEM []byte, err error) {
	csr, err := gcrypto.ParseCSR(csrDER)
	if err != nil {
		return nil, err
	}
	companyID, err := gcrypto.CSRCompanyID(csr)
	if err != nil {
		return nil, err
	}

	challenge, found, err := e.challenges.FindUnexpiredUnused(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("enrollment: lookup challenge: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no unexpired, unused challenge for company %s", domain.ErrTokenMismatch, companyID)
	}

	tokenHash := sha256.Sum256([]byte(rawToken))
	if !gcrypto.ConstantTimeEqual(tokenHash[:], challenge.TokenHash) {
		return nil, domain.ErrTokenMismatch
	}

	der, err := gcrypto.IssueCertificate(e.ca, csr)
	if err != nil {
		return nil, fmt.Errorf("enrollment: issue certificate: %w", err)
	}

	if err := e.challenges.MarkUsed(ctx, challenge.TokenHash); err != nil {
		return nil, fmt.Errorf("enrollment: mark challenge used: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}
