// Package repository declares the persistence ports the clearance and
// enrollment engines depend on. Concrete implementations live in
// internal/postgres.
package repository

import (
	"context"

	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
)

// ChallengeRepository persists enrollment challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, c entity.CSRChallenge) error
	FindUnexpiredUnused(ctx context.Context, companyID string) (entity.CSRChallenge, bool, error)
	MarkUsed(ctx context.Context, tokenHash []byte) error
}

// InvoiceRepository persists cleared invoices and answers the PIH chain's
// "what was the last hash for this supplier" question.
type InvoiceRepository interface {
	Create(ctx context.Context, inv entity.Invoice) error
	LatestHashForCompany(ctx context.Context, companyID string) (hash []byte, found bool, err error)
	ListByCompanyPage(ctx context.Context, limit, offset int) ([]entity.Invoice, int, error)
	FindByUUID(ctx context.Context, uuid string) (entity.Invoice, bool, error)
}
