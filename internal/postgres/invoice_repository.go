package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
	"github.com/jhoicas/zatca-gateway/internal/domain/repository"
)

// InvoiceRepository implements repository.InvoiceRepository over a Querier.
type InvoiceRepository struct {
	q Querier
}

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

func NewInvoiceRepository(q Querier) *InvoiceRepository {
	return &InvoiceRepository{q: q}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv entity.Invoice) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO invoices (uuid, invoiceb64, hash, company) VALUES ($1, $2, $3, $4)`,
		inv.UUID, inv.InvoiceB64, inv.Hash, inv.Company,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: invoice %s already cleared: %w", inv.UUID, err)
		}
		return fmt.Errorf("postgres: insert invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) LatestHashForCompany(ctx context.Context, companyID string) ([]byte, bool, error) {
	row := r.q.QueryRow(ctx,
		`SELECT hash FROM invoices WHERE company = $1 ORDER BY created_at DESC LIMIT 1`,
		companyID,
	)
	var hash []byte
	if err := row.Scan(&hash); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgres: latest hash for company: %w", err)
	}
	return hash, true, nil
}

func (r *InvoiceRepository) ListByCompanyPage(ctx context.Context, limit, offset int) ([]entity.Invoice, int, error) {
	rows, err := r.q.Query(ctx,
		`SELECT uuid, company, invoiceb64, hash, created_at FROM invoices
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list invoices: %w", err)
	}
	defer rows.Close()

	var out []entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		if err := rows.Scan(&inv.UUID, &inv.Company, &inv.InvoiceB64, &inv.Hash, &inv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("postgres: scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: list invoices: %w", err)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: count invoices: %w", err)
	}
	return out, total, nil
}

func (r *InvoiceRepository) FindByUUID(ctx context.Context, uuid string) (entity.Invoice, bool, error) {
	row := r.q.QueryRow(ctx,
		`SELECT uuid, company, invoiceb64, hash, created_at FROM invoices WHERE uuid = $1`,
		uuid,
	)
	var inv entity.Invoice
	if err := row.Scan(&inv.UUID, &inv.Company, &inv.InvoiceB64, &inv.Hash, &inv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return entity.Invoice{}, false, nil
		}
		return entity.Invoice{}, false, fmt.Errorf("postgres: find invoice: %w", err)
	}
	return inv, true, nil
}
