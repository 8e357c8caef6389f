package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type portfolioRepository struct {
	pool *pgxpool.Pool
}

// NewPortfolioRepository wires a repository backed by pgxpool.
func NewPortfolioRepository(pool *pgxpool.Pool) PortfolioRepository {
	return &portfolioRepository{pool: pool}
}

const companyColumns = `id, name, registry, sector, description, created_at, updated_at`

func scanCompany(row interface{ Scan(...any) error }) (domain.Company, error) {
	var company domain.Company
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Registry,
		&company.Sector,
		&company.Description,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return domain.Company{}, err
	}
	return company, nil
}

func (r *portfolioRepository) CreateCompany(ctx context.Context, company domain.Company) (domain.Company, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO companies (id, name, registry, sector, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+companyColumns,
		company.ID,
		company.Name,
		company.Registry,
		company.Sector,
		company.Description,
	)
	created, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, fmt.Errorf("failed to create company: %w", err)
	}
	return created, nil
}

func (r *portfolioRepository) GetCompany(ctx context.Context, id uuid.UUID) (domain.Company, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`,
		id,
	)
	company, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, fmt.Errorf("failed to get company: %w", translateNoRows(err))
	}
	return company, nil
}

func (r *portfolioRepository) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []domain.Company{}
	for rows.Next() {
		company, scanErr := scanCompany(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan company: %w", scanErr)
		}
		companies = append(companies, company)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", rowsErr)
	}
	return companies, nil
}

func (r *portfolioRepository) UpdateCompany(ctx context.Context, company domain.Company) (domain.Company, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE companies
		 SET name = $2, registry = $3, sector = $4, description = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+companyColumns,
		company.ID,
		company.Name,
		company.Registry,
		company.Sector,
		company.Description,
	)
	updated, err := scanCompany(row)
	if err != nil {
		return domain.Company{}, fmt.Errorf("failed to update company: %w", translateNoRows(err))
	}
	return updated, nil
}

const investmentColumns = `id, fund_id, company_id, status, amount, shares, invested_at, created_at, updated_at`

func scanInvestment(row interface{ Scan(...any) error }) (domain.Investment, error) {
	var (
		inv        domain.Investment
		investedAt pgtype.Date
	)
	if err := row.Scan(
		&inv.ID,
		&inv.FundID,
		&inv.CompanyID,
		&inv.Status,
		&inv.Amount,
		&inv.Units,
		&investedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return domain.Investment{}, err
	}
	if investedAt.Valid {
		t := investedAt.Time
		inv.InvestedAt = &t
	}
	return inv, nil
}

func (r *portfolioRepository) CreateInvestment(ctx context.Context, inv domain.Investment) (domain.Investment, error) {
	var investedAt any
	if inv.InvestedAt != nil {
		investedAt = *inv.InvestedAt
	}
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO investments (id, fund_id, company_id, status, amount, shares, invested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+investmentColumns,
		inv.ID,
		inv.FundID,
		inv.CompanyID,
		inv.Status,
		inv.Amount,
		inv.Units,
		investedAt,
	)
	created, err := scanInvestment(row)
	if err != nil {
		return domain.Investment{}, fmt.Errorf("failed to create investment: %w", err)
	}
	return created, nil
}

func (r *portfolioRepository) ListInvestments(ctx context.Context, fundID uuid.UUID) ([]domain.Investment, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE fund_id = $1 ORDER BY created_at`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	investments := []domain.Investment{}
	for rows.Next() {
		inv, scanErr := scanInvestment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", scanErr)
		}
		investments = append(investments, inv)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", rowsErr)
	}
	return investments, nil
}

func (r *portfolioRepository) UpdateInvestment(ctx context.Context, inv domain.Investment) (domain.Investment, error) {
	var investedAt any
	if inv.InvestedAt != nil {
		investedAt = *inv.InvestedAt
	}
	row := r.pool.QueryRow(
		ctx,
		`UPDATE investments
		 SET status = $2, amount = $3, shares = $4, invested_at = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+investmentColumns,
		inv.ID,
		inv.Status,
		inv.Amount,
		inv.Units,
		investedAt,
	)
	updated, err := scanInvestment(row)
	if err != nil {
		return domain.Investment{}, fmt.Errorf("failed to update investment: %w", translateNoRows(err))
	}
	return updated, nil
}

func (r *portfolioRepository) DeleteInvestment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM investments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete investment: %w", ErrNotFound)
	}
	return nil
}
