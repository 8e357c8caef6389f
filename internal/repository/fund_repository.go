package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type fundRepository struct {
	pool *pgxpool.Pool
}

// NewFundRepository wires a repository backed by pgxpool.
func NewFundRepository(pool *pgxpool.Pool) FundRepository {
	return &fundRepository{pool: pool}
}

const fundColumns = `id, name, gp_name, status, total_cap_amount, par_value, term_years, formation_date, created_at, updated_at`

func scanFund(row interface{ Scan(...any) error }) (domain.Fund, error) {
	var (
		fund     domain.Fund
		formedAt pgtype.Date
	)
	if err := row.Scan(
		&fund.ID,
		&fund.Name,
		&fund.GPName,
		&fund.Status,
		&fund.TotalCapAmount,
		&fund.ParValue,
		&fund.TermYears,
		&formedAt,
		&fund.CreatedAt,
		&fund.UpdatedAt,
	); err != nil {
		return domain.Fund{}, err
	}
	if formedAt.Valid {
		t := formedAt.Time
		fund.FormedAt = &t
	}
	return fund, nil
}

func (r *fundRepository) Create(ctx context.Context, fund domain.Fund) (domain.Fund, error) {
	var formedAt any
	if fund.FormedAt != nil {
		formedAt = *fund.FormedAt
	}
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO funds (id, name, gp_name, status, total_cap_amount, par_value, term_years, formation_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+fundColumns,
		fund.ID,
		fund.Name,
		fund.GPName,
		fund.Status,
		fund.TotalCapAmount,
		fund.ParValue,
		fund.TermYears,
		formedAt,
	)
	created, err := scanFund(row)
	if err != nil {
		return domain.Fund{}, fmt.Errorf("failed to create fund: %w", err)
	}
	return created, nil
}

func (r *fundRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Fund, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+fundColumns+` FROM funds WHERE id = $1`,
		id,
	)
	fund, err := scanFund(row)
	if err != nil {
		return domain.Fund{}, fmt.Errorf("failed to get fund: %w", translateNoRows(err))
	}
	return fund, nil
}

func (r *fundRepository) List(ctx context.Context) ([]domain.Fund, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+fundColumns+` FROM funds ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	funds := []domain.Fund{}
	for rows.Next() {
		fund, scanErr := scanFund(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", scanErr)
		}
		funds = append(funds, fund)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate funds: %w", rowsErr)
	}
	return funds, nil
}

func (r *fundRepository) Update(ctx context.Context, fund domain.Fund) (domain.Fund, error) {
	var formedAt any
	if fund.FormedAt != nil {
		formedAt = *fund.FormedAt
	}
	row := r.pool.QueryRow(
		ctx,
		`UPDATE funds
		 SET name = $2, gp_name = $3, status = $4, total_cap_amount = $5,
		     par_value = $6, term_years = $7, formation_date = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING `+fundColumns,
		fund.ID,
		fund.Name,
		fund.GPName,
		fund.Status,
		fund.TotalCapAmount,
		fund.ParValue,
		fund.TermYears,
		formedAt,
	)
	updated, err := scanFund(row)
	if err != nil {
		return domain.Fund{}, fmt.Errorf("failed to update fund: %w", translateNoRows(err))
	}
	return updated, nil
}

func (r *fundRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM funds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete fund: %w", ErrNotFound)
	}
	return nil
}

const fundMemberColumns = `id, fund_id, profile_id, units, amount, address, registration_number, created_at, updated_at`

func scanFundMember(row interface{ Scan(...any) error }) (domain.FundMember, error) {
	var member domain.FundMember
	if err := row.Scan(
		&member.ID,
		&member.FundID,
		&member.ProfileID,
		&member.InvestmentUnits,
		&member.InvestmentAmount,
		&member.Address,
		&member.RegistrationNumber,
		&member.CreatedAt,
		&member.UpdatedAt,
	); err != nil {
		return domain.FundMember{}, err
	}
	member.JoinedAt = member.CreatedAt
	return member, nil
}

func (r *fundRepository) UpsertMember(ctx context.Context, member domain.FundMember) (domain.FundMember, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO fund_members (id, fund_id, profile_id, units, amount, address, registration_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (fund_id, profile_id) DO UPDATE
		 SET units = EXCLUDED.units,
		     amount = EXCLUDED.amount,
		     address = EXCLUDED.address,
		     registration_number = EXCLUDED.registration_number,
		     updated_at = now()
		 RETURNING `+fundMemberColumns,
		member.ID,
		member.FundID,
		member.ProfileID,
		member.InvestmentUnits,
		member.InvestmentAmount,
		member.Address,
		member.RegistrationNumber,
	)
	upserted, err := scanFundMember(row)
	if err != nil {
		return domain.FundMember{}, fmt.Errorf("failed to upsert fund member: %w", err)
	}
	return upserted, nil
}

func (r *fundRepository) ListMembers(ctx context.Context, fundID uuid.UUID) ([]domain.FundMember, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+fundMemberColumns+` FROM fund_members WHERE fund_id = $1 ORDER BY created_at`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund members: %w", err)
	}
	defer rows.Close()

	members := []domain.FundMember{}
	for rows.Next() {
		member, scanErr := scanFundMember(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan fund member: %w", scanErr)
		}
		members = append(members, member)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate fund members: %w", rowsErr)
	}
	return members, nil
}

func (r *fundRepository) RemoveMember(ctx context.Context, fundID, profileID uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`DELETE FROM fund_members WHERE fund_id = $1 AND profile_id = $2`,
		fundID,
		profileID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove fund member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to remove fund member: %w", ErrNotFound)
	}
	return nil
}
