package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type assemblyRepository struct {
	pool *pgxpool.Pool
}

// NewAssemblyRepository wires a repository backed by pgxpool.
func NewAssemblyRepository(pool *pgxpool.Pool) AssemblyRepository {
	return &assemblyRepository{pool: pool}
}

const assemblyColumns = `id, fund_id, kind, status, scheduled_at, location, agenda, notified_at, created_at, updated_at`

func scanAssembly(row interface{ Scan(...any) error }) (domain.Assembly, error) {
	var (
		assembly   domain.Assembly
		notifiedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&assembly.ID,
		&assembly.FundID,
		&assembly.Kind,
		&assembly.Status,
		&assembly.ScheduledAt,
		&assembly.Location,
		&assembly.Agenda,
		&notifiedAt,
		&assembly.CreatedAt,
		&assembly.UpdatedAt,
	); err != nil {
		return domain.Assembly{}, err
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		assembly.NotifiedAt = &t
	}
	return assembly, nil
}

func (r *assemblyRepository) Create(ctx context.Context, assembly domain.Assembly) (domain.Assembly, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO assemblies (id, fund_id, kind, status, scheduled_at, location, agenda)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+assemblyColumns,
		assembly.ID,
		assembly.FundID,
		assembly.Kind,
		assembly.Status,
		assembly.ScheduledAt,
		assembly.Location,
		assembly.Agenda,
	)
	created, err := scanAssembly(row)
	if err != nil {
		return domain.Assembly{}, fmt.Errorf("failed to create assembly: %w", err)
	}
	return created, nil
}

func (r *assemblyRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Assembly, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+assemblyColumns+` FROM assemblies WHERE id = $1`,
		id,
	)
	assembly, err := scanAssembly(row)
	if err != nil {
		return domain.Assembly{}, fmt.Errorf("failed to get assembly: %w", translateNoRows(err))
	}
	return assembly, nil
}

func (r *assemblyRepository) List(ctx context.Context, fundID uuid.UUID) ([]domain.Assembly, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+assemblyColumns+` FROM assemblies WHERE fund_id = $1 ORDER BY scheduled_at DESC`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assemblies: %w", err)
	}
	defer rows.Close()

	assemblies := []domain.Assembly{}
	for rows.Next() {
		assembly, scanErr := scanAssembly(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan assembly: %w", scanErr)
		}
		assemblies = append(assemblies, assembly)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate assemblies: %w", rowsErr)
	}
	return assemblies, nil
}

func (r *assemblyRepository) Update(ctx context.Context, assembly domain.Assembly) (domain.Assembly, error) {
	var notifiedAt any
	if assembly.NotifiedAt != nil {
		notifiedAt = *assembly.NotifiedAt
	}
	row := r.pool.QueryRow(
		ctx,
		`UPDATE assemblies
		 SET kind = $2, status = $3, scheduled_at = $4, location = $5, agenda = $6,
		     notified_at = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+assemblyColumns,
		assembly.ID,
		assembly.Kind,
		assembly.Status,
		assembly.ScheduledAt,
		assembly.Location,
		assembly.Agenda,
		notifiedAt,
	)
	updated, err := scanAssembly(row)
	if err != nil {
		return domain.Assembly{}, fmt.Errorf("failed to update assembly: %w", translateNoRows(err))
	}
	return updated, nil
}

func (r *assemblyRepository) ListDue(ctx context.Context, windowDays int) ([]domain.Assembly, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+assemblyColumns+` FROM assemblies
		 WHERE status = $1
		   AND scheduled_at >= now()
		   AND scheduled_at < now() + make_interval(days => $2)
		 ORDER BY scheduled_at`,
		domain.AssemblyStatusScheduled,
		windowDays,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due assemblies: %w", err)
	}
	defer rows.Close()

	assemblies := []domain.Assembly{}
	for rows.Next() {
		assembly, scanErr := scanAssembly(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan assembly: %w", scanErr)
		}
		assemblies = append(assemblies, assembly)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate assemblies: %w", rowsErr)
	}
	return assemblies, nil
}
