package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository wires a repository backed by pgxpool.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileColumns = `id, email, name, phone, provider, provider_subject, role, linked_profile_id, linked_at, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (domain.Profile, error) {
	var (
		profile  domain.Profile
		linkedID pgtype.UUID
		linkedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&profile.Phone,
		&profile.Provider,
		&profile.ProviderSubject,
		&profile.Role,
		&linkedID,
		&linkedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return domain.Profile{}, err
	}
	if linkedID.Valid {
		id := uuid.UUID(linkedID.Bytes)
		profile.LinkedProfileID = &id
	}
	if linkedAt.Valid {
		t := linkedAt.Time
		profile.LinkedAt = &t
	}
	return profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO profiles (id, email, name, phone, provider, provider_subject, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+profileColumns,
		profile.ID,
		profile.Email,
		profile.Name,
		profile.Phone,
		profile.Provider,
		profile.ProviderSubject,
		profile.Role,
	)
	created, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)
	profile, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get profile: %w", translateNoRows(err))
	}
	return profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`,
		email,
	)
	profile, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get profile by email: %w", translateNoRows(err))
	}
	return profile, nil
}

func (r *profileRepository) GetByProvider(ctx context.Context, provider domain.AuthProvider, subject string) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE provider = $1 AND provider_subject = $2`,
		provider,
		subject,
	)
	profile, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get profile by provider: %w", translateNoRows(err))
	}
	return profile, nil
}

func (r *profileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		profile, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", scanErr)
		}
		profiles = append(profiles, profile)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", rowsErr)
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE profiles
		 SET email = $2, name = $3, phone = $4, role = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		profile.ID,
		profile.Email,
		profile.Name,
		profile.Phone,
		profile.Role,
	)
	updated, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to update profile: %w", translateNoRows(err))
	}
	return updated, nil
}

func (r *profileRepository) LinkProvider(ctx context.Context, profileID uuid.UUID, provider domain.AuthProvider, subject string) (domain.Profile, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE profiles
		 SET provider = $2, provider_subject = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		profileID,
		provider,
		subject,
	)
	linked, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to link provider: %w", translateNoRows(err))
	}
	return linked, nil
}

func (r *profileRepository) Link(ctx context.Context, profileID, targetID uuid.UUID) (domain.Profile, error) {
	if profileID == targetID {
		return domain.Profile{}, fmt.Errorf("profile cannot link to itself")
	}
	row := r.pool.QueryRow(
		ctx,
		`UPDATE profiles
		 SET linked_profile_id = $2, linked_at = now(), updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		profileID,
		targetID,
	)
	linked, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to link profile: %w", translateNoRows(err))
	}
	return linked, nil
}
