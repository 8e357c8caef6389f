package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bychung/snusv-angel-club-sub002/internal/db"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type templateRepository struct {
	conn *db.Connection
}

// NewTemplateRepository wires a repository backed by the shared connection.
// It needs the connection rather than the bare pool because version creation
// runs in a transaction.
func NewTemplateRepository(conn *db.Connection) TemplateRepository {
	return &templateRepository{conn: conn}
}

const templateColumns = `id, type, name, version, previous_version_id, fund_id, active, content, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (domain.DocumentTemplate, error) {
	var (
		template   domain.DocumentTemplate
		previousID pgtype.UUID
		fundID     pgtype.UUID
		content    []byte
	)
	if err := row.Scan(
		&template.ID,
		&template.Type,
		&template.Name,
		&template.Version,
		&previousID,
		&fundID,
		&template.Active,
		&content,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		return domain.DocumentTemplate{}, err
	}
	if previousID.Valid {
		id := uuid.UUID(previousID.Bytes)
		template.PreviousVersionID = &id
	}
	if fundID.Valid {
		id := uuid.UUID(fundID.Bytes)
		template.FundID = &id
	}
	sections, err := domain.SectionsFromJSON(json.RawMessage(content))
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to decode template content: %w", err)
	}
	template.Content = sections
	return template, nil
}

func (r *templateRepository) Create(ctx context.Context, template domain.DocumentTemplate) (domain.DocumentTemplate, error) {
	content, err := template.ContentJSON()
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to encode template content: %w", err)
	}
	var fundID any
	if template.FundID != nil {
		fundID = *template.FundID
	}
	row := r.conn.Pool.QueryRow(
		ctx,
		`INSERT INTO document_templates (id, type, name, version, fund_id, active, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+templateColumns,
		template.ID,
		template.Type,
		template.Name,
		template.Version,
		fundID,
		template.Active,
		content,
	)
	created, err := scanTemplate(row)
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to create template: %w", err)
	}
	return created, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DocumentTemplate, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT `+templateColumns+` FROM document_templates WHERE id = $1`,
		id,
	)
	template, err := scanTemplate(row)
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to get template: %w", translateNoRows(err))
	}
	return template, nil
}

// GetActive prefers a fund specific override and falls back to the global
// template for the document type.
func (r *templateRepository) GetActive(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) (domain.DocumentTemplate, error) {
	if fundID != nil {
		row := r.conn.Pool.QueryRow(
			ctx,
			`SELECT `+templateColumns+` FROM document_templates
			 WHERE type = $1 AND fund_id = $2 AND active`,
			docType,
			*fundID,
		)
		template, err := scanTemplate(row)
		if err == nil {
			return template, nil
		}
		if translated := translateNoRows(err); translated != ErrNotFound {
			return domain.DocumentTemplate{}, fmt.Errorf("failed to get fund template: %w", translated)
		}
	}

	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT `+templateColumns+` FROM document_templates
		 WHERE type = $1 AND fund_id IS NULL AND active`,
		docType,
	)
	template, err := scanTemplate(row)
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to get active template: %w", translateNoRows(err))
	}
	return template, nil
}

func (r *templateRepository) ListVersions(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) ([]domain.DocumentTemplate, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if fundID != nil {
		rows, err = r.conn.Pool.Query(
			ctx,
			`SELECT `+templateColumns+` FROM document_templates
			 WHERE type = $1 AND fund_id = $2
			 ORDER BY created_at DESC`,
			docType,
			*fundID,
		)
	} else {
		rows, err = r.conn.Pool.Query(
			ctx,
			`SELECT `+templateColumns+` FROM document_templates
			 WHERE type = $1 AND fund_id IS NULL
			 ORDER BY created_at DESC`,
			docType,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list template versions: %w", err)
	}
	defer rows.Close()

	templates := []domain.DocumentTemplate{}
	for rows.Next() {
		template, scanErr := scanTemplate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan template: %w", scanErr)
		}
		templates = append(templates, template)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", rowsErr)
	}
	return templates, nil
}

// CreateVersion deactivates the predecessor and inserts the successor in one
// transaction so there is never more than one active template per scope.
func (r *templateRepository) CreateVersion(ctx context.Context, template domain.DocumentTemplate) (domain.DocumentTemplate, error) {
	if template.PreviousVersionID == nil {
		return domain.DocumentTemplate{}, fmt.Errorf("new version requires a previous version")
	}
	content, err := template.ContentJSON()
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to encode template content: %w", err)
	}
	var fundID any
	if template.FundID != nil {
		fundID = *template.FundID
	}

	var created domain.DocumentTemplate
	err = r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		tag, execErr := tx.Exec(
			ctx,
			`UPDATE document_templates SET active = false, updated_at = now() WHERE id = $1 AND active`,
			*template.PreviousVersionID,
		)
		if execErr != nil {
			return fmt.Errorf("failed to deactivate previous version: %w", execErr)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("previous version is not active")
		}

		row := tx.QueryRow(
			ctx,
			`INSERT INTO document_templates (id, type, name, version, previous_version_id, fund_id, active, content)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+templateColumns,
			template.ID,
			template.Type,
			template.Name,
			template.Version,
			*template.PreviousVersionID,
			fundID,
			template.Active,
			content,
		)
		var scanErr error
		created, scanErr = scanTemplate(row)
		if scanErr != nil {
			return fmt.Errorf("failed to insert new version: %w", scanErr)
		}
		return nil
	})
	if err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("failed to create template version: %w", err)
	}
	return created, nil
}
