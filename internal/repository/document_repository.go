package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository wires a repository backed by pgxpool.
func NewDocumentRepository(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepository{pool: pool}
}

const documentColumns = `id, fund_id, type, version_number, template_version, processed_content, generation_context, generated_by, generated_at`

func scanDocument(row interface{ Scan(...any) error }) (domain.DocumentSnapshot, error) {
	var (
		doc         domain.DocumentSnapshot
		content     []byte
		genContext  []byte
		generatedBy pgtype.UUID
	)
	if err := row.Scan(
		&doc.ID,
		&doc.FundID,
		&doc.Type,
		&doc.VersionNumber,
		&doc.TemplateVersion,
		&content,
		&genContext,
		&generatedBy,
		&doc.GeneratedAt,
	); err != nil {
		return domain.DocumentSnapshot{}, err
	}
	if generatedBy.Valid {
		doc.GeneratedBy = uuid.UUID(generatedBy.Bytes)
	}
	sections, err := domain.SectionsFromJSON(json.RawMessage(content))
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to decode document content: %w", err)
	}
	doc.ProcessedContent = sections
	ctxMap, err := domain.ContextFromJSON(json.RawMessage(genContext))
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to decode generation context: %w", err)
	}
	doc.GenerationContext = ctxMap
	return doc, nil
}

// Create reserves the next version number inside the insert itself. The
// SELECT computes COALESCE(MAX(version_number), 0) + 1 scoped to the fund and
// document type, and the unique constraint on (fund_id, type, version_number)
// rejects the loser of any concurrent race.
func (r *documentRepository) Create(ctx context.Context, doc domain.DocumentSnapshot) (domain.DocumentSnapshot, error) {
	content, err := doc.ContentJSON()
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to encode document content: %w", err)
	}
	genContext, err := doc.ContextJSON()
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to encode generation context: %w", err)
	}
	var generatedBy any
	if doc.GeneratedBy != uuid.Nil {
		generatedBy = doc.GeneratedBy
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO fund_documents (id, fund_id, type, version_number, template_version, processed_content, generation_context, generated_by, generated_at)
		 SELECT $1, $2, $3, COALESCE(MAX(version_number), 0) + 1, $4, $5, $6, $7, $8
		 FROM fund_documents
		 WHERE fund_id = $2 AND type = $3
		 RETURNING `+documentColumns,
		doc.ID,
		doc.FundID,
		doc.Type,
		doc.TemplateVersion,
		content,
		genContext,
		generatedBy,
		doc.GeneratedAt,
	)
	created, err := scanDocument(row)
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to create document snapshot: %w", err)
	}
	return created, nil
}

func (r *documentRepository) GetByVersion(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) (domain.DocumentSnapshot, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+documentColumns+` FROM fund_documents
		 WHERE fund_id = $1 AND type = $2 AND version_number = $3`,
		fundID,
		docType,
		version,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to get document version: %w", translateNoRows(err))
	}
	return doc, nil
}

func (r *documentRepository) GetLatest(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType) (domain.DocumentSnapshot, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+documentColumns+` FROM fund_documents
		 WHERE fund_id = $1 AND type = $2
		 ORDER BY version_number DESC
		 LIMIT 1`,
		fundID,
		docType,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return domain.DocumentSnapshot{}, fmt.Errorf("failed to get latest document: %w", translateNoRows(err))
	}
	return doc, nil
}

func (r *documentRepository) ListVersions(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType) ([]domain.DocumentSnapshot, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+documentColumns+` FROM fund_documents
		 WHERE fund_id = $1 AND type = $2
		 ORDER BY version_number DESC`,
		fundID,
		docType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list document versions: %w", err)
	}
	defer rows.Close()

	docs := []domain.DocumentSnapshot{}
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan document: %w", scanErr)
		}
		docs = append(docs, doc)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", rowsErr)
	}
	return docs, nil
}

func (r *documentRepository) Delete(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) error {
	tag, err := r.pool.Exec(
		ctx,
		`DELETE FROM fund_documents
		 WHERE fund_id = $1 AND type = $2 AND version_number = $3`,
		fundID,
		docType,
		version,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete document version: %w", ErrNotFound)
	}
	return nil
}
