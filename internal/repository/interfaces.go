package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

// ProfileRepository defines the interface for profile operations
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (domain.Profile, error)
	GetByProvider(ctx context.Context, provider domain.AuthProvider, subject string) (domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Update(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	Link(ctx context.Context, profileID, targetID uuid.UUID) (domain.Profile, error)
	LinkProvider(ctx context.Context, profileID uuid.UUID, provider domain.AuthProvider, subject string) (domain.Profile, error)
}

// FundRepository defines the interface for fund and membership operations
type FundRepository interface {
	Create(ctx context.Context, fund domain.Fund) (domain.Fund, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Fund, error)
	List(ctx context.Context) ([]domain.Fund, error)
	Update(ctx context.Context, fund domain.Fund) (domain.Fund, error)
	Delete(ctx context.Context, id uuid.UUID) error

	UpsertMember(ctx context.Context, member domain.FundMember) (domain.FundMember, error)
	ListMembers(ctx context.Context, fundID uuid.UUID) ([]domain.FundMember, error)
	RemoveMember(ctx context.Context, fundID, profileID uuid.UUID) error
}

// PortfolioRepository defines the interface for company and investment operations
type PortfolioRepository interface {
	CreateCompany(ctx context.Context, company domain.Company) (domain.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (domain.Company, error)
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	UpdateCompany(ctx context.Context, company domain.Company) (domain.Company, error)

	CreateInvestment(ctx context.Context, inv domain.Investment) (domain.Investment, error)
	ListInvestments(ctx context.Context, fundID uuid.UUID) ([]domain.Investment, error)
	UpdateInvestment(ctx context.Context, inv domain.Investment) (domain.Investment, error)
	DeleteInvestment(ctx context.Context, id uuid.UUID) error
}

// AssemblyRepository defines the interface for assembly operations
type AssemblyRepository interface {
	Create(ctx context.Context, assembly domain.Assembly) (domain.Assembly, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Assembly, error)
	List(ctx context.Context, fundID uuid.UUID) ([]domain.Assembly, error)
	Update(ctx context.Context, assembly domain.Assembly) (domain.Assembly, error)
	// ListDue returns scheduled assemblies whose date falls within the next
	// windowDays and whose notices have not gone out yet.
	ListDue(ctx context.Context, windowDays int) ([]domain.Assembly, error)
}

// TemplateRepository defines the interface for versioned document templates
type TemplateRepository interface {
	Create(ctx context.Context, template domain.DocumentTemplate) (domain.DocumentTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DocumentTemplate, error)
	// GetActive resolves the active template for a document type. A fund
	// specific override wins over the global template when fundID is set.
	GetActive(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) (domain.DocumentTemplate, error)
	ListVersions(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) ([]domain.DocumentTemplate, error)
	// CreateVersion inserts the successor and deactivates its predecessor in
	// one transaction.
	CreateVersion(ctx context.Context, template domain.DocumentTemplate) (domain.DocumentTemplate, error)
}

// DocumentRepository stores immutable generated document snapshots.
type DocumentRepository interface {
	// Create persists a snapshot, reserving the next version number scoped to
	// (fund, type) inside the insert statement.
	Create(ctx context.Context, doc domain.DocumentSnapshot) (domain.DocumentSnapshot, error)
	GetByVersion(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) (domain.DocumentSnapshot, error)
	GetLatest(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType) (domain.DocumentSnapshot, error)
	ListVersions(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType) ([]domain.DocumentSnapshot, error)
	Delete(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) error
}

// IngestionLogRepository stores roster upload outcomes for observability.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, fundID uuid.UUID, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
