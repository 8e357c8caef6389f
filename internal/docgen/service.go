package docgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/logging"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
	"github.com/bychung/snusv-angel-club-sub002/pkg/sectiontree"
)

// Service orchestrates document generation, versioned snapshot comparison and
// template lifecycle management.
type Service struct {
	templates repository.TemplateRepository
	documents repository.DocumentRepository
	funds     repository.FundRepository
	profiles  repository.ProfileRepository

	bumpPolicy domain.BumpPolicy
	now        func() time.Time
	log        *logging.Logger
}

type Option func(*Service)

// WithBumpPolicy customizes how change severities map to version bumps.
func WithBumpPolicy(policy domain.BumpPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.bumpPolicy = policy
		}
	}
}

func WithLogger(log *logging.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	templates repository.TemplateRepository,
	documents repository.DocumentRepository,
	funds repository.FundRepository,
	profiles repository.ProfileRepository,
	opts ...Option,
) *Service {
	service := &Service{
		templates:  templates,
		documents:  documents,
		funds:      funds,
		profiles:   profiles,
		bumpPolicy: domain.DefaultBumpPolicy(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// GenerateResult pairs the persisted snapshot with the best-effort diff
// against its predecessor.
type GenerateResult struct {
	Snapshot domain.DocumentSnapshot `json:"snapshot"`
	Diff     *domain.DocumentDiff    `json:"diff,omitempty"`
	// DiffError is set when the snapshot saved but the comparison against the
	// previous version could not be computed.
	DiffError string `json:"diffError,omitempty"`
}

// Generate renders the active template for a fund and persists the result as
// the next document version. Render failures persist nothing; diff failures
// never fail the generation.
func (s *Service) Generate(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, requestedBy uuid.UUID) (GenerateResult, error) {
	fund, err := s.funds.GetByID(ctx, fundID)
	if err != nil {
		return GenerateResult{}, err
	}

	template, err := s.templates.GetActive(ctx, docType, &fundID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to resolve template for %s: %w", docType, err)
	}

	members, err := s.funds.ListMembers(ctx, fundID)
	if err != nil {
		return GenerateResult{}, err
	}

	names := make(map[uuid.UUID]string, len(members))
	for _, member := range members {
		profile, profileErr := s.profiles.GetByID(ctx, member.ProfileID)
		if profileErr != nil {
			if errors.Is(profileErr, repository.ErrNotFound) {
				continue
			}
			return GenerateResult{}, profileErr
		}
		names[member.ProfileID] = profile.Name
	}

	generationContext := s.buildContext(fund, members, names)
	rendered, err := RenderSections(template.Content, generationContext)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to render %s for fund %s: %w", docType, fund.Name, err)
	}

	var previous *domain.DocumentSnapshot
	if prior, priorErr := s.documents.GetLatest(ctx, fundID, docType); priorErr == nil {
		previous = &prior
	} else if !errors.Is(priorErr, repository.ErrNotFound) {
		return GenerateResult{}, priorErr
	}

	snapshot := domain.DocumentSnapshot{
		ID:                uuid.New(),
		FundID:            fundID,
		Type:              docType,
		TemplateVersion:   template.Version,
		ProcessedContent:  rendered,
		GenerationContext: generationContext,
		GeneratedAt:       s.now(),
		GeneratedBy:       requestedBy,
	}
	created, err := s.documents.Create(ctx, snapshot)
	if err != nil {
		return GenerateResult{}, err
	}

	result := GenerateResult{Snapshot: created}
	if previous != nil {
		diff, diffErr := domain.CompareSnapshots(*previous, created)
		if diffErr != nil {
			result.DiffError = diffErr.Error()
			if s.log != nil {
				s.log.Warn("document diff unavailable",
					"fund_id", fundID.String(),
					"type", string(docType),
					"error", diffErr.Error(),
				)
			}
		} else {
			result.Diff = &diff
		}
	}
	return result, nil
}

// Compare diffs two stored snapshot versions of the same fund and type.
func (s *Service) Compare(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, fromVersion, toVersion int) (domain.DocumentDiff, error) {
	from, err := s.documents.GetByVersion(ctx, fundID, docType, fromVersion)
	if err != nil {
		return domain.DocumentDiff{}, err
	}
	to, err := s.documents.GetByVersion(ctx, fundID, docType, toVersion)
	if err != nil {
		return domain.DocumentDiff{}, err
	}
	return domain.CompareSnapshots(from, to)
}

// ListVersions returns all stored snapshots for a fund and type, newest first.
func (s *Service) ListVersions(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType) ([]domain.DocumentSnapshot, error) {
	return s.documents.ListVersions(ctx, fundID, docType)
}

// GetVersion returns one stored snapshot.
func (s *Service) GetVersion(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) (domain.DocumentSnapshot, error) {
	return s.documents.GetByVersion(ctx, fundID, docType, version)
}

// DeleteVersion removes a historical snapshot. The latest version anchors the
// next generation's diff and cannot be deleted.
func (s *Service) DeleteVersion(ctx context.Context, fundID uuid.UUID, docType domain.DocumentType, version int) error {
	latest, err := s.documents.GetLatest(ctx, fundID, docType)
	if err != nil {
		return err
	}
	if latest.VersionNumber == version {
		return fmt.Errorf("cannot delete the latest version %d of %s", version, docType)
	}
	return s.documents.Delete(ctx, fundID, docType, version)
}

// TemplateUpdateResult reports what a template content change did.
type TemplateUpdateResult struct {
	Template        domain.DocumentTemplate `json:"template"`
	Changes         []domain.TemplateChange `json:"changes"`
	Summary         string                  `json:"summary"`
	PreviousVersion string                  `json:"previousVersion"`
	Created         bool                    `json:"created"`
}

// PreviewTemplateChanges classifies new content against a stored template
// without saving anything.
func (s *Service) PreviewTemplateChanges(ctx context.Context, templateID uuid.UUID, content []domain.TemplateSection) (TemplateUpdateResult, error) {
	if err := sectiontree.Validate(content); err != nil {
		return TemplateUpdateResult{}, fmt.Errorf("invalid template content: %w", err)
	}
	current, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return TemplateUpdateResult{}, err
	}
	changes := domain.CompareTemplateContent(current.Content, content)
	next, err := domain.NextVersion(current.Version, changes, s.bumpPolicy)
	if err != nil {
		return TemplateUpdateResult{}, err
	}
	preview := current
	preview.Version = next
	return TemplateUpdateResult{
		Template:        preview,
		Changes:         changes,
		Summary:         domain.ChangeSummary(changes),
		PreviousVersion: current.Version,
		Created:         false,
	}, nil
}

// UpdateTemplate saves new template content as a successor version. The
// version bump is computed from the structural changes; identical content
// creates nothing.
func (s *Service) UpdateTemplate(ctx context.Context, templateID uuid.UUID, content []domain.TemplateSection) (TemplateUpdateResult, error) {
	if err := sectiontree.Validate(content); err != nil {
		return TemplateUpdateResult{}, fmt.Errorf("invalid template content: %w", err)
	}
	current, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return TemplateUpdateResult{}, err
	}
	if !current.Active {
		return TemplateUpdateResult{}, fmt.Errorf("template %s is not the active version", templateID)
	}

	changes := domain.CompareTemplateContent(current.Content, content)
	if len(changes) == 0 {
		return TemplateUpdateResult{
			Template:        current,
			Changes:         changes,
			Summary:         domain.ChangeSummary(changes),
			PreviousVersion: current.Version,
			Created:         false,
		}, nil
	}

	next, err := domain.NextVersion(current.Version, changes, s.bumpPolicy)
	if err != nil {
		return TemplateUpdateResult{}, err
	}
	successor := domain.NewVersionFromTemplate(current, content, next)
	created, err := s.templates.CreateVersion(ctx, successor)
	if err != nil {
		return TemplateUpdateResult{}, err
	}
	if s.log != nil {
		s.log.Info("template version created",
			"type", string(created.Type),
			"from", current.Version,
			"to", created.Version,
			"changes", len(changes),
		)
	}
	return TemplateUpdateResult{
		Template:        created,
		Changes:         changes,
		Summary:         domain.ChangeSummary(changes),
		PreviousVersion: current.Version,
		Created:         true,
	}, nil
}

// GetActiveTemplate resolves the template generation would use for a fund.
func (s *Service) GetActiveTemplate(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) (domain.DocumentTemplate, error) {
	return s.templates.GetActive(ctx, docType, fundID)
}

// ListTemplateVersions returns the version chain for a document type scope.
func (s *Service) ListTemplateVersions(ctx context.Context, docType domain.DocumentType, fundID *uuid.UUID) ([]domain.DocumentTemplate, error) {
	return s.templates.ListVersions(ctx, docType, fundID)
}

// buildContext assembles the variables a template renders against. Keys here
// line up with the display rules so diffs over the generation context produce
// readable labels.
func (s *Service) buildContext(fund domain.Fund, members []domain.FundMember, names map[uuid.UUID]string) map[string]any {
	memberRows := make([]any, 0, len(members))
	for _, member := range members {
		memberRows = append(memberRows, map[string]any{
			"id":      member.ProfileID.String(),
			"name":    names[member.ProfileID],
			"units":   member.InvestmentUnits,
			"amount":  member.InvestmentAmount,
			"address": member.Address,
		})
	}

	formationDate := ""
	if fund.FormedAt != nil {
		formationDate = fund.FormedAt.Format("2006-01-02")
	}

	return map[string]any{
		"fundName":       fund.Name,
		"gpName":         fund.GPName,
		"totalCapAmount": fund.TotalCapAmount,
		"parValue":       fund.ParValue,
		"fundTerm":       fund.TermYears,
		"formationDate":  formationDate,
		"memberCount":    len(members),
		"members":        memberRows,
		"processedAt":    s.now().Format(time.RFC3339),
	}
}
