package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

// Service ingests member roster spreadsheets into fund memberships.
type Service struct {
	funds    repository.FundRepository
	profiles repository.ProfileRepository
	logRepo  repository.IngestionLogRepository
}

// NewService creates a new ingestion service.
func NewService(
	funds repository.FundRepository,
	profiles repository.ProfileRepository,
	logRepo repository.IngestionLogRepository,
) *Service {
	return &Service{
		funds:    funds,
		profiles: profiles,
		logRepo:  logRepo,
	}
}

// Request describes the roster upload.
type Request struct {
	FundID   uuid.UUID
	FileName string
	Data     io.Reader
}

// RowError reports one rejected roster line.
type RowError struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows       int        `json:"totalRows"`
	ImportedRows    int        `json:"importedRows"`
	InvalidRows     int        `json:"invalidRows"`
	CreatedProfiles int        `json:"createdProfiles"`
	Errors          []RowError `json:"errors,omitempty"`
}

// Ingest reads the uploaded roster, upserts profiles and fund memberships per
// valid row, and records every rejected row. One bad line never aborts the
// rest of the file.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{Errors: []RowError{}}

	if req.FundID == uuid.Nil {
		return summary, errors.New("fund id is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	if _, err := s.funds.GetByID(ctx, req.FundID); err != nil {
		return summary, err
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	table, err := parseRoster(req.FileName, payload)
	if err != nil {
		return summary, err
	}
	summary.TotalRows = len(table.rows)

	for rowIdx, raw := range table.rows {
		row, rowErr := table.buildRow(rowIdx, raw)
		if rowErr != nil {
			summary.InvalidRows++
			summary.Errors = append(summary.Errors, RowError{RowNumber: row.RowNumber, Message: rowErr.Error()})
			s.logRow(ctx, req, row.RowNumber, domain.IngestionStatusFailed, rowErr.Error())
			continue
		}

		profile, created, profileErr := s.resolveProfile(ctx, row)
		if profileErr != nil {
			summary.InvalidRows++
			summary.Errors = append(summary.Errors, RowError{RowNumber: row.RowNumber, Message: profileErr.Error()})
			s.logRow(ctx, req, row.RowNumber, domain.IngestionStatusFailed, profileErr.Error())
			continue
		}
		if created {
			summary.CreatedProfiles++
		}

		member := domain.NewFundMember(req.FundID, profile.CanonicalID(), row.Units, row.Amount)
		member.Address = row.Address
		member.RegistrationNumber = row.RegistrationNumber
		if _, upsertErr := s.funds.UpsertMember(ctx, member); upsertErr != nil {
			summary.InvalidRows++
			summary.Errors = append(summary.Errors, RowError{RowNumber: row.RowNumber, Message: upsertErr.Error()})
			s.logRow(ctx, req, row.RowNumber, domain.IngestionStatusFailed, upsertErr.Error())
			continue
		}

		summary.ImportedRows++
		s.logRow(ctx, req, row.RowNumber, domain.IngestionStatusOK, "")
	}

	return summary, nil
}

// resolveProfile finds the profile a roster line belongs to, creating an
// email-signup profile when the person is unknown.
func (s *Service) resolveProfile(ctx context.Context, row rosterRow) (domain.Profile, bool, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(row.Email))
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Profile{}, false, err
	}

	fresh := domain.NewProfile(strings.ToLower(row.Email), row.Name, domain.AuthProviderEmail, "")
	fresh.Phone = row.Phone
	created, err := s.profiles.Create(ctx, fresh)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("failed to create profile for %s: %w", row.Email, err)
	}
	return created, true, nil
}

func (s *Service) logRow(ctx context.Context, req Request, rowNumber int, status domain.IngestionStatus, message string) {
	if s.logRepo == nil {
		return
	}
	_ = s.logRepo.Record(ctx, domain.IngestionLogEntry{
		FundID:       req.FundID,
		FileName:     req.FileName,
		RowNumber:    rowNumber,
		Status:       status,
		ErrorMessage: message,
	})
}

// ListLogs exposes stored row outcomes for a fund.
func (s *Service) ListLogs(ctx context.Context, fundID uuid.UUID, fileName string, limit, offset int) ([]domain.IngestionLogEntry, error) {
	return s.logRepo.List(ctx, fundID, fileName, limit, offset)
}
