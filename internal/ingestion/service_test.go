package ingestion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

type fakeFundRepo struct {
	funds   map[uuid.UUID]domain.Fund
	members map[uuid.UUID][]domain.FundMember
}

func newFakeFundRepo(fundIDs ...uuid.UUID) *fakeFundRepo {
	repo := &fakeFundRepo{
		funds:   map[uuid.UUID]domain.Fund{},
		members: map[uuid.UUID][]domain.FundMember{},
	}
	for _, id := range fundIDs {
		repo.funds[id] = domain.Fund{ID: id, Name: "Test Fund"}
	}
	return repo
}

func (r *fakeFundRepo) Create(_ context.Context, fund domain.Fund) (domain.Fund, error) {
	r.funds[fund.ID] = fund
	return fund, nil
}

func (r *fakeFundRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Fund, error) {
	fund, ok := r.funds[id]
	if !ok {
		return domain.Fund{}, repository.ErrNotFound
	}
	return fund, nil
}

func (r *fakeFundRepo) List(_ context.Context) ([]domain.Fund, error) {
	out := make([]domain.Fund, 0, len(r.funds))
	for _, fund := range r.funds {
		out = append(out, fund)
	}
	return out, nil
}

func (r *fakeFundRepo) Update(_ context.Context, fund domain.Fund) (domain.Fund, error) {
	r.funds[fund.ID] = fund
	return fund, nil
}

func (r *fakeFundRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.funds, id)
	return nil
}

func (r *fakeFundRepo) UpsertMember(_ context.Context, member domain.FundMember) (domain.FundMember, error) {
	existing := r.members[member.FundID]
	for i, current := range existing {
		if current.ProfileID == member.ProfileID {
			existing[i] = member
			return member, nil
		}
	}
	r.members[member.FundID] = append(existing, member)
	return member, nil
}

func (r *fakeFundRepo) ListMembers(_ context.Context, fundID uuid.UUID) ([]domain.FundMember, error) {
	return r.members[fundID], nil
}

func (r *fakeFundRepo) RemoveMember(_ context.Context, fundID, profileID uuid.UUID) error {
	members := r.members[fundID]
	for i, member := range members {
		if member.ProfileID == profileID {
			r.members[fundID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeProfileRepo struct {
	byEmail map[string]domain.Profile
	created int
}

func newFakeProfileRepo(existing ...domain.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{byEmail: map[string]domain.Profile{}}
	for _, profile := range existing {
		repo.byEmail[strings.ToLower(profile.Email)] = profile
	}
	return repo
}

func (r *fakeProfileRepo) Create(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.byEmail[strings.ToLower(profile.Email)] = profile
	r.created++
	return profile, nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Profile, error) {
	for _, profile := range r.byEmail {
		if profile.ID == id {
			return profile, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (domain.Profile, error) {
	profile, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	return profile, nil
}

func (r *fakeProfileRepo) GetByProvider(_ context.Context, _ domain.AuthProvider, _ string) (domain.Profile, error) {
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(r.byEmail))
	for _, profile := range r.byEmail {
		out = append(out, profile)
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.byEmail[strings.ToLower(profile.Email)] = profile
	return profile, nil
}

func (r *fakeProfileRepo) Link(_ context.Context, _, _ uuid.UUID) (domain.Profile, error) {
	return domain.Profile{}, errors.New("not implemented")
}

func (r *fakeProfileRepo) LinkProvider(_ context.Context, _ uuid.UUID, _ domain.AuthProvider, _ string) (domain.Profile, error) {
	return domain.Profile{}, errors.New("not implemented")
}

type fakeLogRepo struct {
	entries []domain.IngestionLogEntry
}

func (r *fakeLogRepo) Record(_ context.Context, entry domain.IngestionLogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLogRepo) List(_ context.Context, fundID uuid.UUID, fileName string, _, _ int) ([]domain.IngestionLogEntry, error) {
	var out []domain.IngestionLogEntry
	for _, entry := range r.entries {
		if entry.FundID != fundID {
			continue
		}
		if fileName != "" && entry.FileName != fileName {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *fakeLogRepo) countStatus(status domain.IngestionStatus) int {
	count := 0
	for _, entry := range r.entries {
		if entry.Status == status {
			count++
		}
	}
	return count
}

func TestServiceIngestImportsRoster(t *testing.T) {
	fundID := uuid.New()
	funds := newFakeFundRepo(fundID)
	profiles := newFakeProfileRepo()
	logs := &fakeLogRepo{}

	service := NewService(funds, profiles, logs)

	data := "name,email,units,amount,address,registration_number\n" +
		"Alice Kim,alice@example.com,10,\"10,000,000\",Seoul,900101-2345678\n" +
		"Bob Lee,bob@example.com,5,5000000,Busan,850505-1234567\n"

	summary, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 2 || summary.ImportedRows != 2 || summary.InvalidRows != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.CreatedProfiles != 2 {
		t.Fatalf("expected 2 created profiles, got %d", summary.CreatedProfiles)
	}

	members := funds.members[fundID]
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].InvestmentUnits != 10 {
		t.Fatalf("expected 10 units, got %d", members[0].InvestmentUnits)
	}
	if members[0].InvestmentAmount != 10000000 {
		t.Fatalf("expected comma-grouped amount parsed, got %d", members[0].InvestmentAmount)
	}
	if members[0].RegistrationNumber != "900101-*******" {
		t.Fatalf("expected masked registration number, got %q", members[0].RegistrationNumber)
	}

	if got := logs.countStatus(domain.IngestionStatusOK); got != 2 {
		t.Fatalf("expected 2 ok log entries, got %d", got)
	}
}

func TestServiceIngestReusesExistingProfile(t *testing.T) {
	fundID := uuid.New()
	funds := newFakeFundRepo(fundID)
	existing := domain.NewProfile("alice@example.com", "Alice Kim", domain.AuthProviderEmail, "")
	profiles := newFakeProfileRepo(existing)
	logs := &fakeLogRepo{}

	service := NewService(funds, profiles, logs)

	data := "name,email,units,amount\nAlice Kim,ALICE@example.com,3,3000000\n"
	summary, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.CreatedProfiles != 0 {
		t.Fatalf("expected no new profiles, got %d", summary.CreatedProfiles)
	}
	if profiles.created != 0 {
		t.Fatalf("expected no profile create calls, got %d", profiles.created)
	}

	members := funds.members[fundID]
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0].ProfileID != existing.ID {
		t.Fatalf("expected membership bound to existing profile")
	}
}

func TestServiceIngestSkipsInvalidRows(t *testing.T) {
	fundID := uuid.New()
	funds := newFakeFundRepo(fundID)
	profiles := newFakeProfileRepo()
	logs := &fakeLogRepo{}

	service := NewService(funds, profiles, logs)

	data := "name,email,units,amount\n" +
		"Alice Kim,alice@example.com,10,1000000\n" +
		"Bob Lee,not-an-email,5,500000\n" +
		",carol@example.com,2,200000\n" +
		"Dave Park,dave@example.com,-1,100000\n" +
		"Erin Cho,erin@example.com,4,400000\n"

	summary, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 5 {
		t.Fatalf("expected 5 total rows, got %d", summary.TotalRows)
	}
	if summary.ImportedRows != 2 {
		t.Fatalf("expected 2 imported rows, got %d", summary.ImportedRows)
	}
	if summary.InvalidRows != 3 {
		t.Fatalf("expected 3 invalid rows, got %d", summary.InvalidRows)
	}
	if len(summary.Errors) != 3 {
		t.Fatalf("expected 3 row errors, got %d", len(summary.Errors))
	}
	// Data rows start right below the header.
	if summary.Errors[0].RowNumber != 3 {
		t.Fatalf("expected first error on row 3, got %d", summary.Errors[0].RowNumber)
	}

	if got := logs.countStatus(domain.IngestionStatusFailed); got != 3 {
		t.Fatalf("expected 3 failed log entries, got %d", got)
	}
	if len(funds.members[fundID]) != 2 {
		t.Fatalf("expected 2 memberships, got %d", len(funds.members[fundID]))
	}
}

func TestServiceIngestHeaderAliases(t *testing.T) {
	fundID := uuid.New()
	funds := newFakeFundRepo(fundID)
	profiles := newFakeProfileRepo()
	logs := &fakeLogRepo{}

	service := NewService(funds, profiles, logs)

	data := "Member Name,E-Mail,Contact,Investment Units,Investment Amount\n" +
		"Alice Kim,alice@example.com,010-1234-5678,7,7000000\n"

	summary, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.csv",
		Data:     strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}
	if summary.ImportedRows != 1 {
		t.Fatalf("expected 1 imported row, got %+v", summary)
	}

	profile, err := profiles.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected profile created: %v", err)
	}
	if profile.Phone != "010-1234-5678" {
		t.Fatalf("expected phone mapped from contact column, got %q", profile.Phone)
	}
	if funds.members[fundID][0].InvestmentUnits != 7 {
		t.Fatalf("expected aliased units column mapped, got %d", funds.members[fundID][0].InvestmentUnits)
	}
}

func TestServiceIngestUnknownFund(t *testing.T) {
	service := NewService(newFakeFundRepo(), newFakeProfileRepo(), &fakeLogRepo{})

	_, err := service.Ingest(context.Background(), Request{
		FundID:   uuid.New(),
		FileName: "roster.csv",
		Data:     strings.NewReader("name,email\nAlice,alice@example.com\n"),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestServiceIngestUnsupportedFormat(t *testing.T) {
	fundID := uuid.New()
	service := NewService(newFakeFundRepo(fundID), newFakeProfileRepo(), &fakeLogRepo{})

	_, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.pdf",
		Data:     strings.NewReader("not a spreadsheet"),
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestServiceIngestExcelRoster(t *testing.T) {
	fundID := uuid.New()
	funds := newFakeFundRepo(fundID)
	profiles := newFakeProfileRepo()
	logs := &fakeLogRepo{}

	service := NewService(funds, profiles, logs)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"name", "email", "units", "amount"},
		{"Alice Kim", "alice@example.com", 10, 10000000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to set sheet row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("failed to write xlsx: %v", err)
	}

	summary, err := service.Ingest(context.Background(), Request{
		FundID:   fundID,
		FileName: "roster.xlsx",
		Data:     &buf,
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}
	if summary.ImportedRows != 1 || summary.InvalidRows != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
