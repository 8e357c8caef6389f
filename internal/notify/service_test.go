package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

type fakeAssemblyRepo struct {
	assemblies map[uuid.UUID]domain.Assembly
	due        []domain.Assembly
}

func (r *fakeAssemblyRepo) Create(_ context.Context, assembly domain.Assembly) (domain.Assembly, error) {
	r.assemblies[assembly.ID] = assembly
	return assembly, nil
}

func (r *fakeAssemblyRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Assembly, error) {
	assembly, ok := r.assemblies[id]
	if !ok {
		return domain.Assembly{}, repository.ErrNotFound
	}
	return assembly, nil
}

func (r *fakeAssemblyRepo) List(_ context.Context, _ uuid.UUID) ([]domain.Assembly, error) {
	return nil, nil
}

func (r *fakeAssemblyRepo) Update(_ context.Context, assembly domain.Assembly) (domain.Assembly, error) {
	r.assemblies[assembly.ID] = assembly
	return assembly, nil
}

func (r *fakeAssemblyRepo) ListDue(_ context.Context, _ int) ([]domain.Assembly, error) {
	return r.due, nil
}

type fakeFundRepo struct {
	funds   map[uuid.UUID]domain.Fund
	members map[uuid.UUID][]domain.FundMember
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

func (r *fakeFundRepo) List(_ context.Context) ([]domain.Fund, error) { return nil, nil }

func (r *fakeFundRepo) Update(_ context.Context, fund domain.Fund) (domain.Fund, error) {
	r.funds[fund.ID] = fund
	return fund, nil
}

func (r *fakeFundRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakeFundRepo) UpsertMember(_ context.Context, member domain.FundMember) (domain.FundMember, error) {
	r.members[member.FundID] = append(r.members[member.FundID], member)
	return member, nil
}

func (r *fakeFundRepo) ListMembers(_ context.Context, fundID uuid.UUID) ([]domain.FundMember, error) {
	return r.members[fundID], nil
}

func (r *fakeFundRepo) RemoveMember(_ context.Context, _, _ uuid.UUID) error { return nil }

type fakeProfileRepo struct {
	byID map[uuid.UUID]domain.Profile
}

func (r *fakeProfileRepo) Create(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.byID[profile.ID] = profile
	return profile, nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Profile, error) {
	profile, ok := r.byID[id]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	return profile, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, _ string) (domain.Profile, error) {
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) GetByProvider(_ context.Context, _ domain.AuthProvider, _ string) (domain.Profile, error) {
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) List(_ context.Context) ([]domain.Profile, error) { return nil, nil }

func (r *fakeProfileRepo) Update(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.byID[profile.ID] = profile
	return profile, nil
}

func (r *fakeProfileRepo) Link(_ context.Context, _, _ uuid.UUID) (domain.Profile, error) {
	return domain.Profile{}, errors.New("not implemented")
}

func (r *fakeProfileRepo) LinkProvider(_ context.Context, _ uuid.UUID, _ domain.AuthProvider, _ string) (domain.Profile, error) {
	return domain.Profile{}, errors.New("not implemented")
}

type fakeMailer struct {
	sent    []Message
	failFor map[string]error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 1 {
		if err, ok := m.failFor[msg.To[0].Email]; ok {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

type noticeFixture struct {
	service    *Service
	assemblies *fakeAssemblyRepo
	mailer     *fakeMailer
	assembly   domain.Assembly
	now        time.Time
}

func newNoticeFixture(t *testing.T) *noticeFixture {
	t.Helper()

	fund := domain.NewFund("SNUSV Angel Fund 2", "Chung Byung", 500000000, 1000000, 5)

	alice := domain.NewProfile("alice@example.com", "Alice Kim", domain.AuthProviderEmail, "")
	bob := domain.NewProfile("bob@example.com", "Bob Lee", domain.AuthProviderEmail, "")

	scheduled := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	assembly := domain.NewAssembly(fund.ID, domain.AssemblyKindFormation, scheduled, "Seoul Office")
	assembly.Agenda = "1. Formation approval"

	assemblies := &fakeAssemblyRepo{assemblies: map[uuid.UUID]domain.Assembly{assembly.ID: assembly}}
	funds := &fakeFundRepo{
		funds: map[uuid.UUID]domain.Fund{fund.ID: fund},
		members: map[uuid.UUID][]domain.FundMember{
			fund.ID: {
				domain.NewFundMember(fund.ID, alice.ID, 10, 10000000),
				domain.NewFundMember(fund.ID, bob.ID, 5, 5000000),
			},
		},
	}
	profiles := &fakeProfileRepo{byID: map[uuid.UUID]domain.Profile{
		alice.ID: alice,
		bob.ID:   bob,
	}}
	mailer := &fakeMailer{failFor: map[string]error{}}

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	service := NewService(assemblies, funds, profiles, mailer,
		WithClock(func() time.Time { return now }),
	)

	return &noticeFixture{
		service:    service,
		assemblies: assemblies,
		mailer:     mailer,
		assembly:   assembly,
		now:        now,
	}
}

func TestSendAssemblyNotice(t *testing.T) {
	fx := newNoticeFixture(t)

	result, err := fx.service.SendAssemblyNotice(context.Background(), fx.assembly.ID)
	if err != nil {
		t.Fatalf("send notice returned error: %v", err)
	}

	if result.Recipients != 2 || result.Sent != 2 || len(result.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(fx.mailer.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fx.mailer.sent))
	}

	first := fx.mailer.sent[0]
	if first.Subject != "[SNUSV Angel Fund 2] Formation Assembly Notice" {
		t.Fatalf("unexpected subject %q", first.Subject)
	}
	if !strings.Contains(first.Text, "Dear Alice Kim") {
		t.Fatalf("expected member name in body, got %q", first.Text)
	}
	if !strings.Contains(first.Text, "2026-03-10 14:00") {
		t.Fatalf("expected schedule in body, got %q", first.Text)
	}
	if !strings.Contains(first.Text, "Seoul Office") {
		t.Fatalf("expected location in body, got %q", first.Text)
	}

	updated := fx.assemblies.assemblies[fx.assembly.ID]
	if updated.Status != domain.AssemblyStatusNotified {
		t.Fatalf("expected assembly marked notified, got %s", updated.Status)
	}
	if updated.NotifiedAt == nil || !updated.NotifiedAt.Equal(fx.now) {
		t.Fatalf("expected notified_at %v, got %v", fx.now, updated.NotifiedAt)
	}
}

func TestSendAssemblyNoticeToleratesRecipientFailure(t *testing.T) {
	fx := newNoticeFixture(t)
	fx.mailer.failFor["bob@example.com"] = errors.New("mailbox unavailable")

	result, err := fx.service.SendAssemblyNotice(context.Background(), fx.assembly.ID)
	if err != nil {
		t.Fatalf("send notice returned error: %v", err)
	}

	if result.Sent != 1 {
		t.Fatalf("expected 1 sent, got %d", result.Sent)
	}
	if len(result.Failed) != 1 || result.Failed[0].Email != "bob@example.com" {
		t.Fatalf("expected bob to fail, got %+v", result.Failed)
	}

	updated := fx.assemblies.assemblies[fx.assembly.ID]
	if updated.Status != domain.AssemblyStatusNotified {
		t.Fatalf("expected assembly still marked notified, got %s", updated.Status)
	}
}

func TestSendAssemblyNoticeRejectsWrongStatus(t *testing.T) {
	fx := newNoticeFixture(t)
	cancelled := fx.assembly
	cancelled.Status = domain.AssemblyStatusCancelled
	fx.assemblies.assemblies[fx.assembly.ID] = cancelled

	if _, err := fx.service.SendAssemblyNotice(context.Background(), fx.assembly.ID); err == nil {
		t.Fatalf("expected error for cancelled assembly")
	}
}

func TestSendAssemblyNoticeUnknownAssembly(t *testing.T) {
	fx := newNoticeFixture(t)

	_, err := fx.service.SendAssemblyNotice(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRunDueSweep(t *testing.T) {
	fx := newNoticeFixture(t)
	fx.assemblies.due = []domain.Assembly{fx.assembly}

	notified, err := fx.service.RunDueSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected 1 assembly notified, got %d", notified)
	}
	if len(fx.mailer.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fx.mailer.sent))
	}
}
