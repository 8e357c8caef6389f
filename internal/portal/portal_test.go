package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

type fakeFundRepo struct {
	funds   map[uuid.UUID]domain.Fund
	members map[uuid.UUID][]domain.FundMember
}

func newFakeFundRepo() *fakeFundRepo {
	return &fakeFundRepo{
		funds:   map[uuid.UUID]domain.Fund{},
		members: map[uuid.UUID][]domain.FundMember{},
	}
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
	if _, ok := r.funds[fund.ID]; !ok {
		return domain.Fund{}, repository.ErrNotFound
	}
	r.funds[fund.ID] = fund
	return fund, nil
}

func (r *fakeFundRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.funds[id]; !ok {
		return repository.ErrNotFound
	}
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
	profiles map[uuid.UUID]domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]domain.Profile{}}
}

func (r *fakeProfileRepo) Create(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.profiles[profile.ID] = profile
	return profile, nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	return profile, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (domain.Profile, error) {
	for _, profile := range r.profiles {
		if strings.EqualFold(profile.Email, email) {
			return profile, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) GetByProvider(_ context.Context, provider domain.AuthProvider, subject string) (domain.Profile, error) {
	for _, profile := range r.profiles {
		if profile.Provider == provider && profile.ProviderSubject == subject && subject != "" {
			return profile, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (r *fakeProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		out = append(out, profile)
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	if _, ok := r.profiles[profile.ID]; !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	r.profiles[profile.ID] = profile
	return profile, nil
}

func (r *fakeProfileRepo) LinkProvider(_ context.Context, profileID uuid.UUID, provider domain.AuthProvider, subject string) (domain.Profile, error) {
	profile, ok := r.profiles[profileID]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	linked := profile.WithProvider(provider, subject)
	r.profiles[profileID] = linked
	return linked, nil
}

func (r *fakeProfileRepo) Link(_ context.Context, profileID, targetID uuid.UUID) (domain.Profile, error) {
	if profileID == targetID {
		return domain.Profile{}, errors.New("cannot link a profile to itself")
	}
	profile, ok := r.profiles[profileID]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	if _, ok := r.profiles[targetID]; !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	linked := profile.WithLink(targetID)
	r.profiles[profileID] = linked
	return linked, nil
}

func adminRequest(method, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	identity := auth.Identity{ProfileID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin}
	return req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
}

func TestFundHandlerCreateAndGet(t *testing.T) {
	funds := newFakeFundRepo()
	handler := NewFundHandler(funds)

	body := `{"name":"SNUSV Angel Fund 2","gpName":"Chung Byung","totalCapAmount":500000000,"parValue":1000000,"termYears":5}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v1/funds", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Fund
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Status != domain.FundStatusRaising {
		t.Fatalf("expected new fund raising, got %s", created.Status)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/funds/"+created.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestFundHandlerCreateRequiresAdmin(t *testing.T) {
	handler := NewFundHandler(newFakeFundRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/funds", strings.NewReader(`{"name":"Fund"}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/funds", strings.NewReader(`{"name":"Fund"}`))
	member := auth.Identity{ProfileID: uuid.New(), Email: "member@example.com", Role: domain.RoleMember}
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), member))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", rec.Code)
	}
}

func TestFundHandlerMemberLifecycle(t *testing.T) {
	funds := newFakeFundRepo()
	fund := domain.NewFund("Fund", "GP", 1000, 10, 5)
	funds.funds[fund.ID] = fund
	handler := NewFundHandler(funds)

	profileID := uuid.New()
	body := fmt.Sprintf(`{"profileId":%q,"units":10,"amount":10000000,"address":"Seoul"}`, profileID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPut, "/api/v1/funds/"+fund.ID.String()+"/members", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(funds.members[fund.ID]) != 1 {
		t.Fatalf("expected 1 member, got %d", len(funds.members[fund.ID]))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodGet, "/api/v1/funds/"+fund.ID.String()+"/members", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing members, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	target := "/api/v1/funds/" + fund.ID.String() + "/members/" + profileID.String()
	handler.ServeHTTP(rec, adminRequest(http.MethodDelete, target, ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(funds.members[fund.ID]) != 0 {
		t.Fatalf("expected member removed, got %d", len(funds.members[fund.ID]))
	}
}

func TestAuthHandlerIssuesToken(t *testing.T) {
	profiles := newFakeProfileRepo()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := NewAuthHandler(profiles, issuer)

	body := `{"email":"alice@example.com","name":"Alice Kim","provider":"GOOGLE","providerSubject":"google-123"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile email %q", response.Profile.Email)
	}

	identity, err := issuer.Verify(response.Token)
	if err != nil {
		t.Fatalf("expected issued token to verify: %v", err)
	}
	if identity.ProfileID != response.Profile.ID {
		t.Fatalf("token subject does not match profile")
	}

	// A second exchange with the same subject reuses the profile.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", rec.Code)
	}
	if len(profiles.profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles.profiles))
	}
}

func TestAuthHandlerAttachesProviderToEmailProfile(t *testing.T) {
	profiles := newFakeProfileRepo()
	existing := domain.NewProfile("alice@example.com", "Alice Kim", domain.AuthProviderEmail, "")
	profiles.profiles[existing.ID] = existing
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := NewAuthHandler(profiles, issuer)

	// First OAuth login for an email-signup profile resolves by email and
	// records the provider subject on that profile.
	body := `{"email":"alice@example.com","name":"Alice Kim","provider":"GOOGLE","providerSubject":"google-123"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Profile.ID != existing.ID {
		t.Fatalf("expected the existing profile, got %s", response.Profile.ID)
	}
	if response.Profile.Provider != domain.AuthProviderGoogle || response.Profile.ProviderSubject != "google-123" {
		t.Fatalf("provider identity was not recorded: %+v", response.Profile)
	}

	stored, err := profiles.GetByProvider(context.Background(), domain.AuthProviderGoogle, "google-123")
	if err != nil {
		t.Fatalf("expected the profile to resolve by provider subject: %v", err)
	}
	if stored.ID != existing.ID {
		t.Fatalf("provider lookup resolved a different profile")
	}

	// The next login takes the provider path and creates nothing.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", rec.Code)
	}
	if len(profiles.profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles.profiles))
	}
}

func TestProfileHandlerLink(t *testing.T) {
	profiles := newFakeProfileRepo()
	emailProfile := domain.NewProfile("alice@example.com", "Alice Kim", domain.AuthProviderEmail, "")
	oauthProfile := domain.NewProfile("alice@gmail.com", "Alice Kim", domain.AuthProviderGoogle, "google-123")
	profiles.profiles[emailProfile.ID] = emailProfile
	profiles.profiles[oauthProfile.ID] = oauthProfile

	handler := NewProfileHandler(profiles)

	body := fmt.Sprintf(`{"targetId":%q}`, emailProfile.ID)
	rec := httptest.NewRecorder()
	target := "/api/v1/profiles/" + oauthProfile.ID.String() + "/link"
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, target, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var linked domain.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &linked); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if linked.LinkedProfileID == nil || *linked.LinkedProfileID != emailProfile.ID {
		t.Fatalf("expected link to email profile, got %+v", linked.LinkedProfileID)
	}
	if linked.CanonicalID() != emailProfile.ID {
		t.Fatalf("expected canonical id to defer to link target")
	}
}

func TestProfileHandlerSelfAccess(t *testing.T) {
	profiles := newFakeProfileRepo()
	member := domain.NewProfile("bob@example.com", "Bob Lee", domain.AuthProviderEmail, "")
	other := domain.NewProfile("carol@example.com", "Carol Park", domain.AuthProviderEmail, "")
	profiles.profiles[member.ID] = member
	profiles.profiles[other.ID] = other

	handler := NewProfileHandler(profiles)
	identity := auth.Identity{ProfileID: member.ID, Email: member.Email, Role: domain.RoleMember}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+member.ID.String(), nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected member to read own profile, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+other.ID.String(), nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected member blocked from other profile, got %d", rec.Code)
	}
}
