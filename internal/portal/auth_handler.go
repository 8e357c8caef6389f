package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

// AuthHandler exchanges a provider-verified identity for a portal token.
// Verification of the provider assertion itself happens upstream at the
// identity provider; this handler resolves the profile and signs the token.
type AuthHandler struct {
	profiles repository.ProfileRepository
	issuer   *auth.TokenIssuer
}

func NewAuthHandler(profiles repository.ProfileRepository, issuer *auth.TokenIssuer) http.Handler {
	return &AuthHandler{profiles: profiles, issuer: issuer}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/token") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.handleToken(w, r)
}

type tokenPayload struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Provider        string `json:"provider"`
	ProviderSubject string `json:"providerSubject"`
}

type tokenResponse struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload tokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	provider := domain.AuthProvider(strings.TrimSpace(payload.Provider))
	if provider == "" {
		provider = domain.AuthProviderEmail
	}

	profile, err := h.resolveProfile(r, email, payload.Name, provider, strings.TrimSpace(payload.ProviderSubject))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, err := h.issuer.Issue(profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Profile: profile})
}

// resolveProfile finds the profile for a verified identity, preferring the
// provider subject, then the email, creating a fresh member profile when the
// person is unknown. An email match for a provider login records the subject
// on that profile, so the next login resolves through the provider lookup.
func (h *AuthHandler) resolveProfile(r *http.Request, email, name string, provider domain.AuthProvider, subject string) (domain.Profile, error) {
	if subject != "" {
		profile, err := h.profiles.GetByProvider(r.Context(), provider, subject)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, err
		}
	}

	profile, err := h.profiles.GetByEmail(r.Context(), email)
	if err == nil {
		if subject != "" && (profile.Provider != provider || profile.ProviderSubject != subject) {
			linked, linkErr := h.profiles.LinkProvider(r.Context(), profile.ID, provider, subject)
			if linkErr != nil {
				return domain.Profile{}, fmt.Errorf("failed to attach provider identity: %w", linkErr)
			}
			return linked, nil
		}
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Profile{}, err
	}

	fresh := domain.NewProfile(email, name, provider, subject)
	created, err := h.profiles.Create(r.Context(), fresh)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}
