package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

// ProfileHandler serves profile lookup, updates and account linking.
type ProfileHandler struct {
	profiles repository.ProfileRepository
}

func NewProfileHandler(profiles repository.ProfileRepository) http.Handler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, hasID := pathID(r.URL.Path, "profiles")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/link"):
		h.handleLink(w, r, id, hasID)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/me"):
		h.handleMe(w, r)
		return
	case r.Method == http.MethodGet && hasID:
		h.handleGet(w, r, id)
		return
	case r.Method == http.MethodGet:
		h.handleList(w, r)
		return
	case r.Method == http.MethodPut && hasID:
		h.handleUpdate(w, r, id)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

// canAccess allows a caller to touch their own profile, admins any profile.
func canAccess(r *http.Request, id uuid.UUID) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, false
	}
	if identity.ProfileID == id {
		return identity, true
	}
	if _, err := auth.RequireAdmin(r.Context()); err == nil {
		return identity, true
	}
	return identity, false
}

func (h *ProfileHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	h.handleGet(w, r, identity.ProfileID)
}

func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, ok := canAccess(r, id); !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	profile, err := h.profiles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

type profilePayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *ProfileHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, ok := canAccess(r, id); !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(payload.Name) != "" {
		profile.Name = payload.Name
	}
	if strings.TrimSpace(payload.Phone) != "" {
		profile.Phone = payload.Phone
	}

	updated, err := h.profiles.Update(r.Context(), profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type linkPayload struct {
	TargetID string `json:"targetId"`
}

// handleLink resolves two signup identities to one person. The linked profile
// defers its fund memberships to the target from then on.
func (h *ProfileHandler) handleLink(w http.ResponseWriter, r *http.Request, id uuid.UUID, hasID bool) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if !hasID {
		http.Error(w, "profile id is required", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	var payload linkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	targetID, err := uuid.Parse(strings.TrimSpace(payload.TargetID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid targetId: %v", err), http.StatusBadRequest)
		return
	}

	linked, err := h.profiles.Link(r.Context(), id, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, linked)
}
