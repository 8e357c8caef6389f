package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/notify"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

// AssemblyHandler serves assembly scheduling and notice dispatch.
type AssemblyHandler struct {
	assemblies repository.AssemblyRepository
	notices    *notify.Service
}

func NewAssemblyHandler(assemblies repository.AssemblyRepository, notices *notify.Service) http.Handler {
	return &AssemblyHandler{assemblies: assemblies, notices: notices}
}

func (h *AssemblyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, hasID := pathID(r.URL.Path, "assemblies")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/notice"):
		h.handleSendNotice(w, r, id, hasID)
		return
	case r.Method == http.MethodPost:
		h.handleCreate(w, r)
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

type assemblyPayload struct {
	FundID      string `json:"fundId"`
	Kind        string `json:"kind"`
	ScheduledAt string `json:"scheduledAt"`
	Location    string `json:"location"`
	Agenda      string `json:"agenda"`
	Status      string `json:"status"`
}

func (h *AssemblyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload assemblyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	fundID, err := uuid.Parse(strings.TrimSpace(payload.FundID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.ScheduledAt))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid scheduledAt: %v", err), http.StatusBadRequest)
		return
	}

	assembly := domain.NewAssembly(fundID, domain.AssemblyKind(strings.TrimSpace(payload.Kind)), scheduledAt, payload.Location)
	assembly.Agenda = payload.Agenda
	created, err := h.assemblies.Create(r.Context(), assembly)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AssemblyHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	assembly, err := h.assemblies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "assembly not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, assembly)
}

func (h *AssemblyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	fundID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("fundId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fund id: %v", err), http.StatusBadRequest)
		return
	}
	assemblies, err := h.assemblies.List(r.Context(), fundID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, assemblies)
}

func (h *AssemblyHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload assemblyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	assembly, err := h.assemblies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "assembly not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if raw := strings.TrimSpace(payload.ScheduledAt); raw != "" {
		scheduledAt, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			http.Error(w, fmt.Sprintf("invalid scheduledAt: %v", parseErr), http.StatusBadRequest)
			return
		}
		assembly.ScheduledAt = scheduledAt
	}
	if payload.Location != "" {
		assembly.Location = payload.Location
	}
	if payload.Agenda != "" {
		assembly.Agenda = payload.Agenda
	}
	if status := strings.TrimSpace(payload.Status); status != "" {
		assembly.Status = domain.AssemblyStatus(status)
	}
	assembly.UpdatedAt = time.Now()

	updated, err := h.assemblies.Update(r.Context(), assembly)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AssemblyHandler) handleSendNotice(w http.ResponseWriter, r *http.Request, id uuid.UUID, hasID bool) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if !hasID {
		http.Error(w, "assembly id is required", http.StatusBadRequest)
		return
	}
	if h.notices == nil {
		http.Error(w, "notice delivery is not configured", http.StatusServiceUnavailable)
		return
	}
	result, err := h.notices.SendAssemblyNotice(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "assembly not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
