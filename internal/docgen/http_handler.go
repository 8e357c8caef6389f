package docgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/generate"):
		h.handleGenerate(w, r)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/compare"):
		h.handleCompare(w, r)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/templates/active"):
		h.handleActiveTemplate(w, r)
		return
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/templates"):
		h.handleListTemplateVersions(w, r)
		return
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/templates/preview"):
		h.handleTemplatePreview(w, r)
		return
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/templates"):
		h.handleTemplateUpdate(w, r)
		return
	case r.Method == http.MethodGet:
		h.handleListVersions(w, r)
		return
	case r.Method == http.MethodDelete:
		h.handleDeleteVersion(w, r)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type generatePayload struct {
	FundID string `json:"fundId"`
	Type   string `json:"type"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.RequireAdmin(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload generatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	fundID, err := uuid.Parse(strings.TrimSpace(payload.FundID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
		return
	}
	docType := domain.DocumentType(strings.TrimSpace(payload.Type))
	if docType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Generate(r.Context(), fundID, docType, identity.ProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	fundID, docType, ok := parseScope(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	from, err := strconv.Atoi(strings.TrimSpace(query.Get("from")))
	if err != nil || from <= 0 {
		http.Error(w, "from must be a positive integer", http.StatusBadRequest)
		return
	}
	to, err := strconv.Atoi(strings.TrimSpace(query.Get("to")))
	if err != nil || to <= 0 {
		http.Error(w, "to must be a positive integer", http.StatusBadRequest)
		return
	}

	diff, err := h.service.Compare(r.Context(), fundID, docType, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	fundID, docType, ok := parseScope(w, r)
	if !ok {
		return
	}
	versions, err := h.service.ListVersions(r.Context(), fundID, docType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	fundID, docType, ok := parseScope(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("version")))
	if err != nil || version <= 0 {
		http.Error(w, "version must be a positive integer", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteVersion(r.Context(), fundID, docType, version); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActiveTemplate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	docType := domain.DocumentType(strings.TrimSpace(query.Get("type")))
	if docType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	var fundID *uuid.UUID
	if raw := strings.TrimSpace(query.Get("fundId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
			return
		}
		fundID = &id
	}
	template, err := h.service.GetActiveTemplate(r.Context(), docType, fundID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, template)
}

func (h *Handler) handleListTemplateVersions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	docType := domain.DocumentType(strings.TrimSpace(query.Get("type")))
	if docType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	var fundID *uuid.UUID
	if raw := strings.TrimSpace(query.Get("fundId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
			return
		}
		fundID = &id
	}
	versions, err := h.service.ListTemplateVersions(r.Context(), docType, fundID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

type templateContentPayload struct {
	TemplateID string                   `json:"templateId"`
	Content    []domain.TemplateSection `json:"content"`
}

func (h *Handler) handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	templateID, content, ok := parseTemplatePayload(w, r)
	if !ok {
		return
	}
	result, err := h.service.PreviewTemplateChanges(r.Context(), templateID, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	templateID, content, ok := parseTemplatePayload(w, r)
	if !ok {
		return
	}
	result, err := h.service.UpdateTemplate(r.Context(), templateID, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func parseTemplatePayload(w http.ResponseWriter, r *http.Request) (uuid.UUID, []domain.TemplateSection, bool) {
	defer r.Body.Close()
	var payload templateContentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	templateID, err := uuid.Parse(strings.TrimSpace(payload.TemplateID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid templateId: %v", err), http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	return templateID, payload.Content, true
}

func parseScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.DocumentType, bool) {
	query := r.URL.Query()
	fundID, err := uuid.Parse(strings.TrimSpace(query.Get("fundId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
		return uuid.Nil, "", false
	}
	docType := domain.DocumentType(strings.TrimSpace(query.Get("type")))
	if docType == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return uuid.Nil, "", false
	}
	return fundID, docType, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
