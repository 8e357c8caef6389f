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
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

// FundHandler serves fund CRUD and membership management.
type FundHandler struct {
	funds repository.FundRepository
}

func NewFundHandler(funds repository.FundRepository) http.Handler {
	return &FundHandler{funds: funds}
}

func (h *FundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, hasID := pathID(r.URL.Path, "funds")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/members"):
		h.handleListMembers(w, r, id, hasID)
		return
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/members"):
		h.handleUpsertMember(w, r, id, hasID)
		return
	case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/members/"):
		h.handleRemoveMember(w, r, id, hasID)
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
	case r.Method == http.MethodDelete && hasID:
		h.handleDelete(w, r, id)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type fundPayload struct {
	Name           string `json:"name"`
	GPName         string `json:"gpName"`
	TotalCapAmount int64  `json:"totalCapAmount"`
	ParValue       int64  `json:"parValue"`
	TermYears      int    `json:"termYears"`
	Status         string `json:"status"`
	FormedAt       string `json:"formedAt"`
}

func (h *FundHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload fundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	fund := domain.NewFund(payload.Name, payload.GPName, payload.TotalCapAmount, payload.ParValue, payload.TermYears)
	created, err := h.funds.Create(r.Context(), fund)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *FundHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	fund, err := h.funds.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "fund not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, fund)
}

func (h *FundHandler) handleList(w http.ResponseWriter, r *http.Request) {
	funds, err := h.funds.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, funds)
}

func (h *FundHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	var payload fundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	fund, err := h.funds.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "fund not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if strings.TrimSpace(payload.Name) != "" {
		fund.Name = payload.Name
	}
	if strings.TrimSpace(payload.GPName) != "" {
		fund.GPName = payload.GPName
	}
	if payload.TotalCapAmount > 0 {
		fund.TotalCapAmount = payload.TotalCapAmount
	}
	if payload.ParValue > 0 {
		fund.ParValue = payload.ParValue
	}
	if payload.TermYears > 0 {
		fund.TermYears = payload.TermYears
	}
	if status := strings.TrimSpace(payload.Status); status != "" {
		fund = fund.WithStatus(domain.FundStatus(status))
	}
	if raw := strings.TrimSpace(payload.FormedAt); raw != "" {
		formed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			http.Error(w, fmt.Sprintf("invalid formedAt: %v", parseErr), http.StatusBadRequest)
			return
		}
		fund.FormedAt = &formed
	}

	updated, err := h.funds.Update(r.Context(), fund)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FundHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if err := h.funds.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "fund not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FundHandler) handleListMembers(w http.ResponseWriter, r *http.Request, id uuid.UUID, hasID bool) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if !hasID {
		http.Error(w, "fund id is required", http.StatusBadRequest)
		return
	}
	members, err := h.funds.ListMembers(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type memberPayload struct {
	ProfileID          string `json:"profileId"`
	Units              int64  `json:"units"`
	Amount             int64  `json:"amount"`
	Address            string `json:"address"`
	RegistrationNumber string `json:"registrationNumber"`
}

func (h *FundHandler) handleUpsertMember(w http.ResponseWriter, r *http.Request, id uuid.UUID, hasID bool) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if !hasID {
		http.Error(w, "fund id is required", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	var payload memberPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	profileID, err := uuid.Parse(strings.TrimSpace(payload.ProfileID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid profileId: %v", err), http.StatusBadRequest)
		return
	}

	member := domain.NewFundMember(id, profileID, payload.Units, payload.Amount)
	member.Address = payload.Address
	member.RegistrationNumber = payload.RegistrationNumber
	upserted, err := h.funds.UpsertMember(r.Context(), member)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, upserted)
}

func (h *FundHandler) handleRemoveMember(w http.ResponseWriter, r *http.Request, id uuid.UUID, hasID bool) {
	if _, err := auth.RequireAdmin(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if !hasID {
		http.Error(w, "fund id is required", http.StatusBadRequest)
		return
	}
	profileID, err := uuid.Parse(lastSegment(r.URL.Path))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid profile id: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.funds.RemoveMember(r.Context(), id, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "membership not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
