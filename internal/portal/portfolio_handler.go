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

// PortfolioHandler serves portfolio companies and per-fund investments.
type PortfolioHandler struct {
	portfolio repository.PortfolioRepository
}

func NewPortfolioHandler(portfolio repository.PortfolioRepository) http.Handler {
	return &PortfolioHandler{portfolio: portfolio}
}

func (h *PortfolioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.Contains(r.URL.Path, "/companies"):
		h.serveCompanies(w, r)
		return
	case strings.Contains(r.URL.Path, "/investments"):
		h.serveInvestments(w, r)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type companyPayload struct {
	Name        string `json:"name"`
	Registry    string `json:"registry"`
	Sector      string `json:"sector"`
	Description string `json:"description"`
}

func (h *PortfolioHandler) serveCompanies(w http.ResponseWriter, r *http.Request) {
	id, hasID := pathID(r.URL.Path, "companies")
	switch {
	case r.Method == http.MethodPost:
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		defer r.Body.Close()
		var payload companyPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(payload.Name) == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		company := domain.NewCompany(payload.Name, payload.Registry, payload.Sector, payload.Description)
		created, err := h.portfolio.CreateCompany(r.Context(), company)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case r.Method == http.MethodGet && hasID:
		company, err := h.portfolio.GetCompany(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "company not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, company)
	case r.Method == http.MethodGet:
		companies, err := h.portfolio.ListCompanies(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, companies)
	case r.Method == http.MethodPut && hasID:
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		defer r.Body.Close()
		var payload companyPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
		company, err := h.portfolio.GetCompany(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "company not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if strings.TrimSpace(payload.Name) != "" {
			company.Name = payload.Name
		}
		if payload.Registry != "" {
			company.Registry = payload.Registry
		}
		if payload.Sector != "" {
			company.Sector = payload.Sector
		}
		if payload.Description != "" {
			company.Description = payload.Description
		}
		company.UpdatedAt = time.Now()
		updated, err := h.portfolio.UpdateCompany(r.Context(), company)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type investmentPayload struct {
	FundID     string `json:"fundId"`
	CompanyID  string `json:"companyId"`
	Amount     int64  `json:"amount"`
	Units      int64  `json:"units"`
	Status     string `json:"status"`
	InvestedAt string `json:"investedAt"`
}

func (h *PortfolioHandler) serveInvestments(w http.ResponseWriter, r *http.Request) {
	id, hasID := pathID(r.URL.Path, "investments")
	switch {
	case r.Method == http.MethodPost:
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		defer r.Body.Close()
		var payload investmentPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
		fundID, err := uuid.Parse(strings.TrimSpace(payload.FundID))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid fundId: %v", err), http.StatusBadRequest)
			return
		}
		companyID, err := uuid.Parse(strings.TrimSpace(payload.CompanyID))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid companyId: %v", err), http.StatusBadRequest)
			return
		}
		investment := domain.NewInvestment(fundID, companyID, payload.Amount)
		investment.Units = payload.Units
		if err := applyInvestmentFields(&investment, payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := h.portfolio.CreateInvestment(r.Context(), investment)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case r.Method == http.MethodGet:
		fundID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("fundId")))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid fund id: %v", err), http.StatusBadRequest)
			return
		}
		investments, err := h.portfolio.ListInvestments(r.Context(), fundID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, investments)
	case r.Method == http.MethodPut && hasID:
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		defer r.Body.Close()
		var payload investmentPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
		h.updateInvestment(w, r, id, payload)
	case r.Method == http.MethodDelete && hasID:
		if _, err := auth.RequireAdmin(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		if err := h.portfolio.DeleteInvestment(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				http.Error(w, "investment not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *PortfolioHandler) updateInvestment(w http.ResponseWriter, r *http.Request, id uuid.UUID, payload investmentPayload) {
	// The repository updates status, amount, shares and invested_at only, the
	// fund and company links on an investment are immutable.
	investment := domain.Investment{ID: id}
	investment.Amount = payload.Amount
	investment.Units = payload.Units
	if err := applyInvestmentFields(&investment, payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	investment.UpdatedAt = time.Now()

	updated, err := h.portfolio.UpdateInvestment(r.Context(), investment)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "investment not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func applyInvestmentFields(investment *domain.Investment, payload investmentPayload) error {
	if status := strings.TrimSpace(payload.Status); status != "" {
		investment.Status = domain.InvestmentStatus(status)
	}
	if raw := strings.TrimSpace(payload.InvestedAt); raw != "" {
		investedAt, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid investedAt: %w", err)
		}
		investment.InvestedAt = &investedAt
	}
	return nil
}
