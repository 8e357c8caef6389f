package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a portfolio company the club has invested in or screens.
type Company struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Registry    string    `json:"registry,omitempty"` // corporate registration number
	Sector      string    `json:"sector,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCompany registers a portfolio company.
func NewCompany(name, registry, sector, description string) Company {
	now := time.Now()
	return Company{
		ID:          uuid.New(),
		Name:        name,
		Registry:    registry,
		Sector:      sector,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// InvestmentStatus tracks the state of a single investment.
type InvestmentStatus string

const (
	InvestmentStatusCommitted InvestmentStatus = "COMMITTED"
	InvestmentStatusExecuted  InvestmentStatus = "EXECUTED"
	InvestmentStatusExited    InvestmentStatus = "EXITED"
	InvestmentStatusWrittenOff InvestmentStatus = "WRITTEN_OFF"
)

// Investment records a fund's position in a company.
type Investment struct {
	ID         uuid.UUID        `json:"id"`
	FundID     uuid.UUID        `json:"fund_id"`
	CompanyID  uuid.UUID        `json:"company_id"`
	Amount     int64            `json:"amount"` // KRW
	Units      int64            `json:"units,omitempty"`
	Status     InvestmentStatus `json:"status"`
	InvestedAt *time.Time       `json:"invested_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewInvestment creates a committed investment for a fund.
func NewInvestment(fundID, companyID uuid.UUID, amount int64) Investment {
	now := time.Now()
	return Investment{
		ID:        uuid.New(),
		FundID:    fundID,
		CompanyID: companyID,
		Amount:    amount,
		Status:    InvestmentStatusCommitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
