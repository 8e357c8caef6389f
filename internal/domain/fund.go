package domain

import (
	"time"

	"github.com/google/uuid"
)

// FundStatus represents the lifecycle status of a fund.
type FundStatus string

const (
	FundStatusRaising   FundStatus = "RAISING"
	FundStatusActive    FundStatus = "ACTIVE"
	FundStatusDissolved FundStatus = "DISSOLVED"
)

// Fund represents a venture fund (investment association) managed by the club.
type Fund struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	GPName         string     `json:"gp_name"`
	TotalCapAmount int64      `json:"total_cap_amount"` // KRW
	ParValue       int64      `json:"par_value"`        // KRW per unit
	TermYears      int        `json:"term_years"`
	Status         FundStatus `json:"status"`
	FormedAt       *time.Time `json:"formed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewFund creates a fund in the RAISING state.
func NewFund(name, gpName string, totalCap, parValue int64, termYears int) Fund {
	now := time.Now()
	return Fund{
		ID:             uuid.New(),
		Name:           name,
		GPName:         gpName,
		TotalCapAmount: totalCap,
		ParValue:       parValue,
		TermYears:      termYears,
		Status:         FundStatusRaising,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// WithStatus returns a copy of the fund with an updated lifecycle status.
func (f Fund) WithStatus(status FundStatus) Fund {
	f.Status = status
	f.UpdatedAt = time.Now()
	return f
}

// FundMember links a profile to a fund with its committed investment.
type FundMember struct {
	ID                 uuid.UUID `json:"id"`
	FundID             uuid.UUID `json:"fund_id"`
	ProfileID          uuid.UUID `json:"profile_id"`
	InvestmentUnits    int64     `json:"investment_units"`
	InvestmentAmount   int64     `json:"investment_amount"`
	Address            string    `json:"address,omitempty"`
	RegistrationNumber string    `json:"registration_number,omitempty"` // masked
	JoinedAt           time.Time `json:"joined_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewFundMember creates a membership record for a fund.
func NewFundMember(fundID, profileID uuid.UUID, units, amount int64) FundMember {
	now := time.Now()
	return FundMember{
		ID:               uuid.New(),
		FundID:           fundID,
		ProfileID:        profileID,
		InvestmentUnits:  units,
		InvestmentAmount: amount,
		JoinedAt:         now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
