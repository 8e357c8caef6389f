package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssemblyKind distinguishes the statutory assemblies a fund holds.
type AssemblyKind string

const (
	AssemblyKindFormation   AssemblyKind = "FORMATION"
	AssemblyKindGeneral     AssemblyKind = "GENERAL"
	AssemblyKindDissolution AssemblyKind = "DISSOLUTION"
)

// AssemblyStatus tracks notification and completion of an assembly.
type AssemblyStatus string

const (
	AssemblyStatusScheduled AssemblyStatus = "SCHEDULED"
	AssemblyStatusNotified  AssemblyStatus = "NOTIFIED"
	AssemblyStatusHeld      AssemblyStatus = "HELD"
	AssemblyStatusCancelled AssemblyStatus = "CANCELLED"
)

// Assembly represents a member assembly event for a fund.
type Assembly struct {
	ID          uuid.UUID      `json:"id"`
	FundID      uuid.UUID      `json:"fund_id"`
	Kind        AssemblyKind   `json:"kind"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Location    string         `json:"location,omitempty"`
	Agenda      string         `json:"agenda,omitempty"`
	Status      AssemblyStatus `json:"status"`
	NotifiedAt  *time.Time     `json:"notified_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewAssembly schedules an assembly for a fund.
func NewAssembly(fundID uuid.UUID, kind AssemblyKind, scheduledAt time.Time, location string) Assembly {
	now := time.Now()
	return Assembly{
		ID:          uuid.New(),
		FundID:      fundID,
		Kind:        kind,
		ScheduledAt: scheduledAt,
		Location:    location,
		Status:      AssemblyStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithNotified marks the assembly as having had its notice emails sent.
func (a Assembly) WithNotified(at time.Time) Assembly {
	a.Status = AssemblyStatusNotified
	a.NotifiedAt = &at
	a.UpdatedAt = at
	return a
}
