package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment statuses. Overdue is never stored: a pending row past its due
// date is reported as overdue at read time.
const (
	InstallmentStatusPending   = "pending"
	InstallmentStatusPaid      = "paid"
	InstallmentStatusOverdue   = "overdue"
	InstallmentStatusCancelled = "cancelled"
)

// Plan kinds. A generated plan is lump_sum or installments; editing any due
// date afterwards turns the whole plan custom.
const (
	PlanKindLumpSum      = "lump_sum"
	PlanKindInstallments = "installments"
	PlanKindCustom       = "custom"
)

// Installment is one scheduled payment within a booking's plan.
type Installment struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	BookingID       string          `json:"booking_id" db:"booking_id"`
	SequenceNumber  int             `json:"sequence_number" db:"sequence_number"`
	TotalInPlan     int             `json:"total_in_plan" db:"total_in_plan"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	DueDate         time.Time       `json:"due_date" db:"due_date"`
	Status          string          `json:"status" db:"status"`
	PlanKind        string          `json:"plan_kind" db:"plan_kind"`
	DiscountApplied decimal.Decimal `json:"discount_applied" db:"discount_applied"`
	OriginalAmount  decimal.Decimal `json:"original_amount" db:"original_amount"`
	Description     string          `json:"description" db:"description"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// InstallmentResponse is the read model: status is resolved against the
// current date so a pending row past due reads as overdue.
type InstallmentResponse struct {
	ID              uuid.UUID       `json:"id"`
	SequenceNumber  int             `json:"sequence_number"`
	TotalInPlan     int             `json:"total_in_plan"`
	Amount          decimal.Decimal `json:"amount"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `json:"status"`
	IsOverdue       bool            `json:"is_overdue"`
	PlanKind        string          `json:"plan_kind"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	Description     string          `json:"description"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// ToResponse derives the externally visible status as of now.
func (i *Installment) ToResponse(now time.Time) *InstallmentResponse {
	status := i.Status
	overdue := i.Status == InstallmentStatusPending && now.After(i.DueDate)
	if overdue {
		status = InstallmentStatusOverdue
	}

	return &InstallmentResponse{
		ID:              i.ID,
		SequenceNumber:  i.SequenceNumber,
		TotalInPlan:     i.TotalInPlan,
		Amount:          i.Amount,
		DueDate:         i.DueDate,
		Status:          status,
		IsOverdue:       overdue,
		PlanKind:        i.PlanKind,
		DiscountApplied: i.DiscountApplied,
		OriginalAmount:  i.OriginalAmount,
		Description:     i.Description,
		PaidAt:          i.PaidAt,
	}
}

type ScheduleResponse struct {
	BookingID string                 `json:"booking_id"`
	Schedule  []*InstallmentResponse `json:"schedule"`
}
