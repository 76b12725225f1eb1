package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BookingStatusActive    = "active"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a passenger registration on a caravan trip. EventDate is
// the departure date the payment deadline is derived from; TotalAmount is the
// ticket price net of any per-passenger discount.
type Booking struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	BookingID     string          `json:"booking_id" db:"booking_id"`
	PassengerName string          `json:"passenger_name" db:"passenger_name"`
	TripName      string          `json:"trip_name" db:"trip_name"`
	EventDate     time.Time       `json:"event_date" db:"event_date"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateBookingRequest struct {
	BookingID     string          `json:"booking_id" validate:"required"`
	PassengerName string          `json:"passenger_name" validate:"required"`
	TripName      string          `json:"trip_name" validate:"required"`
	EventDate     string          `json:"event_date" validate:"required,datetime=2006-01-02"`
	TotalAmount   decimal.Decimal `json:"total_amount" validate:"required,gt=0"`
}

type SelectPlanRequest struct {
	InstallmentCount int `json:"installment_count" validate:"required,gte=1"`
}

type RescheduleRequest struct {
	DueDates []string `json:"due_dates" validate:"required,min=1,dive,datetime=2006-01-02"`
}

type CreateBookingResponse struct {
	Booking *Booking `json:"booking"`
}

type SelectPlanResponse struct {
	Booking  *Booking       `json:"booking"`
	Schedule []*Installment `json:"schedule"`
}
