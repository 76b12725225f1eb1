package repository

import (
	"context"
	"time"

	"github.com/caravanhq/payments-engine/internal/domain"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create creates a new booking
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByBookingID retrieves a booking by its external booking ID
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error)

	// Update updates a booking
	Update(ctx context.Context, booking *domain.Booking) error
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// CreateBatch inserts a full schedule in one transaction
	CreateBatch(ctx context.Context, installments []*domain.Installment) error

	// GetByBookingID retrieves a booking's schedule ordered by sequence
	GetByBookingID(ctx context.Context, bookingID string) ([]*domain.Installment, error)

	// ReplaceSchedule swaps a booking's schedule for a new one in one transaction
	ReplaceSchedule(ctx context.Context, bookingID string, installments []*domain.Installment) error

	// UpdateStatus updates one installment's status, stamping paid_at for paid
	UpdateStatus(ctx context.Context, bookingID string, sequenceNumber int, status string, paidAt *time.Time) error

	// GetDueBetween lists pending installments due in [from, to), across bookings
	GetDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Installment, error)
}
