package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/caravanhq/payments-engine/internal/domain"
)

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_id, passenger_name, trip_name, event_date, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.BookingID,
		booking.PassengerName,
		booking.TripName,
		booking.EventDate,
		booking.TotalAmount,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	return err
}

func (r *bookingRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	query := `
		SELECT id, booking_id, passenger_name, trip_name, event_date, total_amount, status, created_at, updated_at
		FROM bookings
		WHERE booking_id = $1
	`

	var booking domain.Booking
	err := r.db.GetContext(ctx, &booking, query, bookingID)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET passenger_name = $2, trip_name = $3, event_date = $4, total_amount = $5, status = $6, updated_at = $7
		WHERE booking_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		booking.BookingID,
		booking.PassengerName,
		booking.TripName,
		booking.EventDate,
		booking.TotalAmount,
		booking.Status,
		time.Now(),
	)

	return err
}
