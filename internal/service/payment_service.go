package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/caravanhq/payments-engine/internal/config"
	"github.com/caravanhq/payments-engine/internal/domain"
	"github.com/caravanhq/payments-engine/internal/repository"
	"github.com/caravanhq/payments-engine/internal/schedule"
	customError "github.com/caravanhq/payments-engine/pkg/errors"
)

// PaymentService orchestrates the plan calculator, the repositories and the
// option cache. All plan math lives in the schedule package; this layer owns
// persistence, the paid-row edit guard and caching.
type PaymentService struct {
	bookingRepo     repository.BookingRepository
	installmentRepo repository.InstallmentRepository
	redis           *redis.Client
	config          *config.Config
	logger          *logrus.Logger
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	installmentRepo repository.InstallmentRepository,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		bookingRepo:     bookingRepo,
		installmentRepo: installmentRepo,
		redis:           redisClient,
		config:          cfg,
		logger:          logger,
	}
}

// CreateBooking registers a passenger on a trip. The event date must still be
// in the future and the amount positive, otherwise no plan could ever be
// computed for the booking.
func (s *PaymentService) CreateBooking(ctx context.Context, request *domain.CreateBookingRequest) (*domain.Booking, error) {
	existing, err := s.bookingRepo.GetByBookingID(ctx, request.BookingID)
	if err == nil && existing != nil {
		return nil, customError.WrapBookingAlreadyExists(request.BookingID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	eventDate, err := time.Parse(time.DateOnly, request.EventDate)
	if err != nil {
		return nil, fmt.Errorf("invalid event date: %w", err)
	}

	// Reject inputs the calculator would reject later, so bad bookings never
	// reach the database.
	if _, err := schedule.ComputeOptions(time.Now(), eventDate, request.TotalAmount, s.planConfig()); err != nil {
		return nil, err
	}

	now := time.Now()
	booking := &domain.Booking{
		ID:            uuid.New(),
		BookingID:     request.BookingID,
		PassengerName: request.PassengerName,
		TripName:      request.TripName,
		EventDate:     schedule.Day(eventDate),
		TotalAmount:   request.TotalAmount,
		Status:        domain.BookingStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return booking, nil
}

// GetPlanOptions computes the valid payment plans for a booking as of today.
// Options only change when the calendar day does, so the rendered result is
// cached per booking and day.
func (s *PaymentService) GetPlanOptions(ctx context.Context, bookingID string) ([]schedule.Option, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	today := schedule.Day(time.Now())
	cacheKey := fmt.Sprintf("plan-options:%s:%s", bookingID, today.Format(time.DateOnly))

	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var options []schedule.Option
		if err := json.Unmarshal([]byte(cached), &options); err == nil {
			return options, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WithError(err).Warn("plan option cache read failed")
	}

	options, err := schedule.ComputeOptions(today, booking.EventDate, booking.TotalAmount, s.planConfig())
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(options); err == nil {
		if err := s.redis.Set(ctx, cacheKey, payload, s.config.GetCacheTTL()).Err(); err != nil {
			s.logger.WithError(err).Warn("plan option cache write failed")
		}
	}

	return options, nil
}

// SelectPlan commits one of the computed options: the matching plan is
// rebuilt, expanded into pending installments and persisted. installmentCount
// 1 selects the lump sum.
func (s *PaymentService) SelectPlan(ctx context.Context, bookingID string, installmentCount int) (*domain.Booking, []*domain.Installment, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.installmentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}
	if len(existing) > 0 {
		return nil, nil, customError.WrapPlanAlreadySelected(bookingID)
	}

	options, err := schedule.ComputeOptions(time.Now(), booking.EventDate, booking.TotalAmount, s.planConfig())
	if err != nil {
		return nil, nil, err
	}

	var selected *schedule.Option
	for i := range options {
		if options[i].InstallmentCount == installmentCount {
			selected = &options[i]
			break
		}
	}
	if selected == nil {
		return nil, nil, customError.WrapPlanOptionNotAvailable(installmentCount)
	}

	installments, err := schedule.BuildInstallments(*selected, bookingID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	for _, in := range installments {
		in.ID = uuid.New()
		in.CreatedAt = now
		in.UpdatedAt = now
	}

	if err := s.installmentRepo.CreateBatch(ctx, installments); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"plan_kind":    selected.Kind,
		"installments": selected.InstallmentCount,
	}).Info("payment plan selected")

	return booking, installments, nil
}

// GetSchedule returns a booking's schedule with overdue derived against the
// current date.
func (s *PaymentService) GetSchedule(ctx context.Context, bookingID string) (*domain.ScheduleResponse, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(installments) == 0 {
		return nil, customError.WrapNoSchedule(bookingID)
	}

	now := time.Now()
	resp := &domain.ScheduleResponse{
		BookingID: bookingID,
		Schedule:  make([]*domain.InstallmentResponse, 0, len(installments)),
	}
	for _, in := range installments {
		resp.Schedule = append(resp.Schedule, in.ToResponse(now))
	}

	return resp, nil
}

// Reschedule replaces the due dates of a booking's schedule. Paid rows must
// keep their original dates; the calculator re-validates the deadline and
// spacing rules and turns the plan custom.
func (s *PaymentService) Reschedule(ctx context.Context, bookingID string, newDueDates []time.Time) ([]*domain.Installment, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	installments, err := s.installmentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(installments) == 0 {
		return nil, customError.WrapNoSchedule(bookingID)
	}

	// The calculator never inspects status, so the settled-row guard lives
	// here: a paid installment's date must come through unchanged.
	if len(newDueDates) == len(installments) {
		for i, in := range installments {
			if in.Status != domain.InstallmentStatusPaid {
				continue
			}
			if !schedule.Day(newDueDates[i]).Equal(schedule.Day(in.DueDate)) {
				paidAt := in.DueDate
				if in.PaidAt != nil {
					paidAt = *in.PaidAt
				}
				return nil, customError.WrapInstallmentAlreadyPaid(in.SequenceNumber, paidAt)
			}
		}
	}

	updated, err := schedule.RecalculateSchedule(installments, newDueDates, booking.EventDate, s.planConfig())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, in := range updated {
		in.UpdatedAt = now
	}

	if err := s.installmentRepo.ReplaceSchedule(ctx, bookingID, updated); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithField("booking_id", bookingID).Info("payment schedule rescheduled")

	return updated, nil
}

// RecordPayment marks an installment as settled. The money movement happened
// elsewhere; this records the outcome.
func (s *PaymentService) RecordPayment(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error) {
	installment, err := s.getInstallment(ctx, bookingID, sequenceNumber)
	if err != nil {
		return nil, err
	}

	switch installment.Status {
	case domain.InstallmentStatusPaid:
		paidAt := installment.DueDate
		if installment.PaidAt != nil {
			paidAt = *installment.PaidAt
		}
		return nil, customError.WrapInstallmentAlreadyPaid(sequenceNumber, paidAt)
	case domain.InstallmentStatusCancelled:
		return nil, customError.NewBusinessError(
			customError.ErrCodeInstallmentCancelled,
			fmt.Sprintf("Installment %d of booking %s is cancelled", sequenceNumber, bookingID),
			customError.ErrInstallmentCancelled,
		)
	}

	now := time.Now()
	if err := s.installmentRepo.UpdateStatus(ctx, bookingID, sequenceNumber, domain.InstallmentStatusPaid, &now); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	installment.Status = domain.InstallmentStatusPaid
	installment.PaidAt = &now

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"sequence":   sequenceNumber,
		"amount":     installment.Amount.String(),
	}).Info("installment payment recorded")

	return installment, nil
}

// CancelInstallment cancels a not-yet-paid installment.
func (s *PaymentService) CancelInstallment(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error) {
	installment, err := s.getInstallment(ctx, bookingID, sequenceNumber)
	if err != nil {
		return nil, err
	}

	if installment.Status == domain.InstallmentStatusPaid {
		paidAt := installment.DueDate
		if installment.PaidAt != nil {
			paidAt = *installment.PaidAt
		}
		return nil, customError.WrapInstallmentAlreadyPaid(sequenceNumber, paidAt)
	}

	if err := s.installmentRepo.UpdateStatus(ctx, bookingID, sequenceNumber, domain.InstallmentStatusCancelled, nil); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	installment.Status = domain.InstallmentStatusCancelled

	return installment, nil
}

func (s *PaymentService) getBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapBookingNotFound(bookingID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return booking, nil
}

func (s *PaymentService) getInstallment(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error) {
	installments, err := s.installmentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	for _, in := range installments {
		if in.SequenceNumber == sequenceNumber {
			return in, nil
		}
	}

	return nil, customError.WrapInstallmentNotFound(bookingID, sequenceNumber)
}

func (s *PaymentService) planConfig() schedule.Config {
	if s.config == nil {
		return schedule.DefaultConfig()
	}
	return s.config.PlanDefaults()
}
