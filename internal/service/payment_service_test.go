package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caravanhq/payments-engine/internal/config"
	"github.com/caravanhq/payments-engine/internal/domain"
	"github.com/caravanhq/payments-engine/internal/schedule"
	customError "github.com/caravanhq/payments-engine/pkg/errors"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetByBookingID(ctx context.Context, bookingID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ReplaceSchedule(ctx context.Context, bookingID string, installments []*domain.Installment) error {
	args := m.Called(ctx, bookingID, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) UpdateStatus(ctx context.Context, bookingID string, sequenceNumber int, status string, paidAt *time.Time) error {
	args := m.Called(ctx, bookingID, sequenceNumber, status, paidAt)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Installment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func newTestService(bookingRepo *MockBookingRepository, installmentRepo *MockInstallmentRepository) *PaymentService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		Plans: config.PlanConfig{
			LumpSumDiscountPercent: "0",
			DeadlineLeadDays:       5,
			MinInstallmentGapDays:  15,
			MaxInstallments:        6,
		},
		Redis: config.RedisConfig{CacheTTL: "1h"},
	}

	// Unreachable address: cache reads and writes fail soft and the service
	// falls back to computing options directly.
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	return NewPaymentService(bookingRepo, installmentRepo, redisClient, cfg, logger)
}

func futureBooking(bookingID string, daysOut int, amount int64) *domain.Booking {
	return &domain.Booking{
		BookingID:   bookingID,
		EventDate:   schedule.Day(time.Now()).AddDate(0, 0, daysOut),
		TotalAmount: decimal.NewFromInt(amount),
		Status:      domain.BookingStatusActive,
	}
}

func TestCreateBooking(t *testing.T) {
	futureDate := time.Now().AddDate(0, 0, 90).Format(time.DateOnly)

	tests := []struct {
		name          string
		request       *domain.CreateBookingRequest
		setupMocks    func(*MockBookingRepository)
		expectedError string
	}{
		{
			name: "success",
			request: &domain.CreateBookingRequest{
				BookingID:     "BK-1",
				PassengerName: "Ana Souza",
				TripName:      "Final de Copa",
				EventDate:     futureDate,
				TotalAmount:   decimal.NewFromInt(800),
			},
			setupMocks: func(repo *MockBookingRepository) {
				repo.On("GetByBookingID", mock.Anything, "BK-1").Return(nil, sql.ErrNoRows)
				repo.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
					return b.BookingID == "BK-1" && b.Status == domain.BookingStatusActive
				})).Return(nil)
			},
		},
		{
			name: "duplicate booking rejected",
			request: &domain.CreateBookingRequest{
				BookingID:   "BK-2",
				EventDate:   futureDate,
				TotalAmount: decimal.NewFromInt(800),
			},
			setupMocks: func(repo *MockBookingRepository) {
				repo.On("GetByBookingID", mock.Anything, "BK-2").Return(&domain.Booking{BookingID: "BK-2"}, nil)
			},
			expectedError: customError.ErrCodeBookingAlreadyExists,
		},
		{
			name: "past event date rejected",
			request: &domain.CreateBookingRequest{
				BookingID:   "BK-3",
				EventDate:   "2020-01-01",
				TotalAmount: decimal.NewFromInt(800),
			},
			setupMocks: func(repo *MockBookingRepository) {
				repo.On("GetByBookingID", mock.Anything, "BK-3").Return(nil, sql.ErrNoRows)
			},
			expectedError: string(schedule.KindInvalidDate),
		},
		{
			name: "non-positive amount rejected",
			request: &domain.CreateBookingRequest{
				BookingID:   "BK-4",
				EventDate:   futureDate,
				TotalAmount: decimal.Zero,
			},
			setupMocks: func(repo *MockBookingRepository) {
				repo.On("GetByBookingID", mock.Anything, "BK-4").Return(nil, sql.ErrNoRows)
			},
			expectedError: string(schedule.KindInvalidAmount),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := &MockBookingRepository{}
			installmentRepo := &MockInstallmentRepository{}
			tt.setupMocks(bookingRepo)

			svc := newTestService(bookingRepo, installmentRepo)
			booking, err := svc.CreateBooking(context.Background(), tt.request)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, booking)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.request.BookingID, booking.BookingID)
			}

			bookingRepo.AssertExpectations(t)
		})
	}
}

func TestGetPlanOptions_CacheUnavailableFallsThrough(t *testing.T) {
	bookingRepo := &MockBookingRepository{}
	installmentRepo := &MockInstallmentRepository{}

	bookingRepo.On("GetByBookingID", mock.Anything, "BK-10").Return(futureBooking("BK-10", 90, 800), nil)

	svc := newTestService(bookingRepo, installmentRepo)
	options, err := svc.GetPlanOptions(context.Background(), "BK-10")

	require.NoError(t, err)
	require.NotEmpty(t, options)
	assert.Equal(t, domain.PlanKindLumpSum, options[0].Kind)
	bookingRepo.AssertExpectations(t)
}

func TestSelectPlan(t *testing.T) {
	t.Run("persists the chosen installment plan", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		bookingRepo.On("GetByBookingID", mock.Anything, "BK-20").Return(futureBooking("BK-20", 90, 100), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-20").Return([]*domain.Installment{}, nil)
		installmentRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(rows []*domain.Installment) bool {
			return len(rows) == 3 && rows[2].Amount.Equal(decimal.NewFromFloat(33.34))
		})).Return(nil)

		svc := newTestService(bookingRepo, installmentRepo)
		booking, rows, err := svc.SelectPlan(context.Background(), "BK-20", 3)

		require.NoError(t, err)
		assert.Equal(t, "BK-20", booking.BookingID)
		require.Len(t, rows, 3)
		assert.Equal(t, "Installment 1 of 3", rows[0].Description)
		assert.Equal(t, domain.InstallmentStatusPending, rows[0].Status)
		assert.NotEqual(t, rows[0].ID, rows[1].ID)

		installmentRepo.AssertExpectations(t)
	})

	t.Run("rejects a second plan", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		bookingRepo.On("GetByBookingID", mock.Anything, "BK-21").Return(futureBooking("BK-21", 90, 100), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-21").Return([]*domain.Installment{{BookingID: "BK-21"}}, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		_, _, err := svc.SelectPlan(context.Background(), "BK-21", 2)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodePlanAlreadySelected)
	})

	t.Run("rejects a plan the calendar cannot fit", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		// 10 days out: deadline leaves too little runway for any installments.
		bookingRepo.On("GetByBookingID", mock.Anything, "BK-22").Return(futureBooking("BK-22", 10, 100), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-22").Return([]*domain.Installment{}, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		_, _, err := svc.SelectPlan(context.Background(), "BK-22", 4)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodePlanOptionNotAvailable)
	})
}

func TestGetSchedule_DerivesOverdue(t *testing.T) {
	bookingRepo := &MockBookingRepository{}
	installmentRepo := &MockInstallmentRepository{}

	yesterday := time.Now().AddDate(0, 0, -1)
	nextMonth := time.Now().AddDate(0, 1, 0)

	bookingRepo.On("GetByBookingID", mock.Anything, "BK-30").Return(futureBooking("BK-30", 60, 200), nil)
	installmentRepo.On("GetByBookingID", mock.Anything, "BK-30").Return([]*domain.Installment{
		{BookingID: "BK-30", SequenceNumber: 1, DueDate: yesterday, Status: domain.InstallmentStatusPending},
		{BookingID: "BK-30", SequenceNumber: 2, DueDate: nextMonth, Status: domain.InstallmentStatusPending},
	}, nil)

	svc := newTestService(bookingRepo, installmentRepo)
	resp, err := svc.GetSchedule(context.Background(), "BK-30")

	require.NoError(t, err)
	require.Len(t, resp.Schedule, 2)
	assert.Equal(t, domain.InstallmentStatusOverdue, resp.Schedule[0].Status)
	assert.True(t, resp.Schedule[0].IsOverdue)
	assert.Equal(t, domain.InstallmentStatusPending, resp.Schedule[1].Status)
	assert.False(t, resp.Schedule[1].IsOverdue)
}

func TestReschedule(t *testing.T) {
	today := schedule.Day(time.Now())

	existing := func() []*domain.Installment {
		return []*domain.Installment{
			{BookingID: "BK-40", SequenceNumber: 1, TotalInPlan: 2, DueDate: today, Status: domain.InstallmentStatusPending, PlanKind: domain.PlanKindInstallments},
			{BookingID: "BK-40", SequenceNumber: 2, TotalInPlan: 2, DueDate: today.AddDate(0, 0, 15), Status: domain.InstallmentStatusPending, PlanKind: domain.PlanKindInstallments},
		}
	}

	t.Run("replaces dates and turns the plan custom", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		bookingRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(futureBooking("BK-40", 90, 200), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(existing(), nil)
		installmentRepo.On("ReplaceSchedule", mock.Anything, "BK-40", mock.MatchedBy(func(rows []*domain.Installment) bool {
			return len(rows) == 2 && rows[0].PlanKind == domain.PlanKindCustom
		})).Return(nil)

		svc := newTestService(bookingRepo, installmentRepo)
		newDates := []time.Time{today.AddDate(0, 0, 5), today.AddDate(0, 0, 40)}

		rows, err := svc.Reschedule(context.Background(), "BK-40", newDates)

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.PlanKindCustom, rows[1].PlanKind)
		installmentRepo.AssertExpectations(t)
	})

	t.Run("paid installment keeps its date", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		paidAt := today.AddDate(0, 0, -2)
		rows := existing()
		rows[0].Status = domain.InstallmentStatusPaid
		rows[0].PaidAt = &paidAt

		bookingRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(futureBooking("BK-40", 90, 200), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(rows, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		newDates := []time.Time{today.AddDate(0, 0, 5), today.AddDate(0, 0, 40)}

		_, err := svc.Reschedule(context.Background(), "BK-40", newDates)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodeInstallmentAlreadyPaid)
	})

	t.Run("gap violation surfaces the calculator error", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		bookingRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(futureBooking("BK-40", 90, 200), nil)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-40").Return(existing(), nil)

		svc := newTestService(bookingRepo, installmentRepo)
		newDates := []time.Time{today, today.AddDate(0, 0, 4)}

		_, err := svc.Reschedule(context.Background(), "BK-40", newDates)

		require.Error(t, err)
		assert.Equal(t, schedule.KindMinimumGapViolation, schedule.KindOf(err))
	})
}

func TestRecordPayment(t *testing.T) {
	t.Run("pending installment becomes paid", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		installmentRepo.On("GetByBookingID", mock.Anything, "BK-50").Return([]*domain.Installment{
			{BookingID: "BK-50", SequenceNumber: 1, Status: domain.InstallmentStatusPending, Amount: decimal.NewFromInt(100)},
		}, nil)
		installmentRepo.On("UpdateStatus", mock.Anything, "BK-50", 1, domain.InstallmentStatusPaid, mock.AnythingOfType("*time.Time")).Return(nil)

		svc := newTestService(bookingRepo, installmentRepo)
		installment, err := svc.RecordPayment(context.Background(), "BK-50", 1)

		require.NoError(t, err)
		assert.Equal(t, domain.InstallmentStatusPaid, installment.Status)
		assert.NotNil(t, installment.PaidAt)
		installmentRepo.AssertExpectations(t)
	})

	t.Run("settled installment is immutable", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		paidAt := time.Now().AddDate(0, 0, -3)
		installmentRepo.On("GetByBookingID", mock.Anything, "BK-51").Return([]*domain.Installment{
			{BookingID: "BK-51", SequenceNumber: 1, Status: domain.InstallmentStatusPaid, PaidAt: &paidAt},
		}, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		_, err := svc.RecordPayment(context.Background(), "BK-51", 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodeInstallmentAlreadyPaid)
	})

	t.Run("unknown sequence", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		installmentRepo.On("GetByBookingID", mock.Anything, "BK-52").Return([]*domain.Installment{}, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		_, err := svc.RecordPayment(context.Background(), "BK-52", 9)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodeInstallmentNotFound)
	})
}

func TestCancelInstallment(t *testing.T) {
	t.Run("pending installment cancelled", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		installmentRepo.On("GetByBookingID", mock.Anything, "BK-60").Return([]*domain.Installment{
			{BookingID: "BK-60", SequenceNumber: 1, Status: domain.InstallmentStatusPending},
		}, nil)
		installmentRepo.On("UpdateStatus", mock.Anything, "BK-60", 1, domain.InstallmentStatusCancelled, (*time.Time)(nil)).Return(nil)

		svc := newTestService(bookingRepo, installmentRepo)
		installment, err := svc.CancelInstallment(context.Background(), "BK-60", 1)

		require.NoError(t, err)
		assert.Equal(t, domain.InstallmentStatusCancelled, installment.Status)
		installmentRepo.AssertExpectations(t)
	})

	t.Run("paid installment cannot be cancelled", func(t *testing.T) {
		bookingRepo := &MockBookingRepository{}
		installmentRepo := &MockInstallmentRepository{}

		installmentRepo.On("GetByBookingID", mock.Anything, "BK-61").Return([]*domain.Installment{
			{BookingID: "BK-61", SequenceNumber: 1, Status: domain.InstallmentStatusPaid},
		}, nil)

		svc := newTestService(bookingRepo, installmentRepo)
		_, err := svc.CancelInstallment(context.Background(), "BK-61", 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), customError.ErrCodeInstallmentAlreadyPaid)
	})
}
