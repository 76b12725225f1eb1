package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/caravanhq/payments-engine/internal/domain"
	"github.com/caravanhq/payments-engine/internal/schedule"
	customError "github.com/caravanhq/payments-engine/pkg/errors"
	"github.com/caravanhq/payments-engine/pkg/response"
)

// BookingService is the surface the HTTP layer needs from the service.
type BookingService interface {
	CreateBooking(ctx context.Context, request *domain.CreateBookingRequest) (*domain.Booking, error)
	GetPlanOptions(ctx context.Context, bookingID string) ([]schedule.Option, error)
	SelectPlan(ctx context.Context, bookingID string, installmentCount int) (*domain.Booking, []*domain.Installment, error)
	GetSchedule(ctx context.Context, bookingID string) (*domain.ScheduleResponse, error)
	Reschedule(ctx context.Context, bookingID string, newDueDates []time.Time) ([]*domain.Installment, error)
	RecordPayment(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error)
	CancelInstallment(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error)
}

type BookingHandler struct {
	service   BookingService
	validator *validator.Validate
}

func NewBookingHandler(service BookingService) *BookingHandler {
	v := validator.New()

	// Expose decimal.Decimal to the validator as float64 so numeric rules
	// (gt, gte) apply to money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &BookingHandler{
		service:   service,
		validator: v,
	}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.CreateBookingResponse{Booking: booking})
}

func (h *BookingHandler) GetPlanOptions(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	options, err := h.service.GetPlanOptions(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"booking_id": bookingID,
		"options":    options,
	})
}

func (h *BookingHandler) SelectPlan(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var request domain.SelectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	booking, installments, err := h.service.SelectPlan(r.Context(), bookingID, request.InstallmentCount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.SelectPlanResponse{Booking: booking, Schedule: installments})
}

func (h *BookingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	resp, err := h.service.GetSchedule(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var request domain.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	dueDates := make([]time.Time, 0, len(request.DueDates))
	for _, raw := range request.DueDates {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			response.BadRequest(w, "Invalid due date "+raw, err)
			return
		}
		dueDates = append(dueDates, d)
	}

	installments, err := h.service.Reschedule(r.Context(), bookingID, dueDates)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"booking_id": bookingID,
		"schedule":   installments,
	})
}

func (h *BookingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	h.updateInstallment(w, r, h.service.RecordPayment)
}

func (h *BookingHandler) CancelInstallment(w http.ResponseWriter, r *http.Request) {
	h.updateInstallment(w, r, h.service.CancelInstallment)
}

func (h *BookingHandler) updateInstallment(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, bookingID string, sequenceNumber int) (*domain.Installment, error),
) {
	vars := mux.Vars(r)
	bookingID := vars["bookingId"]

	sequence, err := strconv.Atoi(vars["sequence"])
	if err != nil || sequence < 1 {
		response.BadRequest(w, "Invalid installment sequence number", err)
		return
	}

	installment, err := op(r.Context(), bookingID, sequence)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, installment)
}

// writeError maps service errors onto HTTP statuses: calculator validation
// kinds become 422, not-found 404, conflicting state 409, the rest 500.
func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	if kind := schedule.KindOf(err); kind != "" {
		response.UnprocessableEntity(w, string(kind), err.Error())
		return
	}

	var bizErr *customError.BusinessError
	if errors.As(err, &bizErr) {
		switch bizErr.Code {
		case customError.ErrCodeBookingNotFound,
			customError.ErrCodeInstallmentNotFound,
			customError.ErrCodeNoSchedule:
			response.NotFound(w, bizErr.Code, bizErr.Message)
		case customError.ErrCodeBookingAlreadyExists,
			customError.ErrCodePlanAlreadySelected,
			customError.ErrCodeInstallmentAlreadyPaid,
			customError.ErrCodeInstallmentCancelled:
			response.Conflict(w, bizErr.Code, bizErr.Message)
		case customError.ErrCodePlanOptionNotAvailable:
			response.UnprocessableEntity(w, bizErr.Code, bizErr.Message)
		default:
			response.InternalServerError(w, bizErr.Message, bizErr.Err)
		}
		return
	}

	response.InternalServerError(w, "Unexpected error", err)
}
