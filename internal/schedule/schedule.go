// Package schedule computes payment-plan options for a booking: one lump sum
// with an optional discount, or 2..N equal installments spaced a fixed number
// of days apart, all settled before a deadline derived from the trip date.
//
// Everything here is pure: callers pass the reference date ("today")
// explicitly, money is shopspring decimal, and dates are normalized to
// midnight UTC. Non-final installment amounts round half away from zero to
// cents; the final installment absorbs the remainder so the plan always sums
// exactly to the financed total.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caravanhq/payments-engine/internal/domain"
)

// Defaults applied by Config.normalized when a field is left unset.
const (
	DefaultDeadlineLeadDays      = 5
	DefaultMinInstallmentGapDays = 15
	DefaultMaxInstallments       = 6
)

// Config holds the plan-generation rules. Construct with DefaultConfig and
// override individual fields; the zero value also works and behaves like
// DefaultConfig.
type Config struct {
	// LumpSumDiscountPercent is subtracted from the total when paying in full.
	LumpSumDiscountPercent decimal.Decimal

	// DeadlineLeadDays is how many days before the event date the final
	// payment must be settled.
	DeadlineLeadDays int

	// MinInstallmentGapDays is the minimum spacing between consecutive dues.
	MinInstallmentGapDays int

	// MaxInstallments caps the largest generated plan.
	MaxInstallments int
}

// DefaultConfig returns the standard rules: no lump-sum discount, payments
// settled 5 days before the trip, installments 15 days apart, at most 6.
func DefaultConfig() Config {
	return Config{
		LumpSumDiscountPercent: decimal.Zero,
		DeadlineLeadDays:       DefaultDeadlineLeadDays,
		MinInstallmentGapDays:  DefaultMinInstallmentGapDays,
		MaxInstallments:        DefaultMaxInstallments,
	}
}

func (c Config) normalized() Config {
	if c.DeadlineLeadDays < 0 {
		c.DeadlineLeadDays = DefaultDeadlineLeadDays
	}
	if c.MinInstallmentGapDays < 1 {
		c.MinInstallmentGapDays = DefaultMinInstallmentGapDays
	}
	if c.MaxInstallments < 2 {
		c.MaxInstallments = DefaultMaxInstallments
	}
	if c.LumpSumDiscountPercent.IsNegative() {
		c.LumpSumDiscountPercent = decimal.Zero
	}
	return c
}

// Option is an ephemeral plan candidate. InstallmentCount 1 always means lump
// sum; generated installment plans start at 2.
type Option struct {
	Kind              string          `json:"kind"`
	InstallmentCount  int             `json:"installment_count"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalOriginal     decimal.Decimal `json:"total_original"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	DueDates          []time.Time     `json:"due_dates"`
	Valid             bool            `json:"is_valid"`
	Notes             string          `json:"notes,omitempty"`
}

// Day truncates t to midnight UTC. All schedule arithmetic works on whole
// calendar days.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// ComputeOptions returns every valid plan for paying total before eventDate,
// as of today. The lump-sum option is always first; installment options
// follow in ascending count. The event date must be strictly after today and
// the total strictly positive.
func ComputeOptions(today, eventDate time.Time, total decimal.Decimal, cfg Config) ([]Option, error) {
	cfg = cfg.normalized()
	today = Day(today)
	event := Day(eventDate)

	if !event.After(today) {
		return nil, newError(KindInvalidDate, "event date %s is not in the future", event.Format(time.DateOnly))
	}
	if !total.IsPositive() {
		return nil, newError(KindInvalidAmount, "total amount %s must be positive", total.String())
	}

	deadline := event.AddDate(0, 0, -cfg.DeadlineLeadDays)
	availableDays := daysBetween(today, deadline)

	options := []Option{lumpSumOption(today, total, cfg)}

	if availableDays < cfg.MinInstallmentGapDays {
		return options, nil
	}

	maxCount := availableDays/cfg.MinInstallmentGapDays + 1
	if maxCount > cfg.MaxInstallments {
		maxCount = cfg.MaxInstallments
	}

	for n := 2; n <= maxCount; n++ {
		opt := installmentOption(today, deadline, total, n, cfg)
		if !opt.Valid {
			continue
		}
		options = append(options, opt)
	}

	return options, nil
}

func lumpSumOption(today time.Time, total decimal.Decimal, cfg Config) Option {
	discount := total.Mul(cfg.LumpSumDiscountPercent).Div(decimal.NewFromInt(100)).Round(2)

	return Option{
		Kind:              domain.PlanKindLumpSum,
		InstallmentCount:  1,
		InstallmentAmount: total.Sub(discount),
		TotalOriginal:     total,
		DiscountAmount:    discount,
		DueDates:          []time.Time{today},
		Valid:             true,
	}
}

func installmentOption(today, deadline time.Time, total decimal.Decimal, count int, cfg Config) Option {
	dueDates := make([]time.Time, count)
	for i := 0; i < count; i++ {
		dueDates[i] = today.AddDate(0, 0, i*cfg.MinInstallmentGapDays)
	}

	opt := Option{
		Kind:              domain.PlanKindInstallments,
		InstallmentCount:  count,
		InstallmentAmount: total.Div(decimal.NewFromInt(int64(count))).Round(2),
		TotalOriginal:     total,
		DiscountAmount:    decimal.Zero,
		DueDates:          dueDates,
		Valid:             true,
	}

	if last := dueDates[count-1]; last.After(deadline) {
		opt.Valid = false
		opt.Notes = fmt.Sprintf("final installment on %s falls after the payment deadline %s",
			last.Format(time.DateOnly), deadline.Format(time.DateOnly))
	}

	return opt
}

// ValidateDueDate reports whether dueDate falls on or before the payment
// deadline derived from eventDate.
func ValidateDueDate(dueDate, eventDate time.Time, cfg Config) bool {
	cfg = cfg.normalized()
	deadline := Day(eventDate).AddDate(0, 0, -cfg.DeadlineLeadDays)
	return !Day(dueDate).After(deadline)
}

// BuildInstallments expands a valid Option into pending Installment records
// for the given booking. IDs and timestamps are left for the persistence
// layer to assign.
func BuildInstallments(opt Option, bookingID string) ([]*domain.Installment, error) {
	if !opt.Valid {
		return nil, newError(KindInvalidOption, "plan option with %d installment(s) is not valid: %s",
			opt.InstallmentCount, opt.Notes)
	}
	if opt.InstallmentCount < 1 || len(opt.DueDates) != opt.InstallmentCount {
		return nil, newError(KindInvalidOption, "plan option has %d due date(s) for %d installment(s)",
			len(opt.DueDates), opt.InstallmentCount)
	}

	count := opt.InstallmentCount
	installments := make([]*domain.Installment, 0, count)

	for i := 0; i < count; i++ {
		amount := opt.InstallmentAmount
		description := fmt.Sprintf("Installment %d of %d", i+1, count)
		discount := decimal.Zero

		if opt.Kind == domain.PlanKindLumpSum {
			description = "Payment in full"
			discount = opt.DiscountAmount
		} else if i == count-1 {
			// Last installment absorbs the rounding remainder so the plan
			// sums exactly to the financed total.
			amount = opt.TotalOriginal.Sub(opt.InstallmentAmount.Mul(decimal.NewFromInt(int64(count - 1))))
		}

		installments = append(installments, &domain.Installment{
			BookingID:       bookingID,
			SequenceNumber:  i + 1,
			TotalInPlan:     count,
			Amount:          amount,
			DueDate:         Day(opt.DueDates[i]),
			Status:          domain.InstallmentStatusPending,
			PlanKind:        opt.Kind,
			DiscountApplied: discount,
			OriginalAmount:  opt.TotalOriginal,
			Description:     description,
		})
	}

	return installments, nil
}

// RecalculateSchedule returns a copy of installments with due dates replaced
// per index and the plan kind forced to custom. Every replacement date must
// meet the deadline and consecutive dates must stay at least the minimum gap
// apart. Paid-row protection is the caller's job; this function does not
// inspect status.
func RecalculateSchedule(installments []*domain.Installment, newDueDates []time.Time, eventDate time.Time, cfg Config) ([]*domain.Installment, error) {
	cfg = cfg.normalized()

	if len(newDueDates) != len(installments) {
		return nil, newError(KindInvalidOption, "%d replacement date(s) for a schedule of %d installment(s)",
			len(newDueDates), len(installments))
	}

	deadline := Day(eventDate).AddDate(0, 0, -cfg.DeadlineLeadDays)

	for _, d := range newDueDates {
		if Day(d).After(deadline) {
			err := newError(KindDeadlineExceeded, "due date %s falls after the payment deadline %s",
				Day(d).Format(time.DateOnly), deadline.Format(time.DateOnly))
			err.Date = Day(d)
			return nil, err
		}
	}

	for i := 0; i+1 < len(newDueDates); i++ {
		prev, next := Day(newDueDates[i]), Day(newDueDates[i+1])
		if daysBetween(prev, next) < cfg.MinInstallmentGapDays {
			err := newError(KindMinimumGapViolation, "due dates %s and %s are closer than %d days",
				prev.Format(time.DateOnly), next.Format(time.DateOnly), cfg.MinInstallmentGapDays)
			err.Date = prev
			err.Next = next
			return nil, err
		}
	}

	result := make([]*domain.Installment, 0, len(installments))
	for i, in := range installments {
		updated := *in
		updated.DueDate = Day(newDueDates[i])
		updated.PlanKind = domain.PlanKindCustom
		result = append(result, &updated)
	}

	return result, nil
}
