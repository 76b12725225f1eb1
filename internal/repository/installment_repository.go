package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/caravanhq/payments-engine/internal/domain"
)

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

const insertInstallmentQuery = `
	INSERT INTO installments (id, booking_id, sequence_number, total_in_plan, amount, due_date, status, plan_kind, discount_applied, original_amount, description, paid_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertInstallments(ctx, tx, installments); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *installmentRepository) GetByBookingID(ctx context.Context, bookingID string) ([]*domain.Installment, error) {
	query := `
		SELECT id, booking_id, sequence_number, total_in_plan, amount, due_date, status, plan_kind, discount_applied, original_amount, description, paid_at, created_at, updated_at
		FROM installments
		WHERE booking_id = $1
		ORDER BY sequence_number
	`

	var installments []*domain.Installment
	err := r.db.SelectContext(ctx, &installments, query, bookingID)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) ReplaceSchedule(ctx context.Context, bookingID string, installments []*domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE booking_id = $1`, bookingID); err != nil {
		return err
	}

	if err := insertInstallments(ctx, tx, installments); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *installmentRepository) UpdateStatus(ctx context.Context, bookingID string, sequenceNumber int, status string, paidAt *time.Time) error {
	query := `
		UPDATE installments
		SET status = $3, paid_at = $4, updated_at = $5
		WHERE booking_id = $1 AND sequence_number = $2
	`

	_, err := r.db.ExecContext(ctx, query, bookingID, sequenceNumber, status, paidAt, time.Now())
	return err
}

func (r *installmentRepository) GetDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Installment, error) {
	query := `
		SELECT id, booking_id, sequence_number, total_in_plan, amount, due_date, status, plan_kind, discount_applied, original_amount, description, paid_at, created_at, updated_at
		FROM installments
		WHERE status = 'pending' AND due_date >= $1 AND due_date < $2
		ORDER BY due_date, booking_id, sequence_number
	`

	var installments []*domain.Installment
	err := r.db.SelectContext(ctx, &installments, query, from, to)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func insertInstallments(ctx context.Context, tx *sqlx.Tx, installments []*domain.Installment) error {
	for _, in := range installments {
		_, err := tx.ExecContext(ctx, insertInstallmentQuery,
			in.ID,
			in.BookingID,
			in.SequenceNumber,
			in.TotalInPlan,
			in.Amount,
			in.DueDate,
			in.Status,
			in.PlanKind,
			in.DiscountApplied,
			in.OriginalAmount,
			in.Description,
			in.PaidAt,
			in.CreatedAt,
			in.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
