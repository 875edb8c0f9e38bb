package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const proofColumns = `
	id, booking_id, user_id, amount, method, reference_number, status, admin_notes,
	uploaded_at, verified_at`

type PaymentProofRepository struct {
	*base.Repository
}

func NewPaymentProofRepository(db *base.Repository) *PaymentProofRepository {
	return &PaymentProofRepository{Repository: db}
}

// Create добавляет чек. Второй cash_on_arrival на бронирование отсекает уникальный индекс.
func (r *PaymentProofRepository) Create(ctx context.Context, proof *model.PaymentProof) error {
	query := `
		INSERT INTO payment_proofs (
			booking_id, user_id, amount, method, reference_number, status, admin_notes, uploaded_at, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.QueryRow(
		ctx, query,
		proof.BookingID,
		proof.UserID,
		proof.Amount,
		proof.Method,
		proof.ReferenceNumber,
		proof.Status,
		proof.AdminNotes,
		proof.UploadedAt,
		proof.VerifiedAt,
	).Scan(&proof.ID)

	if err != nil {
		return fmt.Errorf("create payment proof: %w", base.MapConflict(err, model.ErrBalanceAlreadyRecorded))
	}

	return nil
}

// GetByID получает чек по ID
func (r *PaymentProofRepository) GetByID(ctx context.Context, id int64) (*model.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE id = $1`

	proof, err := scanProof(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment proof by id: %w", err)
	}

	return proof, nil
}

// ListByBooking история чеков бронирования по времени отправки
func (r *PaymentProofRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*model.PaymentProof, error) {
	query := `SELECT ` + proofColumns + `
		FROM payment_proofs
		WHERE booking_id = $1
		ORDER BY uploaded_at, id
	`

	return r.list(ctx, "list payment proofs by booking", query, bookingID)
}

// ListPending чеки, ожидающие проверки, старые первыми
func (r *PaymentProofRepository) ListPending(ctx context.Context) ([]*model.PaymentProof, error) {
	query := `SELECT ` + proofColumns + `
		FROM payment_proofs
		WHERE status = $1
		ORDER BY uploaded_at, id
	`

	return r.list(ctx, "list pending payment proofs", query, model.ProofStatusPending)
}

// Update применяет патч. Возвращает nil, nil если чек не найден или уже обработан.
func (r *PaymentProofRepository) Update(ctx context.Context, id int64, patch model.ProofPatch) (*model.PaymentProof, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.AdminNotes != nil {
		set("admin_notes", *patch.AdminNotes)
	}
	if patch.VerifiedAt != nil {
		set("verified_at", *patch.VerifiedAt)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if patch.ExpectStatus != nil {
		args = append(args, *patch.ExpectStatus)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query := fmt.Sprintf(`UPDATE payment_proofs SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, proofColumns)

	proof, err := scanProof(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update payment proof: %w", err)
	}

	return proof, nil
}

func (r *PaymentProofRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.PaymentProof, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var proofs []*model.PaymentProof
	for rows.Next() {
		proof, err := scanProof(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment proof: %w", err)
		}
		proofs = append(proofs, proof)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return proofs, nil
}

func scanProof(row pgx.Row) (*model.PaymentProof, error) {
	var proof model.PaymentProof
	err := row.Scan(
		&proof.ID,
		&proof.BookingID,
		&proof.UserID,
		&proof.Amount,
		&proof.Method,
		&proof.ReferenceNumber,
		&proof.Status,
		&proof.AdminNotes,
		&proof.UploadedAt,
		&proof.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &proof, nil
}
