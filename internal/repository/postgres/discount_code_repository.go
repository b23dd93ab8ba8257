package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

type discountCodeRepository struct {
	pool *pgxpool.Pool
}

func NewDiscountCodeRepository(pool *pgxpool.Pool) repository.DiscountCodeRepository {
	return &discountCodeRepository{pool: pool}
}

var _ repository.DiscountCodeRepository = (*discountCodeRepository)(nil)

const discountCodeColumns = `
	id,
	code,
	consultation_id,
	amount_cents,
	currency,
	activation_date,
	expires_at,
	used,
	created_at
`

func (r *discountCodeRepository) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	query := `SELECT ` + discountCodeColumns + ` FROM discount_codes WHERE code = $1`
	discountCode, err := scanDiscountCode(r.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return discountCode, nil
}

func (r *discountCodeRepository) FindByConsultationID(
	ctx context.Context,
	consultationID uuid.UUID,
) (*model.DiscountCode, error) {
	query := `SELECT ` + discountCodeColumns + ` FROM discount_codes WHERE consultation_id = $1`
	discountCode, err := scanDiscountCode(r.pool.QueryRow(ctx, query, consultationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return discountCode, nil
}

func (r *discountCodeRepository) Create(ctx context.Context, discountCode *model.DiscountCode) error {
	if discountCode.ID == uuid.Nil {
		discountCode.ID = uuid.New()
	}
	if discountCode.CreatedAt.IsZero() {
		discountCode.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO discount_codes (
			id, code, consultation_id, amount_cents, currency,
			activation_date, expires_at, used, created_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		discountCode.ID,
		discountCode.Code,
		discountCode.ConsultationID,
		discountCode.AmountCents,
		discountCode.Currency,
		discountCode.ActivationDate,
		discountCode.ExpiresAt,
		discountCode.Used,
		discountCode.CreatedAt,
	)
	return mapInsertError(err)
}

func (r *discountCodeRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM discount_codes WHERE code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *discountCodeRepository) List(
	ctx context.Context,
	filter repository.DiscountCodeListFilter,
) ([]*model.DiscountCode, error) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if filter.Used != nil {
		args = append(args, *filter.Used)
		conditions = append(conditions, fmt.Sprintf("used = $%d", len(args)))
	}
	if filter.ActiveAt != nil {
		args = append(args, *filter.ActiveAt)
		conditions = append(conditions, fmt.Sprintf("activation_date <= $%d AND expires_at > $%d", len(args), len(args)))
	}

	query := `SELECT ` + discountCodeColumns + ` FROM discount_codes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := normalizePagination(filter.Pagination)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.DiscountCode, 0, limit)
	for rows.Next() {
		item, scanErr := scanDiscountCode(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *discountCodeRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*)
		   FROM discount_codes
		  WHERE used = FALSE
		    AND activation_date <= $1
		    AND expires_at > $1`,
		now,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func scanDiscountCode(src scanTarget) (*model.DiscountCode, error) {
	discountCode := &model.DiscountCode{}
	err := src.Scan(
		&discountCode.ID,
		&discountCode.Code,
		&discountCode.ConsultationID,
		&discountCode.AmountCents,
		&discountCode.Currency,
		&discountCode.ActivationDate,
		&discountCode.ExpiresAt,
		&discountCode.Used,
		&discountCode.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return discountCode, nil
}
