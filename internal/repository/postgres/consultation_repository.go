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

type consultationRepository struct {
	pool *pgxpool.Pool
}

func NewConsultationRepository(pool *pgxpool.Pool) repository.ConsultationRepository {
	return &consultationRepository{pool: pool}
}

var _ repository.ConsultationRepository = (*consultationRepository)(nil)

const consultationColumns = `
	id,
	customer_name,
	customer_email,
	customer_phone,
	hair_type,
	concerns,
	notes,
	status,
	consultation_date,
	stripe_session_id,
	amount_cents,
	currency,
	created_at,
	updated_at
`

func (r *consultationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`
	consultation, err := scanConsultation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

func (r *consultationRepository) FindLatestPendingByEmail(ctx context.Context, email string) (*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		  FROM consultations
		 WHERE customer_email = $1
		   AND status = 'paid'
		   AND consultation_date IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`

	consultation, err := scanConsultation(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

func (r *consultationRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		  FROM consultations
		 WHERE status = 'paid'
		   AND consultation_date IS NULL
		   AND created_at < $1
		 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectConsultations(rows)
}

func (r *consultationRepository) Create(ctx context.Context, consultation *model.Consultation) error {
	if consultation.ID == uuid.Nil {
		consultation.ID = uuid.New()
	}
	now := time.Now().UTC()
	if consultation.CreatedAt.IsZero() {
		consultation.CreatedAt = now
	}
	if consultation.UpdatedAt.IsZero() {
		consultation.UpdatedAt = consultation.CreatedAt
	}

	query := `
		INSERT INTO consultations (
			id, customer_name, customer_email, customer_phone, hair_type,
			concerns, notes, status, consultation_date, stripe_session_id,
			amount_cents, currency, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14
		)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		consultation.ID,
		consultation.CustomerName,
		consultation.CustomerEmail,
		consultation.CustomerPhone,
		consultation.HairType,
		consultation.Concerns,
		consultation.Notes,
		consultation.Status,
		consultation.ConsultationDate,
		consultation.StripeSessionID,
		consultation.AmountCents,
		consultation.Currency,
		consultation.CreatedAt,
		consultation.UpdatedAt,
	)
	return mapInsertError(err)
}

func (r *consultationRepository) ConfirmBooking(
	ctx context.Context,
	id uuid.UUID,
	consultationDate time.Time,
	noteLine string,
) error {
	// COALESCE keeps prior notes; the new line is always appended.
	query := `
		UPDATE consultations
		   SET consultation_date = $2,
		       status = 'completed',
		       notes = CASE
		           WHEN notes IS NULL OR notes = '' THEN $3
		           ELSE notes || E'\n' || $3
		       END,
		       updated_at = NOW()
		 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, consultationDate, noteLine)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *consultationRepository) AppendNote(ctx context.Context, id uuid.UUID, noteLine string) error {
	query := `
		UPDATE consultations
		   SET notes = CASE
		           WHEN notes IS NULL OR notes = '' THEN $2
		           ELSE notes || E'\n' || $2
		       END,
		       updated_at = NOW()
		 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, noteLine)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *consultationRepository) SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	query := `
		UPDATE consultations
		   SET stripe_session_id = $2,
		       updated_at = NOW()
		 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, sessionID)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *consultationRepository) List(
	ctx context.Context,
	filter repository.ConsultationListFilter,
) ([]*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations`
	conditions, args := buildConsultationConditions(filter)
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

	return collectConsultations(rows)
}

func (r *consultationRepository) Count(ctx context.Context, filter repository.ConsultationListFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM consultations`
	conditions, args := buildConsultationConditions(filter)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *consultationRepository) CountPending(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM consultations WHERE status = 'paid' AND consultation_date IS NULL`,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func buildConsultationConditions(filter repository.ConsultationListFilter) ([]string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Email != nil {
		args = append(args, *filter.Email)
		conditions = append(conditions, fmt.Sprintf("customer_email = $%d", len(args)))
	}

	return conditions, args
}

func collectConsultations(rows pgx.Rows) ([]*model.Consultation, error) {
	items := make([]*model.Consultation, 0, 16)
	for rows.Next() {
		item, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanConsultation(src scanTarget) (*model.Consultation, error) {
	consultation := &model.Consultation{}
	err := src.Scan(
		&consultation.ID,
		&consultation.CustomerName,
		&consultation.CustomerEmail,
		&consultation.CustomerPhone,
		&consultation.HairType,
		&consultation.Concerns,
		&consultation.Notes,
		&consultation.Status,
		&consultation.ConsultationDate,
		&consultation.StripeSessionID,
		&consultation.AmountCents,
		&consultation.Currency,
		&consultation.CreatedAt,
		&consultation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return consultation, nil
}
