package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clublane/membership/internal/domain"
)

type ConfirmationRepository interface {
	Create(ctx context.Context, rec domain.ConfirmationRecord) error
	FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]domain.ConfirmationRecord, error)
	// FindByMemberIDAndCode returns the most recently issued record matching
	// the pair, or nil when none exists. Expiry is the caller's concern.
	FindByMemberIDAndCode(ctx context.Context, memberID uuid.UUID, code string) (*domain.ConfirmationRecord, error)
	FindByCode(ctx context.Context, code string) ([]domain.ConfirmationRecord, error)
	ExistsByMemberID(ctx context.Context, memberID uuid.UUID) (bool, error)
	FindExpired(ctx context.Context, now time.Time) ([]domain.ConfirmationRecord, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	// DeleteByMemberID removes every record for the member, consumed or not.
	DeleteByMemberID(ctx context.Context, memberID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type confirmationRepository struct {
	pool *pgxpool.Pool
}

func NewConfirmationRepository(pool *pgxpool.Pool) ConfirmationRepository {
	return &confirmationRepository{pool: pool}
}

const confirmationCols = `id, member_id, code, created_at, expires_at`

func (r *confirmationRepository) Create(ctx context.Context, rec domain.ConfirmationRecord) error {
	const q = `
		INSERT INTO confirmations (id, member_id, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, rec.ID, rec.MemberID, rec.Code, rec.CreatedAt, rec.ExpiresAt)
	return err
}

func (r *confirmationRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]domain.ConfirmationRecord, error) {
	const q = `
		SELECT ` + confirmationCols + `
		FROM confirmations
		WHERE member_id = $1
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConfirmations(rows)
}

func (r *confirmationRepository) FindByMemberIDAndCode(ctx context.Context, memberID uuid.UUID, code string) (*domain.ConfirmationRecord, error) {
	const q = `
		SELECT ` + confirmationCols + `
		FROM confirmations
		WHERE member_id = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec domain.ConfirmationRecord
	err := r.pool.QueryRow(ctx, q, memberID, code).Scan(
		&rec.ID, &rec.MemberID, &rec.Code, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *confirmationRepository) FindByCode(ctx context.Context, code string) ([]domain.ConfirmationRecord, error) {
	const q = `
		SELECT ` + confirmationCols + `
		FROM confirmations
		WHERE code = $1
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConfirmations(rows)
}

func (r *confirmationRepository) ExistsByMemberID(ctx context.Context, memberID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM confirmations WHERE member_id = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, memberID).Scan(&exists)
	return exists, err
}

func (r *confirmationRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.ConfirmationRecord, error) {
	const q = `
		SELECT ` + confirmationCols + `
		FROM confirmations
		WHERE expires_at <= $1
		ORDER BY expires_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConfirmations(rows)
}

func (r *confirmationRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM confirmations WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *confirmationRepository) DeleteByMemberID(ctx context.Context, memberID uuid.UUID) (int64, error) {
	const q = `DELETE FROM confirmations WHERE member_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, memberID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func (r *confirmationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM confirmations WHERE expires_at <= now()`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func scanConfirmations(rows pgx.Rows) ([]domain.ConfirmationRecord, error) {
	var records []domain.ConfirmationRecord
	for rows.Next() {
		var rec domain.ConfirmationRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.Code, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
