package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clublane/membership/internal/domain"
)

type MemberRepository interface {
	Create(ctx context.Context, m *domain.Member) (*domain.Member, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	FindByEmail(ctx context.Context, email string) (*domain.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, m *domain.Member) (*domain.Member, error)
	// Confirm flips the member to confirmed iff it is not confirmed yet.
	// Returns domain.ErrAlreadyConfirmed when the row was already flipped,
	// which makes concurrent confirmations resolve to exactly one winner.
	Confirm(ctx context.Context, id uuid.UUID, at time.Time) error
	// SetPassword stores the hash iff no password has been set before.
	SetPassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberCols = `id, role, email, first_name, last_name, address, is_confirmed, confirmed_at, password_set, password_hash, created_at, updated_at`

// memberRow mirrors the members table. Keeping the mapping explicit lets the
// domain value survive a round trip through persistence unchanged.
type memberRow struct {
	ID           uuid.UUID
	Role         string
	Email        string
	FirstName    string
	LastName     string
	Address      string
	Confirmed    bool
	ConfirmedAt  *time.Time
	PasswordSet  bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func newMemberRow(m *domain.Member) memberRow {
	return memberRow{
		ID:           m.ID,
		Role:         m.Role,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Address:      m.Address,
		Confirmed:    m.Confirmed,
		ConfirmedAt:  m.ConfirmedAt,
		PasswordSet:  m.PasswordSet,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r memberRow) toDomain() *domain.Member {
	return &domain.Member{
		ID:           r.ID,
		Role:         r.Role,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Address:      r.Address,
		Confirmed:    r.Confirmed,
		ConfirmedAt:  r.ConfirmedAt,
		PasswordSet:  r.PasswordSet,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m memberRow
	err := row.Scan(
		&m.ID, &m.Role, &m.Email, &m.FirstName, &m.LastName, &m.Address,
		&m.Confirmed, &m.ConfirmedAt, &m.PasswordSet, &m.PasswordHash,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *memberRepository) Create(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	const q = `
		INSERT INTO members (id, role, email, first_name, last_name, address, is_confirmed, password_set)
		VALUES ($1, $2, $3, $4, $5, $6, false, false)
		RETURNING ` + memberCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanMember(r.pool.QueryRow(ctx, q,
		m.ID, m.Role, m.Email, m.FirstName, m.LastName, m.Address,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *memberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMember(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *memberRepository) FindByEmail(ctx context.Context, email string) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMember(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM members WHERE email = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, email).Scan(&exists)
	return exists, err
}

func (r *memberRepository) Update(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	const q = `
		UPDATE members
		SET
			role = $2,
			first_name = $3,
			last_name = $4,
			address = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + memberCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanMember(r.pool.QueryRow(ctx, q,
		m.ID, m.Role, m.FirstName, m.LastName, m.Address,
	))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrMemberNotFound
	}
	return updated, err
}

func (r *memberRepository) Confirm(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `
		UPDATE members
		SET is_confirmed = true, confirmed_at = $2, updated_at = $2
		WHERE id = $1 AND is_confirmed = false`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAlreadyConfirmed
	}

	return nil
}

func (r *memberRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	const q = `
		UPDATE members
		SET password_set = true, password_hash = $2, updated_at = $3
		WHERE id = $1 AND password_set = false`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, hash, at)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPasswordAlreadySet
	}

	return nil
}

func (r *memberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM members WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}

	return nil
}

func (r *memberRepository) List(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + memberCols + `
		FROM members
		WHERE ($3::boolean IS NULL OR is_confirmed = $3)
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset, confirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m memberRow
		if err := rows.Scan(
			&m.ID, &m.Role, &m.Email, &m.FirstName, &m.LastName, &m.Address,
			&m.Confirmed, &m.ConfirmedAt, &m.PasswordSet, &m.PasswordHash,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, *m.toDomain())
	}

	return members, rows.Err()
}
