package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodeLength is the number of decimal digits in a confirmation code.
const CodeLength = 6

// ConfirmationRecord binds a one-time numeric code to a member. Codes are
// fixed-width 6-digit strings ("000000"-"999999", leading zeros preserved).
// More than one live record may exist for a member; the service treats a
// match against any non-expired record as valid.
type ConfirmationRecord struct {
	ID        uuid.UUID `json:"id"`
	MemberID  uuid.UUID `json:"member_id"`
	Code      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewConfirmationRecord issues a record expiring ttl after now.
func NewConfirmationRecord(memberID uuid.UUID, code string, now time.Time, ttl time.Duration) ConfirmationRecord {
	return ConfirmationRecord{
		ID:        uuid.New(),
		MemberID:  memberID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the record has expired. The boundary is
// inclusive: a record is expired at exactly ExpiresAt.
func (c ConfirmationRecord) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsValidCode compares the submitted code against the stored one. An empty
// submission is a caller-contract violation, not a mismatch.
func (c ConfirmationRecord) IsValidCode(submitted string) (bool, error) {
	if submitted == "" {
		return false, ErrCodeRequired
	}
	return submitted == c.Code, nil
}

// IsValid reports whether the submitted code matches and the record is still
// live. An expired record with a matching code is invalid.
func (c ConfirmationRecord) IsValid(submitted string, now time.Time) (bool, error) {
	match, err := c.IsValidCode(submitted)
	if err != nil {
		return false, err
	}
	return match && !c.IsExpired(now), nil
}

// MinutesUntilExpiration returns the whole minutes left before the record
// expires, never negative.
func (c ConfirmationRecord) MinutesUntilExpiration(now time.Time) int {
	if c.IsExpired(now) {
		return 0
	}
	return int(c.ExpiresAt.Sub(now).Minutes())
}
