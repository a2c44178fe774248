package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Valid member roles
const (
	RoleMember = "member"
	RoleBoard  = "board"
	RoleAdmin  = "admin"
)

var validRoles = map[string]bool{
	RoleMember: true,
	RoleBoard:  true,
	RoleAdmin:  true,
}

// Member is the account aggregate. Email is the identity key and never
// re-keys the entity; Confirmed and PasswordSet each flip false->true exactly
// once. Mutating operations return a new value instead of updating in place.
type Member struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Address      string     `json:"address,omitempty"`
	Role         string     `json:"role"`
	Confirmed    bool       `json:"confirmed"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	PasswordSet  bool       `json:"password_set"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Confirm transitions the member to confirmed. A second call always fails.
func (m Member) Confirm(now time.Time) (Member, error) {
	if m.Confirmed {
		return m, ErrAlreadyConfirmed
	}
	m.Confirmed = true
	m.ConfirmedAt = &now
	m.UpdatedAt = now
	return m, nil
}

// MarkPasswordAsSet records that the member completed password setup.
func (m Member) MarkPasswordAsSet(now time.Time) (Member, error) {
	if m.PasswordSet {
		return m, ErrPasswordAlreadySet
	}
	m.PasswordSet = true
	m.UpdatedAt = now
	return m, nil
}

// WithUpdatedFields applies a partial update. Nil fields keep their prior
// value; UpdatedAt is always refreshed; CreatedAt and ConfirmedAt are never
// altered. An explicit empty Address clears the stored address.
func (m Member) WithUpdatedFields(upd MemberUpdate, now time.Time) Member {
	if upd.FirstName != nil {
		m.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		m.LastName = *upd.LastName
	}
	if upd.Address != nil {
		m.Address = *upd.Address
	}
	if upd.Role != nil {
		m.Role = *upd.Role
	}
	m.UpdatedAt = now
	return m
}

// MemberInfo is the public projection of a Member (no credential data).
type MemberInfo struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Address     string     `json:"address,omitempty"`
	Role        string     `json:"role"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PasswordSet bool       `json:"password_set"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m *Member) ToMemberInfo() *MemberInfo {
	return &MemberInfo{
		ID:          m.ID,
		Email:       m.Email,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Address:     m.Address,
		Role:        m.Role,
		Confirmed:   m.Confirmed,
		ConfirmedAt: m.ConfirmedAt,
		PasswordSet: m.PasswordSet,
		CreatedAt:   m.CreatedAt,
	}
}

type RegisterMemberRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address,omitempty"`
	Role      string `json:"role,omitempty"`
}

// MemberUpdate carries a partial profile update. A nil field means "leave
// unchanged"; a present field overwrites. Address is the only field where an
// empty value is meaningful (it clears the address).
type MemberUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Address   *string `json:"address,omitempty"`
	Role      *string `json:"role,omitempty"`
}

func (r *RegisterMemberRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.FirstName == "" {
		return fmt.Errorf("first name is required")
	}
	if r.LastName == "" {
		return fmt.Errorf("last name is required")
	}
	if r.Role != "" && !validRoles[r.Role] {
		return fmt.Errorf("invalid role")
	}
	return nil
}

func (r *RegisterMemberRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Address = strings.TrimSpace(r.Address)
	if r.Role == "" {
		r.Role = RoleMember
	}
}

func (u *MemberUpdate) Validate() error {
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return fmt.Errorf("first name cannot be empty")
	}
	if u.LastName != nil && strings.TrimSpace(*u.LastName) == "" {
		return fmt.Errorf("last name cannot be empty")
	}
	if u.Role != nil && !validRoles[*u.Role] {
		return fmt.Errorf("invalid role")
	}
	return nil
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}
