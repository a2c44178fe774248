package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestMember() Member {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return Member{
		ID:        uuid.New(),
		Email:     "a@b.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   "12 Analytical St",
		Role:      RoleMember,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestConfirm(t *testing.T) {
	m := newTestMember()
	now := m.CreatedAt.Add(time.Hour)

	confirmed, err := m.Confirm(now)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if !confirmed.Confirmed {
		t.Error("expected Confirmed to be true")
	}
	if confirmed.ConfirmedAt == nil || !confirmed.ConfirmedAt.Equal(now) {
		t.Errorf("expected ConfirmedAt %v, got %v", now, confirmed.ConfirmedAt)
	}
	if !confirmed.UpdatedAt.Equal(now) {
		t.Errorf("expected UpdatedAt %v, got %v", now, confirmed.UpdatedAt)
	}

	// Original value untouched
	if m.Confirmed {
		t.Error("Confirm mutated the receiver")
	}
}

func TestConfirmTwiceFails(t *testing.T) {
	m := newTestMember()
	now := time.Now()

	confirmed, err := m.Confirm(now)
	if err != nil {
		t.Fatalf("first Confirm failed: %v", err)
	}

	if _, err := confirmed.Confirm(now.Add(time.Minute)); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Errorf("expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestMarkPasswordAsSet(t *testing.T) {
	m := newTestMember()
	now := time.Now()

	set, err := m.MarkPasswordAsSet(now)
	if err != nil {
		t.Fatalf("MarkPasswordAsSet failed: %v", err)
	}
	if !set.PasswordSet {
		t.Error("expected PasswordSet to be true")
	}

	if _, err := set.MarkPasswordAsSet(now.Add(time.Minute)); !errors.Is(err, ErrPasswordAlreadySet) {
		t.Errorf("expected ErrPasswordAlreadySet, got %v", err)
	}
}

func TestWithUpdatedFieldsAllAbsent(t *testing.T) {
	m := newTestMember()
	now := m.UpdatedAt.Add(time.Hour)

	updated := m.WithUpdatedFields(MemberUpdate{}, now)

	if updated.UpdatedAt.Equal(m.UpdatedAt) {
		t.Error("expected UpdatedAt to change")
	}

	// Every other field is untouched
	updated.UpdatedAt = m.UpdatedAt
	if updated != m {
		t.Errorf("expected all other fields unchanged, got %+v want %+v", updated, m)
	}
}

func TestWithUpdatedFieldsPartial(t *testing.T) {
	m := newTestMember()
	now := time.Now()

	first := "Grace"
	updated := m.WithUpdatedFields(MemberUpdate{FirstName: &first}, now)

	if updated.FirstName != "Grace" {
		t.Errorf("expected FirstName Grace, got %q", updated.FirstName)
	}
	if updated.LastName != m.LastName {
		t.Errorf("absent LastName changed: %q", updated.LastName)
	}
	if !updated.CreatedAt.Equal(m.CreatedAt) {
		t.Error("CreatedAt must never be altered by a partial update")
	}
}

func TestWithUpdatedFieldsEmptyAddressClears(t *testing.T) {
	m := newTestMember()
	empty := ""

	updated := m.WithUpdatedFields(MemberUpdate{Address: &empty}, time.Now())

	if updated.Address != "" {
		t.Errorf("expected cleared address, got %q", updated.Address)
	}
}

func TestWithUpdatedFieldsKeepsConfirmedAt(t *testing.T) {
	m := newTestMember()
	confirmed, err := m.Confirm(time.Now())
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	before := *confirmed.ConfirmedAt
	last := "Hopper"
	updated := confirmed.WithUpdatedFields(MemberUpdate{LastName: &last}, time.Now().Add(time.Hour))

	if updated.ConfirmedAt == nil || !updated.ConfirmedAt.Equal(before) {
		t.Error("ConfirmedAt must never be altered by a partial update")
	}
}

func TestMemberUpdateValidate(t *testing.T) {
	empty := ""
	role := "president"
	valid := "Ada"

	cases := []struct {
		name    string
		upd     MemberUpdate
		wantErr bool
	}{
		{"all absent", MemberUpdate{}, false},
		{"valid first name", MemberUpdate{FirstName: &valid}, false},
		{"empty first name", MemberUpdate{FirstName: &empty}, true},
		{"empty last name", MemberUpdate{LastName: &empty}, true},
		{"empty address allowed", MemberUpdate{Address: &empty}, false},
		{"unknown role", MemberUpdate{Role: &role}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.upd.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterMemberRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     RegisterMemberRequest
		wantErr bool
	}{
		{"valid", RegisterMemberRequest{Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace"}, false},
		{"missing email", RegisterMemberRequest{FirstName: "Ada", LastName: "Lovelace"}, true},
		{"bad email", RegisterMemberRequest{Email: "not-an-email", FirstName: "Ada", LastName: "Lovelace"}, true},
		{"missing first name", RegisterMemberRequest{Email: "a@b.com", LastName: "Lovelace"}, true},
		{"bad role", RegisterMemberRequest{Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace", Role: "king"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeDefaultsRole(t *testing.T) {
	req := RegisterMemberRequest{Email: "  A@B.com ", FirstName: " Ada ", LastName: "Lovelace"}
	req.Normalize()

	if req.Email != "a@b.com" {
		t.Errorf("expected lowercased trimmed email, got %q", req.Email)
	}
	if req.FirstName != "Ada" {
		t.Errorf("expected trimmed first name, got %q", req.FirstName)
	}
	if req.Role != RoleMember {
		t.Errorf("expected default role %q, got %q", RoleMember, req.Role)
	}
}
