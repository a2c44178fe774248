package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/clublane/membership/internal/domain"
	"github.com/clublane/membership/internal/mailer"
	"github.com/clublane/membership/internal/repository"
	"github.com/clublane/membership/pkg/auth"
	"github.com/clublane/membership/pkg/config"
	"github.com/clublane/membership/pkg/events"
	"github.com/clublane/membership/pkg/logger"
)

// ConfirmationResult is returned on successful confirmation. When the token
// issuer is unavailable the confirmation still stands; TokenIssued is false
// and the member requests a setup token later via the resend flow.
type ConfirmationResult struct {
	Member      *domain.Member `json:"member"`
	SetupToken  string         `json:"setup_token,omitempty"`
	ExpiresIn   int64          `json:"expires_in,omitempty"`
	TokenIssued bool           `json:"token_issued"`
}

type ConfirmationService interface {
	RegisterMember(ctx context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error)
	ConfirmMember(ctx context.Context, memberID uuid.UUID, code string) (*ConfirmationResult, error)
	ResendCode(ctx context.Context, email string) error
	ActivatePassword(ctx context.Context, setupToken, password string) (*domain.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	ListMembers(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error)
	UpdateMember(ctx context.Context, id uuid.UUID, upd domain.MemberUpdate) (*domain.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
}

type confirmationService struct {
	memberRepo       repository.MemberRepository
	confirmationRepo repository.ConfirmationRepository
	codeGen          CodeGenerator
	mailer           mailer.Service
	tokenIssuer      TokenIssuer
	eventBus         events.Publisher
	config           *config.Config
}

func NewConfirmationService(
	memberRepo repository.MemberRepository,
	confirmationRepo repository.ConfirmationRepository,
	codeGen CodeGenerator,
	mailer mailer.Service,
	tokenIssuer TokenIssuer,
	eventBus events.Publisher,
	config *config.Config,
) ConfirmationService {
	return &confirmationService{
		memberRepo:       memberRepo,
		confirmationRepo: confirmationRepo,
		codeGen:          codeGen,
		mailer:           mailer,
		tokenIssuer:      tokenIssuer,
		eventBus:         eventBus,
		config:           config,
	}
}

func (s *confirmationService) RegisterMember(ctx context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error) {
	// Normalize and validate
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Fast-path duplicate check; the unique index on email is authoritative
	exists, err := s.memberRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing member: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	member := &domain.Member{
		ID:        uuid.New(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Role:      req.Role,
	}

	created, err := s.memberRepo.Create(ctx, member)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	if err := s.issueCode(ctx, created); err != nil {
		logger.ErrorContext(ctx, "Failed to issue confirmation code", "error", err, "member_id", created.ID)
		return nil, fmt.Errorf("failed to issue confirmation code: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.MemberRegistered, events.MemberRegisteredEvent{
		MemberID:     created.ID.String(),
		Email:        created.Email,
		FirstName:    created.FirstName,
		LastName:     created.LastName,
		RegisteredAt: created.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish member.registered", "error", err, "member_id", created.ID)
	}

	return created, nil
}

// issueCode generates a fresh confirmation code, persists its record and
// asks the notifier to deliver it. Delivery failure is logged only: the
// member stays registered and unconfirmed, and the code can be re-sent.
func (s *confirmationService) issueCode(ctx context.Context, member *domain.Member) error {
	code, err := s.codeGen.GenerateCode()
	if err != nil {
		return err
	}

	now := time.Now()
	record := domain.NewConfirmationRecord(member.ID, code, now, s.config.Auth.ConfirmationTTL)
	if err := s.confirmationRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store confirmation record: %w", err)
	}

	if err := s.mailer.SendConfirmationCode(member.Email, member.FirstName, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send confirmation code", "error", err, "member_id", member.ID)
		// Don't fail the operation - the code exists and can be re-sent
	}

	return nil
}

func (s *confirmationService) ConfirmMember(ctx context.Context, memberID uuid.UUID, code string) (*ConfirmationResult, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	// Idempotency guard before touching any confirmation record
	if member.Confirmed {
		return nil, domain.ErrAlreadyConfirmed
	}

	if code == "" {
		return nil, domain.ErrCodeRequired
	}

	now := time.Now()

	record, err := s.confirmationRepo.FindByMemberIDAndCode(ctx, memberID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmation record: %w", err)
	}
	if record == nil {
		// Wrong code. Externally indistinguishable from expired.
		logger.WarnContext(ctx, "Confirmation attempt with unknown code", "member_id", memberID)
		return nil, domain.ErrInvalidOrExpiredCode
	}

	valid, err := record.IsValid(code, now)
	if err != nil {
		return nil, err
	}
	if !valid {
		logger.WarnContext(ctx, "Confirmation attempt with expired code",
			"member_id", memberID, "expired_at", record.ExpiresAt)
		return nil, domain.ErrInvalidOrExpiredCode
	}

	confirmed, err := member.Confirm(now)
	if err != nil {
		return nil, err
	}

	// Conditional update: of two concurrent confirmations exactly one wins,
	// the other observes ErrAlreadyConfirmed here.
	if err := s.memberRepo.Confirm(ctx, memberID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyConfirmed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist confirmation: %w", err)
	}

	// Invalidate every outstanding record for this member, not just the
	// consumed one. Leftovers are reclaimed by the sweeper if this fails.
	if _, err := s.confirmationRepo.DeleteByMemberID(ctx, memberID); err != nil {
		logger.ErrorContext(ctx, "Failed to invalidate confirmation records", "error", err, "member_id", memberID)
	}

	result := &ConfirmationResult{Member: &confirmed}

	tokenCtx, cancel := context.WithTimeout(ctx, s.config.Auth.DependencyTimeout)
	defer cancel()

	token, ttl, err := s.tokenIssuer.GenerateTemporaryToken(tokenCtx, confirmed.Email)
	if err != nil {
		// The confirmation is already committed; degrade the result instead
		// of failing or reverting.
		logger.ErrorContext(ctx, "Failed to issue setup token", "error", err, "member_id", memberID)
	} else {
		result.SetupToken = token
		result.ExpiresIn = int64(ttl.Seconds())
		result.TokenIssued = true
	}

	if err := s.mailer.SendWelcome(confirmed.Email, confirmed.FirstName); err != nil {
		logger.ErrorContext(ctx, "Failed to send welcome email", "error", err, "member_id", memberID)
	}

	if err := s.eventBus.Publish(ctx, events.MemberConfirmed, events.MemberConfirmedEvent{
		MemberID:    confirmed.ID.String(),
		Email:       confirmed.Email,
		ConfirmedAt: now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish member.confirmed", "error", err, "member_id", memberID)
	}

	return result, nil
}

func (s *confirmationService) ResendCode(ctx context.Context, email string) error {
	member, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		// Don't reveal if the email is registered or not
		return nil
	}

	if member.Confirmed {
		return domain.ErrAlreadyConfirmed
	}

	code, err := s.codeGen.GenerateCode()
	if err != nil {
		return err
	}

	now := time.Now()
	record := domain.NewConfirmationRecord(member.ID, code, now, s.config.Auth.ConfirmationTTL)
	if err := s.confirmationRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store confirmation record: %w", err)
	}

	if err := s.mailer.SendConfirmationCode(member.Email, member.FirstName, code); err != nil {
		logger.ErrorContext(ctx, "Failed to resend confirmation code", "error", err, "member_id", member.ID)
		return fmt.Errorf("failed to send confirmation code: %w", err)
	}

	return nil
}

func (s *confirmationService) ActivatePassword(ctx context.Context, setupToken, password string) (*domain.Member, error) {
	email, err := auth.ParseSetupToken(setupToken, s.config.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired setup token: %w", err)
	}

	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	member, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	now := time.Now()
	updated, err := member.MarkPasswordAsSet(now)
	if err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.memberRepo.SetPassword(ctx, member.ID, hash, now); err != nil {
		if errors.Is(err, domain.ErrPasswordAlreadySet) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist password: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.MemberPasswordSet, events.MemberPasswordSetEvent{
		MemberID: member.ID.String(),
		Email:    member.Email,
		SetAt:    now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish member.password_set", "error", err, "member_id", member.ID)
	}

	return &updated, nil
}

func (s *confirmationService) GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (s *confirmationService) ListMembers(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error) {
	members, err := s.memberRepo.List(ctx, limit, offset, confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (s *confirmationService) UpdateMember(ctx context.Context, id uuid.UUID, upd domain.MemberUpdate) (*domain.Member, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	updated := member.WithUpdatedFields(upd, time.Now())
	persisted, err := s.memberRepo.Update(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return persisted, nil
}

func (s *confirmationService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	if _, err := s.confirmationRepo.DeleteByMemberID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete confirmation records: %w", err)
	}
	if err := s.memberRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}
