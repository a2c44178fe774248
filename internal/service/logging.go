package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clublane/membership/internal/domain"
	"github.com/clublane/membership/pkg/logger"
)

// loggingService wraps a ConfirmationService with call logging and timing.
// Composed in main rather than interwoven with the business logic.
type loggingService struct {
	next ConfirmationService
}

func NewLoggingService(next ConfirmationService) ConfirmationService {
	return &loggingService{next: next}
}

func (l *loggingService) log(ctx context.Context, op string, start time.Time, err error, args ...any) {
	fields := append([]any{"op", op, "elapsed_ms", time.Since(start).Milliseconds()}, args...)
	if err != nil {
		fields = append(fields, "error", err)
		logger.WarnContext(ctx, "Service call failed", fields...)
		return
	}
	logger.InfoContext(ctx, "Service call completed", fields...)
}

func (l *loggingService) RegisterMember(ctx context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error) {
	start := time.Now()
	member, err := l.next.RegisterMember(ctx, req)
	l.log(ctx, "RegisterMember", start, err)
	return member, err
}

func (l *loggingService) ConfirmMember(ctx context.Context, memberID uuid.UUID, code string) (*ConfirmationResult, error) {
	start := time.Now()
	result, err := l.next.ConfirmMember(ctx, memberID, code)
	l.log(ctx, "ConfirmMember", start, err, "member_id", memberID)
	return result, err
}

func (l *loggingService) ResendCode(ctx context.Context, email string) error {
	start := time.Now()
	err := l.next.ResendCode(ctx, email)
	l.log(ctx, "ResendCode", start, err)
	return err
}

func (l *loggingService) ActivatePassword(ctx context.Context, setupToken, password string) (*domain.Member, error) {
	start := time.Now()
	member, err := l.next.ActivatePassword(ctx, setupToken, password)
	l.log(ctx, "ActivatePassword", start, err)
	return member, err
}

func (l *loggingService) GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	start := time.Now()
	member, err := l.next.GetMember(ctx, id)
	l.log(ctx, "GetMember", start, err, "member_id", id)
	return member, err
}

func (l *loggingService) ListMembers(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error) {
	start := time.Now()
	members, err := l.next.ListMembers(ctx, limit, offset, confirmed)
	l.log(ctx, "ListMembers", start, err)
	return members, err
}

func (l *loggingService) UpdateMember(ctx context.Context, id uuid.UUID, upd domain.MemberUpdate) (*domain.Member, error) {
	start := time.Now()
	member, err := l.next.UpdateMember(ctx, id, upd)
	l.log(ctx, "UpdateMember", start, err, "member_id", id)
	return member, err
}

func (l *loggingService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.next.DeleteMember(ctx, id)
	l.log(ctx, "DeleteMember", start, err, "member_id", id)
	return err
}
