package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clublane/membership/internal/domain"
	"github.com/clublane/membership/internal/service"
	"github.com/clublane/membership/pkg/auth"
	"github.com/clublane/membership/pkg/config"
)

// stubService lets each test pin down just the operations it exercises.
type stubService struct {
	registerFn func(ctx context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error)
	confirmFn  func(ctx context.Context, memberID uuid.UUID, code string) (*service.ConfirmationResult, error)
	resendFn   func(ctx context.Context, email string) error
	activateFn func(ctx context.Context, setupToken, password string) (*domain.Member, error)
	getFn      func(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	listFn     func(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error)
	updateFn   func(ctx context.Context, id uuid.UUID, upd domain.MemberUpdate) (*domain.Member, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
}

func (s *stubService) RegisterMember(ctx context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error) {
	return s.registerFn(ctx, req)
}

func (s *stubService) ConfirmMember(ctx context.Context, memberID uuid.UUID, code string) (*service.ConfirmationResult, error) {
	return s.confirmFn(ctx, memberID, code)
}

func (s *stubService) ResendCode(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubService) ActivatePassword(ctx context.Context, setupToken, password string) (*domain.Member, error) {
	return s.activateFn(ctx, setupToken, password)
}

func (s *stubService) GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return s.getFn(ctx, id)
}

func (s *stubService) ListMembers(ctx context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error) {
	return s.listFn(ctx, limit, offset, confirmed)
}

func (s *stubService) UpdateMember(ctx context.Context, id uuid.UUID, upd domain.MemberUpdate) (*domain.Member, error) {
	return s.updateFn(ctx, id, upd)
}

func (s *stubService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
	lastKey string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.calls++
	l.lastKey = key
	return l.allowed, l.err
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret"},
	}
}

func testMember() *domain.Member {
	return &domain.Member{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      domain.RoleMember,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.With(h.AttemptLimit("confirm", 10, time.Minute)).Post("/members/{id}/confirm", h.Confirm)
	r.Post("/resend-code", h.ResendCode)
	r.Post("/activate-password", h.ActivatePassword)
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireJWT("admin"))
		r.Get("/members", h.ListMembers)
		r.Get("/members/{id}", h.GetMember)
		r.Delete("/members/{id}", h.DeleteMember)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterHandler(t *testing.T) {
	member := testMember()
	svc := &stubService{
		registerFn: func(_ context.Context, req *domain.RegisterMemberRequest) (*domain.Member, error) {
			if req.Email != "ada@example.com" {
				t.Errorf("unexpected email %q", req.Email)
			}
			return member, nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/register", map[string]string{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterHandlerEmailTaken(t *testing.T) {
	svc := &stubService{
		registerFn: func(context.Context, *domain.RegisterMemberRequest) (*domain.Member, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/register", map[string]string{"email": "a@b.com"}, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body["code"] != "EMAIL_EXISTS" {
		t.Errorf("expected EMAIL_EXISTS, got %q", body["code"])
	}
}

func TestRegisterHandlerBadJSON(t *testing.T) {
	svc := &stubService{}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfirmHandler(t *testing.T) {
	member := testMember()
	now := time.Now()
	member.Confirmed = true
	member.ConfirmedAt = &now

	svc := &stubService{
		confirmFn: func(_ context.Context, memberID uuid.UUID, code string) (*service.ConfirmationResult, error) {
			if memberID != member.ID {
				t.Errorf("unexpected member id %s", memberID)
			}
			if code != "042042" {
				t.Errorf("unexpected code %q", code)
			}
			return &service.ConfirmationResult{
				Member:      member,
				SetupToken:  "setup-token",
				ExpiresIn:   3600,
				TokenIssued: true,
			}, nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/members/"+member.ID.String()+"/confirm",
		map[string]string{"code": "042042"}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["setup_token"] != "setup-token" {
		t.Errorf("expected setup token in response, got %v", body["setup_token"])
	}
	if body["token_issued"] != true {
		t.Errorf("expected token_issued true")
	}
}

func TestConfirmHandlerTokenDegraded(t *testing.T) {
	member := testMember()
	svc := &stubService{
		confirmFn: func(context.Context, uuid.UUID, string) (*service.ConfirmationResult, error) {
			return &service.ConfirmationResult{Member: member, TokenIssued: false}, nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/members/"+member.ID.String()+"/confirm",
		map[string]string{"code": "042042"}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if _, present := body["setup_token"]; present {
		t.Error("setup_token must be omitted when no token was issued")
	}
}

func TestConfirmHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"not found", domain.ErrMemberNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already confirmed", domain.ErrAlreadyConfirmed, http.StatusConflict, "ALREADY_CONFIRMED"},
		{"invalid code", domain.ErrInvalidOrExpiredCode, http.StatusBadRequest, "INVALID_CODE"},
		{"empty code", domain.ErrCodeRequired, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				confirmFn: func(context.Context, uuid.UUID, string) (*service.ConfirmationResult, error) {
					return nil, tt.err
				},
			}
			h := New(svc, &stubLimiter{allowed: true}, testConfig())

			rec := doJSON(t, newRouter(h), http.MethodPost, "/members/"+uuid.NewString()+"/confirm",
				map[string]string{"code": "000000"}, nil)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body["code"] != tt.wantKind {
				t.Errorf("expected %s, got %q", tt.wantKind, body["code"])
			}
		})
	}
}

func TestConfirmHandlerBadMemberID(t *testing.T) {
	h := New(&stubService{}, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/members/not-a-uuid/confirm",
		map[string]string{"code": "000000"}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfirmHandlerRateLimited(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	h := New(&stubService{}, limiter, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/members/"+uuid.NewString()+"/confirm",
		map[string]string{"code": "000000"}, nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if limiter.calls != 1 {
		t.Errorf("expected one limiter call, got %d", limiter.calls)
	}
}

func TestConfirmHandlerLimiterFailsOpen(t *testing.T) {
	member := testMember()
	svc := &stubService{
		confirmFn: func(context.Context, uuid.UUID, string) (*service.ConfirmationResult, error) {
			return &service.ConfirmationResult{Member: member, TokenIssued: false}, nil
		},
	}
	limiter := &stubLimiter{allowed: false, err: fmt.Errorf("redis down")}
	h := New(svc, limiter, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/members/"+member.ID.String()+"/confirm",
		map[string]string{"code": "000000"}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("limiter errors must not block requests, got %d", rec.Code)
	}
}

func TestResendCodeHandler(t *testing.T) {
	var got string
	svc := &stubService{
		resendFn: func(_ context.Context, email string) error {
			got = email
			return nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/resend-code",
		map[string]string{"email": "ghost@example.com"}, nil)

	// The response must not reveal whether the email is registered
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != "ghost@example.com" {
		t.Errorf("service not called with email, got %q", got)
	}
}

func TestResendCodeHandlerMissingEmail(t *testing.T) {
	h := New(&stubService{}, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/resend-code", map[string]string{}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActivatePasswordHandler(t *testing.T) {
	member := testMember()
	member.PasswordSet = true
	svc := &stubService{
		activateFn: func(_ context.Context, token, password string) (*domain.Member, error) {
			if token != "setup-token" || password != "s3cret-pass" {
				t.Errorf("unexpected args %q %q", token, password)
			}
			return member, nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	rec := doJSON(t, newRouter(h), http.MethodPost, "/activate-password",
		map[string]string{"setup_token": "setup-token", "password": "s3cret-pass"}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	h := New(&stubService{}, &stubLimiter{allowed: true}, testConfig())
	router := newRouter(h)

	rec := doJSON(t, router, http.MethodGet, "/admin/members", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	memberToken, err := auth.NewSetupToken("ada@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	header := http.Header{"Authorization": []string{"Bearer " + memberToken}}
	rec = doJSON(t, router, http.MethodGet, "/admin/members", nil, header)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin token, got %d", rec.Code)
	}
}

func TestAdminListMembers(t *testing.T) {
	member := testMember()
	svc := &stubService{
		listFn: func(_ context.Context, limit, offset int, confirmed *bool) ([]domain.Member, error) {
			if limit != 20 || offset != 0 {
				t.Errorf("unexpected pagination %d/%d", limit, offset)
			}
			if confirmed == nil || *confirmed {
				t.Error("expected confirmed=false filter")
			}
			return []domain.Member{*member}, nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	adminToken, err := auth.NewAdminToken("root@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to mint admin token: %v", err)
	}
	header := http.Header{"Authorization": []string{"Bearer " + adminToken}}

	rec := doJSON(t, newRouter(h), http.MethodGet, "/admin/members?confirmed=false", nil, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var infos []domain.MemberInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(infos) != 1 || infos[0].Email != member.Email {
		t.Errorf("unexpected listing %+v", infos)
	}
}

func TestAdminDeleteMember(t *testing.T) {
	member := testMember()
	svc := &stubService{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != member.ID {
				t.Errorf("unexpected id %s", id)
			}
			return nil
		},
	}
	h := New(svc, &stubLimiter{allowed: true}, testConfig())

	adminToken, err := auth.NewAdminToken("root@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to mint admin token: %v", err)
	}
	header := http.Header{"Authorization": []string{"Bearer " + adminToken}}

	rec := doJSON(t, newRouter(h), http.MethodDelete, "/admin/members/"+member.ID.String(), nil, header)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
