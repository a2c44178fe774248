package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clublane/membership/internal/domain"
	"github.com/clublane/membership/internal/repository"
	"github.com/clublane/membership/internal/service"
	"github.com/clublane/membership/pkg/auth"
	"github.com/clublane/membership/pkg/config"
	"github.com/clublane/membership/pkg/logger"
)

type Handlers struct {
	svc     service.ConfirmationService
	limiter repository.AttemptLimiter
	config  *config.Config
}

func New(
	svc service.ConfirmationService,
	limiter repository.AttemptLimiter,
	config *config.Config,
) *Handlers {
	return &Handlers{
		svc:     svc,
		limiter: limiter,
		config:  config,
	}
}

// Middleware for JWT authentication
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), logger.MemberIDKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AttemptLimit throttles code-guess and resend endpoints per client IP.
func (h *Handlers) AttemptLimit(prefix string, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			key := prefix + ":" + clientIP

			allowed, err := h.limiter.Allow(r.Context(), key, max, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Attempt limit check failed", "error", err)
				// Allow request on error (fail open)
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMIT_EXCEEDED")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeServiceError maps core error kinds to stable HTTP responses. The
// invalid-or-expired case deliberately stays generic to avoid a code-guessing
// side channel.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "Member not found", "NOT_FOUND")
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "A member with this email already exists", "EMAIL_EXISTS")
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, "Member is already confirmed", "ALREADY_CONFIRMED")
	case errors.Is(err, domain.ErrPasswordAlreadySet):
		writeError(w, http.StatusConflict, "Password has already been set", "PASSWORD_ALREADY_SET")
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		writeError(w, http.StatusBadRequest, "Invalid or expired confirmation code", "INVALID_CODE")
	case errors.Is(err, domain.ErrCodeRequired):
		writeError(w, http.StatusBadRequest, "Confirmation code is required", "INVALID_INPUT")
	default:
		writeError(w, http.StatusBadRequest, err.Error(), "REQUEST_FAILED")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
