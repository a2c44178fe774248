package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clublane/membership/internal/domain"
)

// Register handles member registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	member, err := h.svc.RegisterMember(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful. Please check your email for the confirmation code.",
		"member":  member.ToMemberInfo(),
	})
}

// Confirm handles confirmation code submission
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member ID", "INVALID_INPUT")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	result, err := h.svc.ConfirmMember(r.Context(), memberID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"message":      "Membership confirmed",
		"member":       result.Member.ToMemberInfo(),
		"token_issued": result.TokenIssued,
	}
	if result.TokenIssued {
		response["setup_token"] = result.SetupToken
		response["expires_in"] = result.ExpiresIn
	}

	writeJSON(w, http.StatusOK, response)
}

// ResendCode handles re-issuing a confirmation code
func (h *Handlers) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", "INVALID_INPUT")
		return
	}

	if err := h.svc.ResendCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email is registered, a new confirmation code has been sent",
	})
}

// ActivatePassword handles password setup after confirmation
func (h *Handlers) ActivatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SetupToken string `json:"setup_token"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	member, err := h.svc.ActivatePassword(r.Context(), req.SetupToken, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Password set successfully",
		"member":  member.ToMemberInfo(),
	})
}

// Admin handlers

// ListMembers handles listing members (admin only)
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var confirmed *bool
	if v := r.URL.Query().Get("confirmed"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			confirmed = &b
		}
	}

	members, err := h.svc.ListMembers(r.Context(), limit, offset, confirmed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", "INTERNAL_ERROR")
		return
	}

	infos := make([]*domain.MemberInfo, len(members))
	for i := range members {
		infos[i] = members[i].ToMemberInfo()
	}

	writeJSON(w, http.StatusOK, infos)
}

// GetMember handles getting a specific member (admin only)
func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member ID", "INVALID_INPUT")
		return
	}

	member, err := h.svc.GetMember(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member.ToMemberInfo())
}

// UpdateMember handles partial profile updates (admin only)
func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member ID", "INVALID_INPUT")
		return
	}

	var upd domain.MemberUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	member, err := h.svc.UpdateMember(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member.ToMemberInfo())
}

// DeleteMember handles removing a member (admin only)
func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member ID", "INVALID_INPUT")
		return
	}

	if err := h.svc.DeleteMember(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
