package http

import (
	"encoding/json"
	"net/http"

	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

type UserHandler struct {
	service ports.AccountService
}

func NewUserHandler(service ports.AccountService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// RequestPasswordReset godoc
// @Summary      Requests a password reset
// @Description  Issues a reset token for the account and publishes it as a notification. Always answers 202 so callers cannot probe which emails are registered.
// @Tags         users
// @Accept       json
// @Success      202
// @Failure      400
// @Router       /password-reset [post]
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
