package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/http/httpx"
	"github.com/dropDatabas3/shopjohn/internal/http/middlewares"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

// AccountHandler maneja la baja de cuenta autenticada.
type AccountHandler struct {
	WF *verification.Workflow
}

// Register registra las rutas. El RequireAuth lo aplica el router.
func (h *AccountHandler) Register(r chi.Router) {
	r.Delete("/v1/auth/account", h.deleteAccount)
}

// deleteAccount elimina la cuenta del caller. La confirmación por mail es
// best-effort: con el broker caído la baja igual responde 204.
func (h *AccountHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := middlewares.GetAccountID(r.Context())
	if accountID == "" {
		httpx.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.WF.DeleteAccount(r.Context(), accountID); err != nil {
		if repository.IsNotFound(err) {
			httpx.WriteError(w, "not_found", "account not found", http.StatusNotFound)
			return
		}
		logger.From(r.Context()).Error("account deletion failed", logger.Err(err))
		httpx.WriteError(w, "server_error", "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
