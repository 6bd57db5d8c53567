// Package handlers expone los endpoints HTTP de los flujos de verificación
// de email y reset de password.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/http/httpx"
	"github.com/dropDatabas3/shopjohn/internal/http/middlewares"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

// EmailFlowsHandler maneja resend, confirm, forgot y reset.
type EmailFlowsHandler struct {
	WF *verification.Workflow

	// SelfService habilita el resend sin autenticación. Con el flag apagado
	// la superficie pública de resend responde 403.
	SelfService bool
}

// Register registra las rutas en el router.
func (h *EmailFlowsHandler) Register(r chi.Router) {
	r.Post("/v1/auth/verify-email/resend", h.resend)
	r.Get("/v1/auth/verify-email", h.confirmGet)
	r.Post("/v1/auth/verify-email", h.confirmPost)
	r.Post("/v1/auth/forgot", h.forgot)
	r.Get("/v1/auth/reset", h.resetCheck)
	r.Post("/v1/auth/reset", h.reset)
}

type resendIn struct {
	Email string `json:"email"`
}

// resend re-emite el mail de verificación. Siempre responde 202 para emails
// desconocidos (anti-enumeración); solo el throttle produce un error visible.
func (h *EmailFlowsHandler) resend(w http.ResponseWriter, r *http.Request) {
	if !h.SelfService {
		httpx.WriteError(w, "forbidden", "self-service verification disabled", http.StatusForbidden)
		return
	}

	var in resendIn
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, "invalid_json", "Malformed body", http.StatusBadRequest)
		return
	}
	if in.Email == "" {
		httpx.WriteError(w, "missing_fields", "email required", http.StatusBadRequest)
		return
	}

	err := h.WF.Resend(r.Context(), in.Email, middlewares.ClientIP(r))
	if err != nil {
		if verification.IsThrottleExceeded(err) {
			httpx.WriteThrottled(w, verification.RetryAfterFrom(err))
			return
		}
		h.serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

// confirmGet consume el token que llega por query param (el link del mail).
func (h *EmailFlowsHandler) confirmGet(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, r.URL.Query().Get("token"))
}

type confirmIn struct {
	Token string `json:"token"`
}

func (h *EmailFlowsHandler) confirmPost(w http.ResponseWriter, r *http.Request) {
	var in confirmIn
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, "invalid_json", "Malformed body", http.StatusBadRequest)
		return
	}
	h.confirm(w, r, in.Token)
}

func (h *EmailFlowsHandler) confirm(w http.ResponseWriter, r *http.Request, token string) {
	if token == "" {
		httpx.WriteError(w, "invalid_token", "token required", http.StatusBadRequest)
		return
	}

	if err := h.WF.ConfirmEmail(r.Context(), token); err != nil {
		h.writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type forgotIn struct {
	Email string `json:"email"`
}

// forgot siempre responde ok, exista o no el email.
func (h *EmailFlowsHandler) forgot(w http.ResponseWriter, r *http.Request) {
	var in forgotIn
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, "invalid_json", "Malformed body", http.StatusBadRequest)
		return
	}
	if in.Email == "" {
		httpx.WriteError(w, "missing_fields", "email required", http.StatusBadRequest)
		return
	}

	if err := h.WF.ForgotPassword(r.Context(), in.Email); err != nil {
		h.serverError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resetCheck valida el token sin consumirlo, para que el front muestre el
// form solo con un token vigente.
func (h *EmailFlowsHandler) resetCheck(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, "invalid_token", "token required", http.StatusBadRequest)
		return
	}

	if err := h.WF.CheckToken(r.Context(), token, repository.PurposePasswordReset); err != nil {
		h.writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

type resetIn struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *EmailFlowsHandler) reset(w http.ResponseWriter, r *http.Request) {
	var in resetIn
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, "invalid_json", "Malformed body", http.StatusBadRequest)
		return
	}
	if in.Token == "" || in.NewPassword == "" {
		httpx.WriteError(w, "missing_fields", "token and new_password required", http.StatusBadRequest)
		return
	}

	err := h.WF.ResetPassword(r.Context(), in.Token, in.NewPassword)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			httpx.WriteError(w, "weak_password", "password does not meet requirements", http.StatusBadRequest)
			return
		}
		h.writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// writeTokenError colapsa inválido/expirado/consumido en una sola respuesta:
// la distinción serviría para enumerar tokens.
func (h *EmailFlowsHandler) writeTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case verification.IsInvalidToken(err), verification.IsExpired(err), verification.IsAlreadyConsumed(err):
		httpx.WriteError(w, "invalid_token", "token invalid, expired or already used", http.StatusBadRequest)
	default:
		h.serverError(w, r, err)
	}
}

func (h *EmailFlowsHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.From(r.Context()).Error("email flow failed", logger.Err(err))
	httpx.WriteError(w, "server_error", "Internal server error", http.StatusInternalServerError)
}
