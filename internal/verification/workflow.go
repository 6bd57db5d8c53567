package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/notify"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
	"github.com/dropDatabas3/shopjohn/internal/rate"
	"github.com/dropDatabas3/shopjohn/internal/security/password"
	"github.com/dropDatabas3/shopjohn/internal/security/tokens"
)

// minPasswordLen es el largo mínimo aceptado para un password nuevo.
const minPasswordLen = 8

// Dispatcher es lo único que el workflow necesita del pipeline de
// notificaciones: publicar un job y volver.
type Dispatcher interface {
	Enqueue(ctx context.Context, job notify.Job) error
}

// Workflow orquesta los flujos de verificación de email y reset de password:
// emisión de tokens, consumo one-shot, resend con throttle y baja de cuenta.
type Workflow struct {
	Issuer     *Issuer
	Store      repository.TokenStore
	Accounts   repository.AccountDirectory
	Dispatcher Dispatcher
	Limiter    rate.Limiter

	// BaseURL es la URL pública del servicio, usada para armar los links
	// de los mails (sin slash final).
	BaseURL string

	// Now permite inyectar el reloj en tests. Nil usa time.Now.
	Now func() time.Time
}

// StartVerification emite un token de verificación para la cuenta y despacha
// el mail. Cuentas ya verificadas son un no-op.
func (w *Workflow) StartVerification(ctx context.Context, accountID string) error {
	log := logger.From(ctx).With(logger.Component("Workflow"), logger.AccountID(accountID))

	acc, err := w.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acc.EmailVerified {
		log.Debug("account already verified, skipping")
		return nil
	}

	if err := w.issueAndDispatch(ctx, acc, repository.PurposeEmailVerification, notify.KindVerifyEmail); err != nil {
		return err
	}
	log.Info("verification started", logger.Email(acc.Email))
	return nil
}

// Resend re-emite el token de verificación y despacha el mail de nuevo,
// invalidando de inmediato el token anterior. Pasa primero por el throttle.
//
// Un email desconocido (o ya verificado) es un éxito silencioso: la respuesta
// no puede usarse para enumerar cuentas.
func (w *Workflow) Resend(ctx context.Context, email, clientIP string) error {
	log := logger.From(ctx).With(logger.Component("Workflow"), logger.Op("Resend"))

	key := throttleKey(email, clientIP)
	res, err := w.Limiter.Allow(ctx, "resend:"+key)
	if err != nil {
		return fmt.Errorf("throttle check: %w", err)
	}
	if !res.Allowed {
		log.Warn("resend throttled", logger.Key(key), logger.Duration(res.RetryAfter))
		return &ThrottleError{RetryAfter: res.RetryAfter}
	}

	acc, err := w.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("resend for unknown email, silent success")
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}
	if acc.EmailVerified {
		log.Info("resend for verified account, silent success", logger.AccountID(acc.ID))
		return nil
	}

	if err := w.issueAndDispatch(ctx, acc, repository.PurposeEmailVerification, notify.KindResendVerification); err != nil {
		return err
	}
	log.Info("verification resent", logger.AccountID(acc.ID))
	return nil
}

// ForgotPassword emite un token de reset y despacha el mail. Un email
// desconocido es un éxito silencioso.
func (w *Workflow) ForgotPassword(ctx context.Context, email string) error {
	log := logger.From(ctx).With(logger.Component("Workflow"), logger.Op("ForgotPassword"))

	acc, err := w.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("forgot-password for unknown email, silent success")
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	if err := w.issueAndDispatch(ctx, acc, repository.PurposePasswordReset, notify.KindPasswordReset); err != nil {
		return err
	}
	log.Info("password reset issued", logger.AccountID(acc.ID))
	return nil
}

// Consume canjea el secreto crudo de forma atómica: bajo concurrencia,
// exactamente un caller recibe el token, el resto ErrAlreadyConsumed.
// El purpose se valida antes del consume: un secreto enviado al flujo
// equivocado falla con ErrInvalidToken sin quemar el token.
func (w *Workflow) Consume(ctx context.Context, rawSecret string, purpose repository.TokenPurpose) (*repository.Token, error) {
	tok, err := w.Store.Consume(ctx, tokens.SHA256Hex(rawSecret), purpose)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return tok, nil
}

// ConfirmEmail consume un token de verificación y marca la cuenta como
// verificada.
func (w *Workflow) ConfirmEmail(ctx context.Context, rawSecret string) error {
	tok, err := w.Consume(ctx, rawSecret, repository.PurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := w.Accounts.SetEmailVerified(ctx, tok.AccountID, true); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	logger.From(ctx).Info("email verified",
		logger.Component("Workflow"), logger.AccountID(tok.AccountID), logger.TokenID(tok.ID))
	return nil
}

// ResetPassword consume un token de reset y escribe el nuevo hash argon2id.
// El token es la única prueba del derecho a cambiar el password.
func (w *Workflow) ResetPassword(ctx context.Context, rawSecret, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password too short", repository.ErrInvalidInput)
	}

	// El hash va antes del consume: un fallo acá no quema el token.
	phc, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tok, err := w.Consume(ctx, rawSecret, repository.PurposePasswordReset)
	if err != nil {
		return err
	}
	// Si el write del hash falla, el token ya quedó consumido y el usuario
	// repite el forgot. La alternativa (consumir después) dejaría una
	// ventana para dos resets con el mismo token.
	if err := w.Accounts.UpdatePasswordHash(ctx, tok.AccountID, phc); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	logger.From(ctx).Info("password reset",
		logger.Component("Workflow"), logger.AccountID(tok.AccountID), logger.TokenID(tok.ID))
	return nil
}

// CheckToken valida el token sin consumirlo (dry-run, para que el front
// muestre el form de reset solo con un token vigente).
func (w *Workflow) CheckToken(ctx context.Context, rawSecret string, purpose repository.TokenPurpose) error {
	tok, err := w.Store.FindBySecret(ctx, tokens.SHA256Hex(rawSecret))
	if err != nil {
		return mapStoreErr(err)
	}
	if tok.Purpose != purpose {
		return ErrInvalidToken
	}
	if tok.ConsumedAt != nil {
		return ErrAlreadyConsumed
	}
	if !w.now().Before(tok.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// DeleteAccount elimina la cuenta y despacha la confirmación por mail.
// El delete es lo destructivo; si el broker está caído, la notificación se
// pierde y la baja igual se reporta exitosa.
func (w *Workflow) DeleteAccount(ctx context.Context, accountID string) error {
	log := logger.From(ctx).With(logger.Component("Workflow"), logger.AccountID(accountID))

	acc, err := w.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if err := w.Accounts.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	job := notify.NewJob(notify.KindAccountDeleted, acc.Email, map[string]string{
		"full_name": acc.FullName,
	})
	if err := w.Dispatcher.Enqueue(ctx, job); err != nil {
		log.Warn("account deleted but notification dispatch failed", logger.Err(err))
	} else {
		log.Info("account deleted, notification dispatched")
	}
	return nil
}

// CleanupExpired purga tokens expirados o consumidos del store.
func (w *Workflow) CleanupExpired(ctx context.Context) (int, error) {
	n, err := w.Store.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	return n, nil
}

func (w *Workflow) issueAndDispatch(ctx context.Context, acc *repository.Account, purpose repository.TokenPurpose, kind notify.JobKind) error {
	_, raw, err := w.Issuer.Issue(ctx, acc.ID, purpose)
	if err != nil {
		return err
	}

	job := notify.NewJob(kind, acc.Email, map[string]string{
		"full_name": acc.FullName,
		"link":      w.link(purpose, raw),
		"ttl":       w.Issuer.TTL(purpose).String(),
	})
	if err := w.Dispatcher.Enqueue(ctx, job); err != nil {
		return err
	}
	return nil
}

// link arma el deep-link del mail. El secreto crudo es base64url, no
// necesita escaping.
func (w *Workflow) link(purpose repository.TokenPurpose, rawSecret string) string {
	base := strings.TrimRight(w.BaseURL, "/")
	if purpose == repository.PurposePasswordReset {
		return base + "/v1/auth/reset?token=" + rawSecret
	}
	return base + "/v1/auth/verify-email?token=" + rawSecret
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// throttleKey prioriza el email normalizado; cae a la IP del cliente cuando
// el request no trae email.
func throttleKey(email, clientIP string) string {
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		return e
	}
	return clientIP
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrInvalidToken
	case errors.Is(err, repository.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, repository.ErrTokenConsumed):
		return ErrAlreadyConsumed
	default:
		return err
	}
}
