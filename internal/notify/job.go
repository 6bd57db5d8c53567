// Package notify implementa el despacho asíncrono de notificaciones por email:
// un Dispatcher publica jobs en una cola (broker) y un Worker separado los
// consume, renderiza y envía por SMTP.
//
// Garantías: handoff at-least-once a la cola; la entrega efectiva del mail es
// responsabilidad del worker (con reintentos acotados). No hay garantía de
// orden de entrega entre jobs de la misma cuenta.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// JobKind es el tipo de notificación.
type JobKind string

const (
	KindVerifyEmail        JobKind = "verify_email"
	KindResendVerification JobKind = "resend_verification"
	KindPasswordReset      JobKind = "password_reset"
	KindAccountDeleted     JobKind = "account_deleted"
)

// Job es la unidad de trabajo que viaja por la cola, serializada como JSON.
type Job struct {
	ID              string            `json:"id"`
	Kind            JobKind           `json:"kind"`
	Recipient       string            `json:"recipient"`
	TemplateContext map[string]string `json:"template_context,omitempty"`
	EnqueuedAt      time.Time         `json:"enqueued_at"`

	// Attempts cuenta las entregas ya intentadas por el worker.
	// Cero para un job recién despachado.
	Attempts int `json:"attempts,omitempty"`
}

// NewJob arma un Job listo para encolar.
func NewJob(kind JobKind, recipient string, tplCtx map[string]string) Job {
	return Job{
		ID:              uuid.NewString(),
		Kind:            kind,
		Recipient:       recipient,
		TemplateContext: tplCtx,
		EnqueuedAt:      time.Now().UTC(),
	}
}
