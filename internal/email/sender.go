// Package email contiene el envío SMTP y los templates de los mails
// transaccionales (verificación, reset, baja de cuenta).
package email

// Sender es la interfaz para enviar emails.
// Implementada por SMTPSender; los tests usan fakes.
type Sender interface {
	// Send envía un email de texto plano.
	Send(to string, subject string, body string) error
}
