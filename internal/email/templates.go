package email

import (
	"bytes"
	"fmt"
	texttpl "text/template"
)

// Vars son las variables disponibles para los templates.
type Vars struct {
	FullName string // puede venir vacío; el template cae a "User"
	Link     string
	TTL      string
}

const (
	verifySubject = "Verify your email address"
	verifyBody    = `Dear {{if .FullName}}{{.FullName}}{{else}}User{{end}},

Please click the link below to verify your email:
{{.Link}}

The link expires in {{.TTL}}.

Thank you!`

	resetSubject = "Password Reset Request"
	resetBody    = `Dear {{if .FullName}}{{.FullName}}{{else}}User{{end}},

We received a password reset request for your account.
Click the link below to reset your password:
{{.Link}}

The link expires in {{.TTL}}.

If you did not request this, you can ignore this email.`

	deletedSubject = "Your account has been deleted"
	deletedBody    = `Dear {{if .FullName}}{{.FullName}}{{else}}User{{end}},

Your account has been permanently deleted from our system. If this was not you, please contact support immediately.`
)

// Templates renderiza los mails transaccionales.
type Templates struct {
	verify  *texttpl.Template
	reset   *texttpl.Template
	deleted *texttpl.Template
}

// NewTemplates parsea los templates embebidos. Panic solo si el código
// shippea templates rotos, que es un bug de build, no de runtime.
func NewTemplates() *Templates {
	return &Templates{
		verify:  texttpl.Must(texttpl.New("verify").Parse(verifyBody)),
		reset:   texttpl.Must(texttpl.New("reset").Parse(resetBody)),
		deleted: texttpl.Must(texttpl.New("deleted").Parse(deletedBody)),
	}
}

// RenderVerify renderiza el mail de verificación (también usado para resend).
func (t *Templates) RenderVerify(v Vars) (subject, body string, err error) {
	body, err = render(t.verify, v)
	return verifySubject, body, err
}

// RenderReset renderiza el mail de reset de password.
func (t *Templates) RenderReset(v Vars) (subject, body string, err error) {
	body, err = render(t.reset, v)
	return resetSubject, body, err
}

// RenderDeleted renderiza la confirmación de baja de cuenta.
func (t *Templates) RenderDeleted(v Vars) (subject, body string, err error) {
	body, err = render(t.deleted, v)
	return deletedSubject, body, err
}

func render(tpl *texttpl.Template, v Vars) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
