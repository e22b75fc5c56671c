package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"

	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// ErrSendFailed envuelve cualquier falla al renderizar o enviar.
var ErrSendFailed = errors.New("email: send failed")

// Templates por defecto. {{.Code}}, {{.Client}} y {{.TTL}} están disponibles.
const (
	verifyText = `Your verification code for {{.Client}} is {{.Code}}.
{{if .TTL}}It expires in {{.TTL}}.
{{end}}`
	verifyHTML = `<p>Your verification code for <b>{{.Client}}</b> is:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p>
{{if .TTL}}<p>It expires in {{.TTL}}.</p>{{end}}`

	resetText = `Use the code {{.Code}} to reset your {{.Client}} password.
{{if .TTL}}It expires in {{.TTL}}.
{{end}}If you did not ask for a reset, ignore this email.
`
	resetHTML = `<p>Use this code to reset your <b>{{.Client}}</b> password:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p>
{{if .TTL}}<p>It expires in {{.TTL}}.</p>{{end}}
<p>If you did not ask for a reset, ignore this email.</p>`
)

// Vars son las variables de los templates.
type Vars struct {
	Client string
	Code   string
	TTL    string
}

// NotifierConfig configura asuntos y TTL mostrado.
type NotifierConfig struct {
	VerifySubject string
	ResetSubject  string
	CodeTTL       time.Duration
}

// Notifier arma y envía los emails de códigos.
type Notifier struct {
	sender Sender
	cfg    NotifierConfig

	verifyHTML *htemplate.Template
	verifyTXT  *ttemplate.Template
	resetHTML  *htemplate.Template
	resetTXT   *ttemplate.Template
}

// NewNotifier crea un Notifier con los templates por defecto.
func NewNotifier(sender Sender, cfg NotifierConfig) *Notifier {
	if cfg.VerifySubject == "" {
		cfg.VerifySubject = "Verify your email"
	}
	if cfg.ResetSubject == "" {
		cfg.ResetSubject = "Reset your password"
	}
	return &Notifier{
		sender:     sender,
		cfg:        cfg,
		verifyHTML: htemplate.Must(htemplate.New("verify_html").Parse(verifyHTML)),
		verifyTXT:  ttemplate.Must(ttemplate.New("verify_txt").Parse(verifyText)),
		resetHTML:  htemplate.Must(htemplate.New("reset_html").Parse(resetHTML)),
		resetTXT:   ttemplate.Must(ttemplate.New("reset_txt").Parse(resetText)),
	}
}

// SendVerificationCode envía el código de verificación de email.
func (n *Notifier) SendVerificationCode(ctx context.Context, to, client, code string) error {
	return n.send(ctx, "verify", to, n.cfg.VerifySubject, n.verifyHTML, n.verifyTXT, n.vars(client, code))
}

// SendPasswordResetCode envía el código de reset de contraseña.
func (n *Notifier) SendPasswordResetCode(ctx context.Context, to, client, code string) error {
	return n.send(ctx, "reset", to, n.cfg.ResetSubject, n.resetHTML, n.resetTXT, n.vars(client, code))
}

func (n *Notifier) vars(client, code string) Vars {
	v := Vars{Client: client, Code: code}
	if n.cfg.CodeTTL > 0 {
		v.TTL = n.cfg.CodeTTL.String()
	}
	return v
}

func (n *Notifier) send(ctx context.Context, kind, to, subject string, h *htemplate.Template, t *ttemplate.Template, v Vars) error {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, v); err != nil {
		return fmt.Errorf("%w: render %s html: %w", ErrSendFailed, kind, err)
	}
	if err := t.Execute(&tb, v); err != nil {
		return fmt.Errorf("%w: render %s text: %w", ErrSendFailed, kind, err)
	}
	if err := n.sender.Send(to, subject, hb.String(), tb.String()); err != nil {
		logger.From(ctx).Warn("email delivery failed", logger.Component("email"), logger.String("template", kind), logger.Err(err))
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}
