package infra

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/jrrjunior25/pdv-fiscal/internal/config"
)

// Mailer delivers transactional mail (DANFE receipts, alerts) over plain
// SMTP auth. Credentials come from config; an empty host disables sending.
type Mailer struct {
	cfg *config.Config
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendDocument mails the given body to the customer, attaching the DANFE
// PDF when a path is provided.
func (m *Mailer) SendDocument(to, subject, body, pdfPath string) error {
	if m.cfg.SMTPHost == "" {
		return fmt.Errorf("mailer: SMTP não configurado")
	}

	msg := email.NewEmail()
	msg.From = m.cfg.SMTPUser
	msg.To = []string{to}
	msg.Subject = subject
	msg.Text = []byte(body)
	if pdfPath != "" {
		if _, err := msg.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: anexar PDF: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	return msg.Send(addr, auth)
}
