package infra

import (
	"fmt"
	"net/smtp"

	"github.com/zolijavos/KGC-3-sub017/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers the end-of-day report mails, typically a short body with
// the rendered Z-report PDF attached.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Send delivers one plain-text mail. pdfPath may be empty; when set the file
// is attached, and a missing file is an error rather than a mail without it.
func (m *Mailer) Send(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", pdfPath, err)
		}
	}
	return e.Send(m.addr, smtp.PlainAuth("", m.user, m.password, m.host))
}
