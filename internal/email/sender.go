package email

import (
	"tradehub_backend/internal/config"

	"gopkg.in/gomail.v2"
)

// Sender отправляет письма. Реализация подменяется в тестах.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type GomailSender struct {
	cfg *config.Config
}

func NewGomailSender(cfg *config.Config) *GomailSender {
	return &GomailSender{cfg: cfg}
}

func (s *GomailSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.Email.FromEmail, s.cfg.Email.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(
		s.cfg.Email.SMTPHost,
		s.cfg.Email.SMTPPort,
		s.cfg.Email.SMTPUsername,
		s.cfg.Email.SMTPPassword,
	)

	return d.DialAndSend(m)
}

// NoopSender используется, когда SMTP не сконфигурирован
type NoopSender struct{}

func (NoopSender) Send(to, subject, htmlBody string) error { return nil }
