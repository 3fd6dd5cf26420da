package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/dimitrije/washdesk-api/internal/config"
	"github.com/dimitrije/washdesk-api/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

// Send is a no-op when SMTP is not configured.
func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid mail header")
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendInvite tells an invited address to sign in with Google. The invite is
// claimed by signing in, so the mail carries no token.
func (s *EmailService) SendInvite(to, inviterName string, role models.Role, signInURL string) error {
	if role == "" {
		role = models.RoleEmployee
	}
	roleName := strings.ReplaceAll(string(role), "_", " ")

	subject := "You have been invited to WashDesk"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>WashDesk invitation</h2>
			<p>Hi,</p>
			<p><strong>%s</strong> has invited you to WashDesk as <strong>%s</strong>.</p>
			<p><a href="%s">Sign in with Google</a> using this email address to get started.</p>
		</body>
		</html>
	`, html.EscapeString(inviterName), html.EscapeString(roleName), html.EscapeString(signInURL))

	return s.Send(to, subject, body)
}
