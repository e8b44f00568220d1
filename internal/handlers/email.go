package handlers

import (
	"context"
	"fmt"

	"github.com/Tiagocys/gamehub/pkg/config"
	"github.com/Tiagocys/gamehub/pkg/email"
	"github.com/Tiagocys/gamehub/pkg/logging"
)

// EmailService sends transactional notifications. All sends are best-effort:
// callers log failures and move on, an unreachable SMTP host must never fail
// a moderation or approval request.
type EmailService struct {
	sender *email.Sender
	logger logging.Logger
}

// NewEmailService creates the email service from SMTP_* environment variables.
func NewEmailService(logger logging.Logger) *EmailService {
	sender := email.NewSender(email.Config{
		Host:     config.GetEnv("SMTP_HOST", "localhost"),
		Port:     config.GetEnv("SMTP_PORT", "587"),
		User:     config.GetEnv("SMTP_USER", ""),
		Password: config.GetEnv("SMTP_PASSWORD", ""),
		From:     config.GetEnv("SMTP_FROM", "no-reply@gimerr.com"),
		FromName: config.GetEnv("SMTP_FROM_NAME", "Gimerr"),
	})
	return &EmailService{sender: sender, logger: logger}
}

// SendGameApproved notifies a submitter their game entered the catalogue.
func (s *EmailService) SendGameApproved(ctx context.Context, to, gameName string) {
	subject := fmt.Sprintf("%s was approved on Gimerr", gameName)
	body := fmt.Sprintf(`
		<h2>Your game was approved!</h2>
		<p><strong>%s</strong> is now part of the Gimerr catalogue and a server
		entry was created for you. You can start publishing listings right away.</p>
	`, gameName)
	s.send(ctx, to, subject, body)
}

// SendReportResolved notifies a reporter their report was handled.
func (s *EmailService) SendReportResolved(ctx context.Context, to, action string) {
	subject := "Your Gimerr report was reviewed"
	body := fmt.Sprintf(`
		<h2>Report reviewed</h2>
		<p>Our moderation team reviewed your report and took action: <strong>%s</strong>.
		Thank you for helping keep the marketplace safe.</p>
	`, action)
	s.send(ctx, to, subject, body)
}

func (s *EmailService) send(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	if err := s.sender.SendMail(ctx, to, subject, body); err != nil {
		s.logger.WithFields(logging.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Warn("Failed to send notification email")
	}
}
