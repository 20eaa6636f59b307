package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/freshmarket/freshmarket-api/internal/logging"
)

// Service sends transactional mail over SMTP. All send methods are
// designed to be called in a goroutine; callers decide whether a
// failure matters.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	clientURL    string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, fromEmail, clientURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    fromEmail,
		clientURL:    clientURL,
	}
}

// SendVerificationEmail sends the 6-digit code the user types back in.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, code string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(verificationTemplate, map[string]string{"Code": code})
	if err != nil {
		logger.Error("failed to render verification email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Verify Your Email", body); err != nil {
		logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendWelcomeEmail greets a freshly verified user.
func (s *Service) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(welcomeTemplate, map[string]string{"Name": name})
	if err != nil {
		logger.Error("failed to render welcome email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Welcome to FreshMarket", body); err != nil {
		logger.Error("failed to send welcome email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("welcome email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends the reset link embedding the token.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	logger := logging.GetLoggerFromContext(ctx)

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.clientURL, resetToken)
	body, err := render(passwordResetTemplate, map[string]string{"ResetURL": resetURL})
	if err != nil {
		logger.Error("failed to render password reset email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset Your Password", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

// SendResetSuccessEmail confirms a completed password reset.
func (s *Service) SendResetSuccessEmail(ctx context.Context, toEmail string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(resetSuccessTemplate, nil)
	if err != nil {
		logger.Error("failed to render reset success email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Password Reset Successful", body); err != nil {
		logger.Error("failed to send reset success email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("reset success email sent", "email", toEmail)
	return nil
}

// ProductDetails feeds the product-created notice sent to farmers.
type ProductDetails struct {
	Name     string
	Category string
	Price    string
	Quantity int
}

// SendProductCreatedEmail notifies a farmer their listing went live.
func (s *Service) SendProductCreatedEmail(ctx context.Context, toEmail string, details ProductDetails) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(productCreatedTemplate, details)
	if err != nil {
		logger.Error("failed to render product created email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Your Product Has Been Created Successfully", body); err != nil {
		logger.Error("failed to send product created email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("product created email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
