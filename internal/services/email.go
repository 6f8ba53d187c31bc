package services

import (
	"context"
	"fmt"
	"strings"

	"eventhub/internal/domain"
)

// emailNotificationSink delivers notification requests as emails to the recipient.
type emailNotificationSink struct {
	userRepo domain.UserRepository
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailNotificationSink returns a NotificationSink that resolves the
// recipient's address and sends the "notification" template through mailer.
func NewEmailNotificationSink(userRepo domain.UserRepository, mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.NotificationSink {
	return &emailNotificationSink{userRepo: userRepo, mailer: mailer, renderer: renderer}
}

func (s *emailNotificationSink) Name() string { return "email" }

// Deliver renders and sends one notification email.
func (s *emailNotificationSink) Deliver(ctx context.Context, req domain.NotificationRequest) error {
	user, err := s.userRepo.GetByID(ctx, req.RecipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("recipient %s has no email: %w", req.RecipientID, domain.ErrInvalidInput)
	}
	data := &domain.NotificationEmailData{
		Email:          user.Email,
		FirstName:      user.FirstName,
		Message:        req.Message,
		Type:           req.Type,
		RelatedEventID: req.RelatedEventID,
	}
	subject, htmlBody, textBody, err := s.renderer.Render("notification", data)
	if err != nil {
		return fmt.Errorf("failed to render notification template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}
