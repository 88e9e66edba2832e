package services

import (
	"context"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"sparkshare-api/config"
	"sparkshare-api/models"
)

// InvitationNotifier tells the addressee of an invitation about it. Delivery
// is best effort: a failure never undoes the invitation.
type InvitationNotifier interface {
	NotifyInvitation(ctx context.Context, invitation *models.FriendInvitation) error
}

// NoopNotifier is used when no SMTP server is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyInvitation(context.Context, *models.FriendInvitation) error {
	return nil
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	config *config.Config
	dialer mailSender
	log    logrus.FieldLogger
}

func NewEmailService(cfg *config.Config, log logrus.FieldLogger) *EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)

	return &EmailService{
		config: cfg,
		dialer: dialer,
		log:    log,
	}
}

// NewInvitationNotifier picks the mailer when SMTP is configured.
func NewInvitationNotifier(cfg *config.Config, log logrus.FieldLogger) InvitationNotifier {
	if !cfg.MailEnabled() {
		log.Info("SMTP_HOST not set, invitation mail disabled")
		return NoopNotifier{}
	}
	return NewEmailService(cfg, log)
}

func (es *EmailService) NotifyInvitation(ctx context.Context, invitation *models.FriendInvitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := es.buildInvitationMessage(invitation)
	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}

	es.log.WithFields(logrus.Fields{
		"invitation_id": invitation.ID,
		"to":            invitation.ToEmail,
	}).Info("invitation email sent")
	return nil
}

func (es *EmailService) buildInvitationMessage(invitation *models.FriendInvitation) *gomail.Message {
	sender := invitation.FromUserName
	if sender == "" {
		sender = invitation.FromUserEmail
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", invitation.ToEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s invited you to be friends on %s", sender, es.config.FromName))

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Friend invitation</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .btn { display: inline-block; background: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s wants to be your friend</h2>
        <p>%s (%s) invited you to connect. Friends can send each other items from any spark.</p>
        <p><a class="btn" href="%s">Open %s</a></p>
        <p><small>If you don't know this person you can ignore this email.</small></p>
    </div>
</body>
</html>`,
		html.EscapeString(sender),
		html.EscapeString(sender),
		html.EscapeString(invitation.FromUserEmail),
		html.EscapeString(es.config.AppURL),
		html.EscapeString(es.config.FromName),
	)

	textBody := fmt.Sprintf("%s (%s) invited you to be friends. Open %s to respond.",
		sender, invitation.FromUserEmail, es.config.AppURL)

	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)
	return m
}
