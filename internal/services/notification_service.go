package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relink-dev/relink/internal/models"
	pkglogger "github.com/relink-dev/relink/pkg/logger"
)

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content">%s</div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
            <p>If you have any questions, please contact our support team.</p>
        </div>
    </div>
</body>
</html>
`

// NotificationDispatcher composes and sends human-readable emails at each
// lifecycle transition of an email change request. Every send is
// fire-and-forget: delivery failures are logged and never block or fail the
// workflow.
type NotificationDispatcher struct {
	sender EmailSender
	logger *slog.Logger
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(sender EmailSender, logger *slog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		sender: sender,
		logger: logger,
	}
}

// dispatch sends one email in the background with its own timeout, detached
// from the caller's request context.
func (d *NotificationDispatcher) dispatch(to, subject, heading, body string) {
	htmlBody := fmt.Sprintf(emailTemplate, heading, body)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := d.sender.Send(ctx, to, subject, htmlBody); err != nil {
			d.logger.Warn("notification delivery failed",
				slog.String("to", pkglogger.SanitizedEmail(to)),
				slog.String("subject", subject),
				slog.Any("error", err))
		}
	}()
}

// NotifyRequestCreated alerts the current mailbox and, best-effort, the new
// one. The new address' ownership is unverified, so failures there are
// expected and carry no weight.
func (d *NotificationDispatcher) NotifyRequestCreated(req *models.EmailChangeRequest) {
	d.dispatch(req.CurrentEmail,
		"Security alert: email change requested for your account",
		"Email Change Requested",
		fmt.Sprintf(`<p>Someone requested that the email address on your account be changed to a new address.</p>
<div class="warning"><strong>If this was not you</strong>, contact support immediately. No change will be made without administrator review.</div>
<p>The request expires automatically on %s.</p>`, req.ExpiresAt.UTC().Format(time.RFC1123)))

	d.dispatch(req.NewEmail,
		"An account recovery request names this address",
		"Email Change Requested",
		`<p>An account recovery request asks to move an existing account to this email address.</p>
<p>If this was you, no action is needed: an administrator will review the request. If not, you can ignore this email.</p>`)
}

// NotifyApproved confirms the change to both the old and the new address
func (d *NotificationDispatcher) NotifyApproved(req *models.EmailChangeRequest) {
	body := fmt.Sprintf(`<p>Your request to change your account email address was approved on %s.</p>
<p>The account is now associated with the new address.</p>`, time.Now().UTC().Format(time.RFC1123))

	d.dispatch(req.CurrentEmail, "Your account email address was changed", "Email Change Approved", body)
	d.dispatch(req.NewEmail, "Your account email address was changed", "Email Change Approved", body)
}

// NotifyRejected informs the current address only, including reviewer notes
// when present
func (d *NotificationDispatcher) NotifyRejected(req *models.EmailChangeRequest, notes string) {
	body := `<p>Your request to change your account email address was rejected after review.</p>`
	if notes != "" {
		body += fmt.Sprintf(`<p>Reviewer notes: %s</p>`, notes)
	}
	body += `<p>You may submit a new request with additional verification details.</p>`

	d.dispatch(req.CurrentEmail, "Your email change request was rejected", "Email Change Rejected", body)
}
