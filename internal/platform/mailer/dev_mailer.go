package mailer

import (
	"github.com/diagnosis/cardlink/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationEmail(toEmail, setupURL string) error {
	logger.Info("[DEV MAIL] Account setup email",
		"to", toEmail,
		"setup_url", setupURL,
	)
	return nil
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, resetURL string) error {
	logger.Info("[DEV MAIL] Password reset email",
		"to", toEmail,
		"reset_url", resetURL,
	)
	return nil
}
