package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendVerificationEmail(toEmail, setupURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Set up your Cardlink account"
	html := fmt.Sprintf(`
		<h2>Welcome to Cardlink!</h2>
		<p>An account was created for you.</p>
		<p>Click the link below to set your password and complete your profile:</p>
		<p><a href="%s" style="background-color: #2563eb; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Set up account</a></p>
		<p>If you did not expect this email, please ignore it.</p>
	`, setupURL)

	text := fmt.Sprintf("An account was created for you. Set your password and complete your profile here: %s", setupURL)

	return m.sendEmail(toEmail, subject, text, html)
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, resetURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Reset your Cardlink password"
	html := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Click the link below to choose a new password:</p>
		<p><a href="%s" style="background-color: #2563eb; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset password</a></p>
		<p>This link will expire in 10 minutes.</p>
		<p>If you did not request a reset, you can safely ignore this email.</p>
	`, resetURL)

	text := fmt.Sprintf("Reset your password by clicking this link: %s\n\nThe link expires in 10 minutes.", resetURL)

	return m.sendEmail(toEmail, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
