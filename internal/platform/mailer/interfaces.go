package mailer

type Service interface {
	SendVerificationEmail(toEmail, setupURL string) error
	SendPasswordResetEmail(toEmail, resetURL string) error
}
