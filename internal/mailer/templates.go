package mailer

import "fmt"

func VerificationEmail(name, link string) (subject, body string) {
	subject = "Verify your Veritas account"
	body = fmt.Sprintf(`Hi %s,

Thanks for signing up. Confirm your email address by opening the link below:

%s

The link expires in 24 hours. If you did not create an account you can ignore this message.
`, name, link)
	return subject, body
}

func PasswordResetEmail(name, link string) (subject, body string) {
	subject = "Reset your Veritas password"
	body = fmt.Sprintf(`Hi %s,

We received a request to reset your password. Choose a new one here:

%s

The link expires in 1 hour. If you did not ask for a reset, no action is needed.
`, name, link)
	return subject, body
}
