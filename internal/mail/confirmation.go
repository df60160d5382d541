package mail

import "fmt"

// ConfirmationMessage builds the account-confirmation email. The link embeds
// the signed confirmation token and points back at the public base URL.
func ConfirmationMessage(to, username, baseURL, token string) Message {
	link := fmt.Sprintf("%s/api/authentication/confirmed_email/%s", baseURL, token)
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Thanks for signing up. Please confirm your email address by following the
link below:</p>
<p><a href=%q>Confirm your email</a></p>
<p>If you did not create this account you can ignore this message.</p>`,
		username, link,
	)
	return Message{
		To:      to,
		Subject: "Confirm your email",
		Body:    body,
	}
}
