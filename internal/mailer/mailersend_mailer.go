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

func (m *MailerSendClient) SendConfirmationCode(toEmail, firstName, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Confirm your membership"
	html := fmt.Sprintf(`
		<h2>Welcome!</h2>
		<p>Hi %s,</p>
		<p>Your membership confirmation code is: <strong style="font-size: 24px; color: #4CAF50;">%s</strong></p>
		<p>Enter this code to confirm your email address.</p>
		<p>This code will expire in 24 hours.</p>
		<p>If you didn't register with us, please ignore this email.</p>
	`, firstName, code)

	text := fmt.Sprintf("Hi %s,\n\nYour membership confirmation code is: %s\n\nThis code will expire in 24 hours.", firstName, code)

	return m.sendEmail(toEmail, firstName, subject, text, html)
}

func (m *MailerSendClient) SendWelcome(toEmail, firstName string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Welcome aboard!"
	html := fmt.Sprintf(`
		<h2>Your membership is confirmed</h2>
		<p>Hi %s,</p>
		<p>Your email address has been confirmed. You can now set your password and sign in.</p>
		<p>We're glad to have you with us.</p>
	`, firstName)

	text := fmt.Sprintf("Hi %s,\n\nYour email address has been confirmed. You can now set your password and sign in.", firstName)

	return m.sendEmail(toEmail, firstName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
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
