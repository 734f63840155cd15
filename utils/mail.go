package utils

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional mail through SendGrid.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewMailer(apiKey, fromName, fromAddress string) *Mailer {
	return newMailer(sendgrid.NewSendClient(apiKey), fromName, fromAddress)
}

func newMailer(client *sendgrid.Client, fromName, fromAddress string) *Mailer {
	return &Mailer{client: client, from: mail.NewEmail(fromName, fromAddress)}
}

func (m *Mailer) Send(ctx context.Context, toName, toAddress, subject, plainText, htmlContent string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toAddress), plainText, htmlContent)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", response.StatusCode, response.Body)
	}

	log.Printf("email %q sent to %s", subject, toAddress)
	return nil
}

// SendWelcome mails a new user after registration.
func (m *Mailer) SendWelcome(ctx context.Context, name, email string) error {
	subject := "Welcome to taskr"
	plainTextContent := WelcomeText(name)
	htmlContent := fmt.Sprintf("<strong>%s</strong>", html.EscapeString(plainTextContent))
	return m.Send(ctx, name, email, subject, plainTextContent, htmlContent)
}

func WelcomeText(name string) string {
	return fmt.Sprintf("Hi %s, thanks for registering. Log in any time to manage your task list.", name)
}
