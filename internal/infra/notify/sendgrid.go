package notify

import (
	"context"
	"fmt"

	"use_of_force/internal/domain/notification"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Use of force"

// SendGridClient sends through SendGrid dynamic templates, personalised with the same fields as Notify.
type SendGridClient struct {
	client    *sendgrid.Client
	from      string
	templates map[notification.Kind]string
}

var _ notification.Client = (*SendGridClient)(nil)

// NewSendGridClient talks to the public SendGrid API unless host is set.
func NewSendGridClient(apiKey, from, host string, templates map[notification.Kind]string) *SendGridClient {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.BaseURL = host + "/v3/mail/send"
	}
	return &SendGridClient{client: client, from: from, templates: templates}
}

func (c *SendGridClient) Send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	templateID, ok := c.templates[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(payload.RecipientName, emailAddress))
	for key, value := range payload.Personalisation() {
		p.SetDynamicTemplateData(key, value)
	}
	p.SetCustomArg("reference", ref.String())

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(senderName, c.from))
	message.SetTemplateID(templateID)
	message.AddPersonalizations(p)

	res, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending %s email: %w", kind, err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected %s email with status %d: %s", kind, res.StatusCode, res.Body)
	}
	return nil
}
