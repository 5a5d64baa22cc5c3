package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"use_of_force/internal/domain/notification"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrUnknownTemplate = errors.New("no template configured for notification kind")

// An api key ends with "-{service id}-{secret key}", both uuids.
const uuidLen = 36

// NotifyClient sends templated emails through a GOV.UK Notify compatible API.
type NotifyClient struct {
	client    *resty.Client
	serviceID string
	secret    []byte
	templates map[notification.Kind]string
	now       func() time.Time
}

var _ notification.Client = (*NotifyClient)(nil)

func NewNotifyClient(baseURL, apiKey string, templates map[notification.Kind]string) (*NotifyClient, error) {
	if len(apiKey) < 2*uuidLen+1 {
		return nil, errors.New("notify api key is too short")
	}
	return &NotifyClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		serviceID: apiKey[len(apiKey)-2*uuidLen-1 : len(apiKey)-uuidLen-1],
		secret:    []byte(apiKey[len(apiKey)-uuidLen:]),
		templates: templates,
		now:       time.Now,
	}, nil
}

type sendEmailRequest struct {
	EmailAddress    string            `json:"email_address"`
	TemplateID      string            `json:"template_id"`
	Personalisation map[string]string `json:"personalisation"`
	Reference       string            `json:"reference"`
}

type errorResponse struct {
	StatusCode int `json:"status_code"`
	Errors     []struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *NotifyClient) Send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	templateID, ok := c.templates[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	token, err := c.authToken()
	if err != nil {
		return err
	}

	var apiErr errorResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(sendEmailRequest{
			EmailAddress:    emailAddress,
			TemplateID:      templateID,
			Personalisation: payload.Personalisation(),
			Reference:       ref.String(),
		}).
		SetError(&apiErr).
		Post("/v2/notifications/email")
	if err != nil {
		return fmt.Errorf("error sending %s email: %w", kind, err)
	}
	if res.IsError() {
		if len(apiErr.Errors) > 0 {
			return fmt.Errorf("notify rejected %s email with status %d: %s: %s", kind, res.StatusCode(), apiErr.Errors[0].Error, apiErr.Errors[0].Message)
		}
		return fmt.Errorf("notify rejected %s email with status %d", kind, res.StatusCode())
	}
	return nil
}

// authToken is a short-lived HS256 token: issuer is the service id, signed with the secret key.
func (c *NotifyClient) authToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": c.serviceID,
		"iat": c.now().Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("error signing notify token: %w", err)
	}
	return signed, nil
}
