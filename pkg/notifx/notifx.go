package notifx

import (
	"context"
	"net/mail"
)

// EmailSender sends a single email and returns the provider message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) (string, error)
}

// Verifier is implemented by providers that can check their transport
// without sending anything.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Client is the main entry point for sending notifications.
type Client struct {
	provider EmailSender
}

// NewClient creates a new notification client.
func NewClient(provider EmailSender) *Client {
	return &Client{provider: provider}
}

// SendEmail validates msg and sends it through the configured provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) (string, error) {
	if c.provider == nil {
		return "", notifxErrors.New(ErrNoProvider)
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// Verify checks the transport when the provider supports it.
func (c *Client) Verify(ctx context.Context) error {
	v, ok := c.provider.(Verifier)
	if !ok {
		return nil
	}
	if err := v.Verify(ctx); err != nil {
		return notifxErrors.NewWithCause(ErrVerifyFailed, err)
	}
	return nil
}

// Validate rejects messages no provider could deliver.
func (m EmailMessage) Validate() error {
	if len(m.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return notifxErrors.NewWithCause(ErrInvalidMessage, err).
				WithDetail("reason", "invalid recipient").
				WithDetail("to", to)
		}
	}
	if m.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	return nil
}
