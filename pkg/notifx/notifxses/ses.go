package notifxses

import (
	"context"
	"errors"

	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client the provider calls.
type SESAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
	GetSendQuota(ctx context.Context, in *ses.GetSendQuotaInput, optFns ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error)
}

// SESProvider implements notifx.EmailSender using AWS SES. Messages with
// attachments go through SendRawEmail with a gomail-built MIME body.
type SESProvider struct {
	client      SESAPI
	fromAddress string
}

// NewSESProvider creates a new SES email provider.
func NewSESProvider(client SESAPI, fromAddress string) *SESProvider {
	return &SESProvider{
		client:      client,
		fromAddress: fromAddress,
	}
}

// SendEmail sends a single email via SES.
func (p *SESProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	so := notifx.ApplySendOptions(opts)
	if len(msg.Attachments) > 0 {
		return p.sendRaw(ctx, msg, so)
	}

	from := msg.From
	if from == "" {
		from = p.fromAddress
	}

	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: body,
		},
		Tags: messageTags(so.Tags),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if so.ConfigID != "" {
		input.ConfigurationSetName = aws.String(so.ConfigID)
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", classify(err, msg)
	}
	return aws.ToString(out.MessageId), nil
}

func (p *SESProvider) sendRaw(ctx context.Context, msg notifx.EmailMessage, so notifx.SendOptions) (string, error) {
	messageID := so.MessageID
	if messageID == "" {
		messageID = notifx.NewMessageID(p.fromAddress)
	}
	raw, err := notifx.RawMIME(msg, p.fromAddress, messageID)
	if err != nil {
		return "", err
	}

	input := &ses.SendRawEmailInput{
		Destinations: msg.Recipients(),
		RawMessage:   &types.RawMessage{Data: raw},
		Tags:         messageTags(so.Tags),
	}
	if so.ConfigID != "" {
		input.ConfigurationSetName = aws.String(so.ConfigID)
	}

	out, err := p.client.SendRawEmail(ctx, input)
	if err != nil {
		return "", classify(err, msg)
	}
	return aws.ToString(out.MessageId), nil
}

// Verify checks credentials and region by reading the send quota.
func (p *SESProvider) Verify(ctx context.Context) error {
	if _, err := p.client.GetSendQuota(ctx, &ses.GetSendQuotaInput{}); err != nil {
		return sesErrors.NewWithCause(ErrQuota, err)
	}
	return nil
}

func classify(err error, msg notifx.EmailMessage) error {
	var (
		rejected    *types.MessageRejected
		unverified  *types.MailFromDomainNotVerifiedException
		noConfigSet *types.ConfigurationSetDoesNotExistException
	)
	if errors.As(err, &rejected) || errors.As(err, &unverified) || errors.As(err, &noConfigSet) {
		return notifx.Rejected(err).WithDetail("to", msg.To).WithDetail("subject", msg.Subject)
	}
	return sesErrors.NewWithCause(ErrSendFailed, err).
		WithDetail("to", msg.To).
		WithDetail("subject", msg.Subject)
}

func messageTags(tags map[string]string) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]types.MessageTag, 0, len(tags))
	for k, v := range tags {
		out = append(out, types.MessageTag{Name: aws.String(k), Value: aws.String(v)})
	}
	return out
}
