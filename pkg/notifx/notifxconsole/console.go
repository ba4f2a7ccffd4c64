package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/notifx"
)

// ConsoleProvider prints emails to the terminal via logx. Intended for development and testing.
type ConsoleProvider struct {
	fromAddress string
}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider(fromAddress string) *ConsoleProvider {
	return &ConsoleProvider{fromAddress: fromAddress}
}

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	from := msg.From
	if from == "" {
		from = p.fromAddress
	}
	messageID := notifx.ApplySendOptions(opts).MessageID
	if messageID == "" {
		messageID = notifx.NewMessageID(from)
	}

	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}

	logx.WithFields(logx.Fields{
		"from":        from,
		"to":          strings.Join(msg.To, ", "),
		"subject":     msg.Subject,
		"message_id":  messageID,
		"attachments": strings.Join(names, ", "),
	}).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		logx.Debugf("notifx/console: html body:\n%s", msg.HTMLBody)
	}

	return messageID, nil
}
