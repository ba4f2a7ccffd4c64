package notifxsmtp

import (
	"context"
	"crypto/tls"
	"errors"
	"net/textproto"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"gopkg.in/gomail.v2"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	FromAddress   string
	SkipTLSVerify bool
}

// Dialer opens an SMTP session. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// SMTPProvider implements notifx.EmailSender over an SMTP relay using gomail.
type SMTPProvider struct {
	dialer      Dialer
	fromAddress string
}

// NewSMTPProvider creates a provider that dials cfg.Host for every message.
func NewSMTPProvider(cfg Config) *SMTPProvider {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	if cfg.SkipTLSVerify {
		logx.Warn("notifx/smtp: TLS certificate verification is disabled")
	}
	return NewSMTPProviderWithDialer(d, cfg.FromAddress)
}

// NewSMTPProviderWithDialer creates a provider around an existing dialer.
func NewSMTPProviderWithDialer(d Dialer, fromAddress string) *SMTPProvider {
	return &SMTPProvider{dialer: d, fromAddress: fromAddress}
}

// SendEmail sends msg over a fresh SMTP session and returns its Message-ID.
// 5xx replies from the server are reported as notifx.ErrRejected.
func (p *SMTPProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	so := notifx.ApplySendOptions(opts)
	messageID := so.MessageID
	if messageID == "" {
		messageID = notifx.NewMessageID(p.fromAddress)
	}

	from := msg.From
	if from == "" {
		from = p.fromAddress
	}
	m := notifx.ToGomail(msg, from, messageID)

	s, err := p.dialer.Dial()
	if err != nil {
		return "", smtpErrors.NewWithCause(ErrDial, err)
	}
	defer s.Close()

	if err := s.Send(from, msg.Recipients(), m); err != nil {
		var tp *textproto.Error
		if errors.As(err, &tp) && tp.Code >= 500 {
			return "", notifx.Rejected(err).WithDetail("to", msg.To).WithDetail("smtp_code", tp.Code)
		}
		return "", smtpErrors.NewWithCause(ErrSendFailed, err).WithDetail("to", msg.To)
	}

	return messageID, nil
}

// Verify opens and closes a session to check connectivity and credentials.
func (p *SMTPProvider) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := p.dialer.Dial()
	if err != nil {
		return smtpErrors.NewWithCause(ErrDial, err)
	}
	return s.Close()
}
