package notifx

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// NewMessageID returns an RFC 5322 Message-ID in the sender's domain.
func NewMessageID(from string) string {
	domain := "localhost"
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndex(addr.Address, "@"); at >= 0 {
			domain = addr.Address[at+1:]
		}
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// ToGomail converts msg into a gomail message carrying messageID.
func ToGomail(msg EmailMessage, from, messageID string) *gomail.Message {
	if msg.From != "" {
		from = msg.From
	}

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetDateHeader("Date", time.Now())

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		m.Attach(a.Filename, settings...)
	}

	return m
}

// RawMIME renders msg as a complete MIME document.
func RawMIME(msg EmailMessage, from, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := ToGomail(msg, from, messageID).WriteTo(&buf); err != nil {
		return nil, notifxErrors.NewWithCause(ErrBuildMessage, err).WithDetail("subject", msg.Subject)
	}
	return buf.Bytes(), nil
}
