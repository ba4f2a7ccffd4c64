package notifx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) SendEmail(context.Context, EmailMessage, ...Option) (string, error) {
	s.calls++
	return "msg-1", s.err
}

func TestClient_SendEmailValidates(t *testing.T) {
	stub := &stubSender{}
	c := NewClient(stub)

	_, err := c.SendEmail(context.Background(), EmailMessage{Subject: "hi"})
	assert.True(t, errx.IsCode(err, ErrInvalidMessage))

	_, err = c.SendEmail(context.Background(), EmailMessage{To: []string{"not-an-email"}, Subject: "hi"})
	assert.True(t, errx.IsCode(err, ErrInvalidMessage))

	_, err = c.SendEmail(context.Background(), EmailMessage{To: []string{"a@b.edu"}})
	assert.True(t, errx.IsCode(err, ErrInvalidMessage))

	assert.Zero(t, stub.calls)

	id, err := c.SendEmail(context.Background(), EmailMessage{To: []string{"a@b.edu"}, Subject: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, 1, stub.calls)
}

func TestClient_VerifyWithoutVerifier(t *testing.T) {
	assert.NoError(t, NewClient(&stubSender{}).Verify(context.Background()))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(Rejected(errors.New("550 no such user"))))
	assert.False(t, IsTransient(notifxErrors.New(ErrInvalidMessage)))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.True(t, IsTransient(notifxErrors.NewWithCause(ErrSendFailed, errors.New("421"))))
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID("Placement Cell <placements@college.edu>")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@college.edu>"))

	assert.True(t, strings.HasSuffix(NewMessageID("garbage"), "@localhost>"))
}

func TestRawMIME(t *testing.T) {
	raw, err := RawMIME(EmailMessage{
		To:       []string{"student@college.edu"},
		Subject:  "Interview schedule",
		HTMLBody: "<p>Round 1</p>",
		Attachments: []Attachment{
			{Filename: "schedule.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
		},
	}, "placements@college.edu", "<id-1@college.edu>")
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "Subject: Interview schedule")
	assert.Contains(t, s, "Message-ID: <id-1@college.edu>")
	assert.Contains(t, s, "To: student@college.edu")
	assert.Contains(t, s, "schedule.pdf")
	assert.Contains(t, s, "application/pdf")
}

func TestRecipients(t *testing.T) {
	m := EmailMessage{To: []string{"a@x.io"}, CC: []string{"b@x.io"}, BCC: []string{"c@x.io"}}
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, m.Recipients())
}
