package notifxses

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	sendIn  *ses.SendEmailInput
	rawIn   *ses.SendRawEmailInput
	err     error
	quotaOK bool
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.sendIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func (f *fakeSES) SendRawEmail(_ context.Context, in *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.rawIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{MessageId: aws.String("ses-raw-1")}, nil
}

func (f *fakeSES) GetSendQuota(context.Context, *ses.GetSendQuotaInput, ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error) {
	if !f.quotaOK {
		return nil, errors.New("invalid credentials")
	}
	return &ses.GetSendQuotaOutput{}, nil
}

func TestSESProvider_SendEmail(t *testing.T) {
	api := &fakeSES{}
	p := NewSESProvider(api, "placements@college.edu")

	id, err := p.SendEmail(context.Background(), notifx.EmailMessage{
		To:       []string{"student@college.edu"},
		Subject:  "New drive",
		HTMLBody: "<p>Acme is hiring</p>",
	}, notifx.WithConfigID("placement"), notifx.WithTags(map[string]string{"event": "drive-created"}))
	require.NoError(t, err)

	assert.Equal(t, "ses-1", id)
	require.NotNil(t, api.sendIn)
	assert.Equal(t, "placements@college.edu", aws.ToString(api.sendIn.Source))
	assert.Equal(t, "placement", aws.ToString(api.sendIn.ConfigurationSetName))
	assert.Len(t, api.sendIn.Tags, 1)
	assert.Nil(t, api.rawIn)
}

func TestSESProvider_AttachmentsUseRawEmail(t *testing.T) {
	api := &fakeSES{}
	p := NewSESProvider(api, "placements@college.edu")

	id, err := p.SendEmail(context.Background(), notifx.EmailMessage{
		To:          []string{"student@college.edu"},
		Subject:     "Offer letter",
		HTMLBody:    "<p>Attached</p>",
		Attachments: []notifx.Attachment{{Filename: "offer.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ses-raw-1", id)
	require.NotNil(t, api.rawIn)
	assert.Contains(t, string(api.rawIn.RawMessage.Data), "offer.pdf")
	assert.Equal(t, []string{"student@college.edu"}, api.rawIn.Destinations)
}

func TestSESProvider_RejectedIsPermanent(t *testing.T) {
	api := &fakeSES{err: &types.MessageRejected{Message: aws.String("Email address is not verified")}}
	p := NewSESProvider(api, "placements@college.edu")

	_, err := p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"x@y.z"}, Subject: "s"})
	assert.True(t, errx.IsCode(err, notifx.ErrRejected))
	assert.False(t, notifx.IsTransient(err))
}

func TestSESProvider_OtherErrorsAreTransient(t *testing.T) {
	api := &fakeSES{err: errors.New("throttled")}
	p := NewSESProvider(api, "placements@college.edu")

	_, err := p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"x@y.z"}, Subject: "s"})
	assert.True(t, errx.IsCode(err, ErrSendFailed))
	assert.True(t, notifx.IsTransient(err))
}

func TestSESProvider_Verify(t *testing.T) {
	assert.Error(t, NewSESProvider(&fakeSES{}, "a@b.c").Verify(context.Background()))
	assert.NoError(t, NewSESProvider(&fakeSES{quotaOK: true}, "a@b.c").Verify(context.Background()))
}
