package notifxsmtp

import "github.com/Abraxas-365/placement/pkg/errx"

var smtpErrors = errx.NewRegistry("NOTIFX_SMTP")

var (
	ErrDial       = smtpErrors.Register("DIAL", errx.TypeExternal, 502, "Failed to connect to SMTP server")
	ErrSendFailed = smtpErrors.Register("SEND_FAILED", errx.TypeExternal, 500, "SMTP send failed")
)
