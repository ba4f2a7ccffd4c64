package notifxses

import "github.com/Abraxas-365/placement/pkg/errx"

var sesErrors = errx.NewRegistry("NOTIFX_SES")

var (
	ErrSendFailed = sesErrors.Register("SEND_FAILED", errx.TypeExternal, 500, "SES send email failed")
	ErrQuota      = sesErrors.Register("QUOTA", errx.TypeExternal, 502, "SES send quota lookup failed")
)
