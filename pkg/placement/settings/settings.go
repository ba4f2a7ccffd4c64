package settings

import (
	"context"

	"github.com/Abraxas-365/placement/pkg/placement"
)

// Settings are the system-wide notification toggles.
type Settings struct {
	EmailEnabled            bool `db:"email_enabled" json:"email_enabled"`
	SMSEnabled              bool `db:"sms_enabled" json:"sms_enabled"`
	PushEnabled             bool `db:"push_enabled" json:"push_enabled"`
	NotifyApplicationStatus bool `db:"notify_application_status" json:"notify_application_status"`
	NotifyNewDrive          bool `db:"notify_new_drive" json:"notify_new_drive"`
	NotifyAccount           bool `db:"notify_account" json:"notify_account"`
}

// Defaults enables email and every category.
func Defaults() Settings {
	return Settings{
		EmailEnabled:            true,
		NotifyApplicationStatus: true,
		NotifyNewDrive:          true,
		NotifyAccount:           true,
	}
}

// ChannelEnabled reports the global toggle for c.
func (s Settings) ChannelEnabled(c placement.Channel) bool {
	switch c {
	case placement.ChannelEmail:
		return s.EmailEnabled
	case placement.ChannelSMS:
		return s.SMSEnabled
	case placement.ChannelPush:
		return s.PushEnabled
	}
	return false
}

// CategoryEnabled reports the toggle gating events of category c.
func (s Settings) CategoryEnabled(c placement.Category) bool {
	switch c {
	case placement.CategoryApplicationStatus:
		return s.NotifyApplicationStatus
	case placement.CategoryNewDrive:
		return s.NotifyNewDrive
	case placement.CategoryAccount:
		return s.NotifyAccount
	}
	return false
}

// Allows reports whether event may be sent on channel: both the channel
// toggle and the event's category toggle must be on.
func (s Settings) Allows(c placement.Channel, event placement.EventType) bool {
	return s.ChannelEnabled(c) && s.CategoryEnabled(event.Category())
}

// Provider reads the current settings.
type Provider interface {
	Current(ctx context.Context) (Settings, error)
}

// Static is a Provider returning fixed settings.
type Static Settings

func (s Static) Current(context.Context) (Settings, error) { return Settings(s), nil }
