package placement

import "strings"

// EventType names a lifecycle event that produces a notification.
type EventType string

const (
	EventRegistrationWelcome    EventType = "registration-welcome"
	EventProfileIncomplete      EventType = "profile-incomplete"
	EventApplicationSubmitted   EventType = "application-submitted"
	EventApplicationUnderReview EventType = "application-under-review"
	EventApplicationShortlisted EventType = "application-shortlisted"
	EventApplicationSelected    EventType = "application-selected"
	EventApplicationRejected    EventType = "application-rejected"
	EventApplicationOnHold      EventType = "application-on-hold"
	EventNewDrivePublished      EventType = "new-drive-published"
	EventDriveDeadlineReminder  EventType = "drive-deadline-reminder"
)

// EventTypes lists every known event.
var EventTypes = []EventType{
	EventRegistrationWelcome,
	EventProfileIncomplete,
	EventApplicationSubmitted,
	EventApplicationUnderReview,
	EventApplicationShortlisted,
	EventApplicationSelected,
	EventApplicationRejected,
	EventApplicationOnHold,
	EventNewDrivePublished,
	EventDriveDeadlineReminder,
}

// Category groups events under one suppression toggle.
type Category string

const (
	CategoryApplicationStatus Category = "application_status"
	CategoryNewDrive          Category = "new_drive"
	CategoryAccount           Category = "account"
)

func (e EventType) IsValid() bool {
	for _, known := range EventTypes {
		if e == known {
			return true
		}
	}
	return false
}

// Category returns the settings toggle that gates e.
func (e EventType) Category() Category {
	switch {
	case strings.HasPrefix(string(e), "application-"):
		return CategoryApplicationStatus
	case e == EventNewDrivePublished, e == EventDriveDeadlineReminder:
		return CategoryNewDrive
	default:
		return CategoryAccount
	}
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return c, nil
	}
	return "", ErrInvalidChannel().WithDetail("channel", s)
}

// Implemented reports whether a transport exists for c.
func (c Channel) Implemented() bool { return c == ChannelEmail }
