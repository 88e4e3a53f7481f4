package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sms487/archive/internal/model"
)

const (
	storedTimeFormat  = "2006-01-02 15:04"
	displayTimeFormat = "02 Jan 2006 15:04"
)

// shortDateTimeRx captures the minute-precision prefix of a stored
// timestamp; seconds and the numeric offset tail are dropped for display.
var shortDateTimeRx = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}).*`)

// formatDateTime reformats a stored timestamp to display form after
// shifting by the configured UTC offset. Values that do not look like
// stored timestamps pass through unchanged.
func formatDateTime(dt string, tzOffsetHours int) string {
	m := shortDateTimeRx.FindStringSubmatch(dt)
	if m == nil {
		return dt
	}

	t, err := time.Parse(storedTimeFormat, m[1])
	if err != nil {
		return dt
	}

	return t.Add(time.Duration(tzOffsetHours) * time.Hour).Format(displayTimeFormat)
}

// dress maps a stored document to its display representation.
func dress(msg *model.Message, tzOffsetHours int) model.DisplayMessage {
	messageType := msg.MessageType
	if messageType == "" {
		messageType = "sms"
	}

	printableType := "SMS"
	if messageType == "notification" {
		printableType = "Notification"
	}

	dateTime := formatDateTime(msg.DateTime, tzOffsetHours)
	smsDateTime := dateTime
	if msg.SmsDateTime != "" {
		smsDateTime = formatDateTime(msg.SmsDateTime, tzOffsetHours)
	}

	printableDateTime := dateTime
	if dateTime != smsDateTime {
		printableDateTime = fmt.Sprintf("%s (%s)", dateTime, smsDateTime)
	}

	return model.DisplayMessage{
		DeviceID:             msg.DeviceID,
		Tel:                  msg.Tel,
		MessageType:          messageType,
		PrintableMessageType: printableType,
		DateTime:             dateTime,
		SmsDateTime:          smsDateTime,
		PrintableDateTime:    printableDateTime,
		Text:                 msg.Text,
		Marked:               msg.Marked,
	}
}
