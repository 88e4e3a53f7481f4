package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sms487/archive/internal/model"
)

func TestFormatDateTime(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		offset   int
		expected string
	}{
		{"full stored form", "2026-08-28 10:00:00 +0000", 3, "28 Aug 2026 13:00"},
		{"without seconds", "2026-08-28 10:00", 3, "28 Aug 2026 13:00"},
		{"zero offset", "2026-08-28 10:00:00 +0000", 0, "28 Aug 2026 10:00"},
		{"negative offset", "2026-01-01 01:30", -2, "31 Dec 2025 23:30"},
		{"not a timestamp passes through", "soon", 3, "soon"},
		{"empty passes through", "", 3, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatDateTime(tc.in, tc.offset))
		})
	}
}

func TestDressDefaultsKindToSMS(t *testing.T) {
	d := dress(&model.Message{
		DeviceID: "phone1",
		Tel:      "900",
		DateTime: "2026-08-28 10:00:00 +0000",
		Text:     "hi",
	}, 0)

	assert.Equal(t, "sms", d.MessageType)
	assert.Equal(t, "SMS", d.PrintableMessageType)
}

func TestDressNotificationType(t *testing.T) {
	d := dress(&model.Message{MessageType: "notification"}, 0)
	assert.Equal(t, "Notification", d.PrintableMessageType)

	d = dress(&model.Message{MessageType: "push"}, 0)
	assert.Equal(t, "SMS", d.PrintableMessageType)
}

func TestDressPrintableDateTimeShowsDivergentSendTime(t *testing.T) {
	d := dress(&model.Message{
		DateTime:    "2026-08-28 10:05:00 +0000",
		SmsDateTime: "2026-08-28 10:00:00 +0000",
	}, 0)

	assert.Equal(t, "28 Aug 2026 10:05", d.DateTime)
	assert.Equal(t, "28 Aug 2026 10:00", d.SmsDateTime)
	assert.Equal(t, "28 Aug 2026 10:05 (28 Aug 2026 10:00)", d.PrintableDateTime)
}

func TestDressPrintableDateTimeCollapsesWhenEqual(t *testing.T) {
	d := dress(&model.Message{
		DateTime:    "2026-08-28 10:05:00 +0000",
		SmsDateTime: "2026-08-28 10:05:30 +0000",
	}, 0)

	// Display precision is minutes, so the parenthetical disappears.
	assert.Equal(t, "28 Aug 2026 10:05", d.PrintableDateTime)
}

func TestDressEmptySmsDateTimeFallsBack(t *testing.T) {
	d := dress(&model.Message{DateTime: "2026-08-28 10:05:00 +0000"}, 0)

	assert.Equal(t, d.DateTime, d.SmsDateTime)
	assert.Equal(t, d.DateTime, d.PrintableDateTime)
}

func TestDressCarriesMarkedFlag(t *testing.T) {
	marked := true
	d := dress(&model.Message{Marked: &marked}, 0)
	assert.Same(t, &marked, d.Marked)

	d = dress(&model.Message{}, 0)
	assert.Nil(t, d.Marked)
}
