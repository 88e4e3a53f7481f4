package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one archived text unit. DateTime is the instant the item was
// received by the device, SmsDateTime the original timestamp carried by the
// message; the two differ for delayed forwards. Created is assigned at
// insertion and drives retention.
type Message struct {
	ID          primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Login       string             `json:"-" bson:"login"`
	DeviceID    string             `json:"device_id" bson:"device_id"`
	Tel         string             `json:"tel" bson:"tel"`
	MessageType string             `json:"message_type" bson:"message_type"`
	DateTime    string             `json:"date_time" bson:"date_time"`
	SmsDateTime string             `json:"sms_date_time" bson:"sms_date_time"`
	Text        string             `json:"text" bson:"text"`
	Created     time.Time          `json:"-" bson:"created"`
	Marked      *bool              `json:"marked,omitempty" bson:"marked,omitempty"`
}

// MessageInput is one item of an add-messages request before validation.
type MessageInput struct {
	MessageType string `json:"message_type"`
	DeviceID    string `json:"device_id"`
	Tel         string `json:"tel"`
	DateTime    string `json:"date_time"`
	SmsDateTime string `json:"sms_date_time"`
	Text        string `json:"text"`
}

// DisplayMessage is the dressed form returned by reads and published to the
// notification queue.
type DisplayMessage struct {
	DeviceID             string `json:"device_id"`
	Tel                  string `json:"tel"`
	MessageType          string `json:"message_type"`
	PrintableMessageType string `json:"printable_message_type"`
	DateTime             string `json:"date_time"`
	SmsDateTime          string `json:"sms_date_time"`
	PrintableDateTime    string `json:"printable_date_time"`
	Text                 string `json:"text"`
	Marked               *bool  `json:"marked,omitempty"`
}

// FilterRule is a per-owner predicate with an action. Op combines the
// non-empty match fields; Action decides between exclusion and annotation.
type FilterRule struct {
	ID       primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Login    string             `json:"-" bson:"login"`
	Op       string             `json:"op" bson:"op"`
	Tel      string             `json:"tel" bson:"tel"`
	DeviceID string             `json:"device_id" bson:"device_id"`
	Text     string             `json:"text" bson:"text"`
	Action   string             `json:"action" bson:"action"`
	Created  time.Time          `json:"-" bson:"created"`
}

// FilterRuleView is the export/import representation of a rule.
type FilterRuleView struct {
	ID       string `json:"id"`
	Op       string `json:"op"`
	Tel      string `json:"tel"`
	DeviceID string `json:"device_id"`
	Text     string `json:"text"`
	Action   string `json:"action"`
}

// Filter rule enums.
const (
	OpAnd = "and"
	OpOr  = "or"

	ActionHide = "hide"
	ActionMark = "mark"
)

// HasMatchFields reports whether at least one match field is non-empty.
// A rule without any is meaningless and is deleted instead of saved.
func (v FilterRuleView) HasMatchFields() bool {
	return v.Tel != "" || v.DeviceID != "" || v.Text != ""
}
