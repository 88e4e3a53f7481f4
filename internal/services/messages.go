package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sms487/archive/internal/filter"
	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/queue"
	"github.com/sms487/archive/internal/store"
)

const (
	defaultLimit = 256
	maxTextLen   = 2048
)

var (
	messageTypeRx = regexp.MustCompile(`^\w{3,32}$`)
	dateTimeRx    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}(:\d{2})?(\s[+-]\d+)?$`)
)

// MessageService runs the read and write paths over the store and the
// notification queue.
type MessageService struct {
	store         store.Store
	publisher     queue.Publisher
	tzOffsetHours int
	log           zerolog.Logger
}

func NewMessageService(s store.Store, p queue.Publisher, tzOffsetHours int, log zerolog.Logger) *MessageService {
	return &MessageService{store: s, publisher: p, tzOffsetHours: tzOffsetHours, log: log}
}

// GetMessagesRequest captures the read-path arguments. IDs restricts the
// read to an explicit identity set; DeviceID scopes it otherwise.
type GetMessagesRequest struct {
	Login        string
	DeviceID     string
	Limit        int
	ApplyFilters bool
	IDs          []primitive.ObjectID
}

// GetMessages returns deduplicated, display-ready messages, newest first.
func (s *MessageService) GetMessages(ctx context.Context, req GetMessagesRequest) ([]model.DisplayMessage, error) {
	if req.Login == "" {
		return nil, fmt.Errorf("%w: there is no login", model.ErrValidation)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	q := store.MessageQuery{
		Login:    req.Login,
		DeviceID: req.DeviceID,
		IDs:      req.IDs,
		Limit:    limit,
	}

	if req.ApplyFilters {
		rules, err := s.store.Filters().List(ctx, req.Login)
		if err != nil {
			return nil, err
		}
		ruleVals := make([]model.FilterRule, 0, len(rules))
		for _, r := range rules {
			ruleVals = append(ruleVals, *r)
		}
		compiled := filter.Compile(ruleVals)
		q.Exclusion = compiled.Exclusion
		q.Mark = compiled.Mark
	}

	msgs, err := s.store.Messages().Find(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]model.DisplayMessage, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, dress(msg, s.tzOffsetHours))
	}
	return result, nil
}

// AddMessages validates and persists a batch of items, then re-reads the
// inserted documents through the retrieval pipeline and publishes them to
// the notification queue best-effort. Returns the count of inserted items.
// Any validation failure aborts the whole call before anything is written.
func (s *MessageService) AddMessages(ctx context.Context, login string, items []model.MessageInput) (int, error) {
	if login == "" {
		return 0, fmt.Errorf("%w: there is no login", model.ErrValidation)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: there are no messages", model.ErrValidation)
	}

	msgs := make([]*model.Message, 0, len(items))
	for _, item := range items {
		msg, err := validateMessage(login, item)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}

	ids, err := s.store.Messages().Insert(ctx, msgs)
	if err != nil {
		return 0, err
	}

	display, err := s.GetMessages(ctx, GetMessagesRequest{
		Login:        login,
		Limit:        len(ids),
		ApplyFilters: true,
		IDs:          ids,
	})
	if err != nil {
		// The insert already succeeded; the notification is best-effort.
		s.log.Warn().Err(err).Msg("Re-reading inserted messages failed")
		return len(ids), nil
	}

	queue.BestEffort(ctx, s.publisher, display, s.log)

	return len(ids), nil
}

// DeviceIDs lists the owner's device identifiers, sorted.
func (s *MessageService) DeviceIDs(ctx context.Context, login string) ([]string, error) {
	if login == "" {
		return nil, fmt.Errorf("%w: there is no login", model.ErrValidation)
	}
	return s.store.Messages().DeviceIDs(ctx, login)
}

// validateMessage checks one input item. Rules run in a fixed order and the
// first failing rule wins, so error messages are stable for clients.
func validateMessage(login string, in model.MessageInput) (*model.Message, error) {
	messageType := strings.TrimSpace(in.MessageType)
	deviceID := strings.TrimSpace(in.DeviceID)
	tel := strings.TrimSpace(in.Tel)
	dateTime := strings.TrimSpace(in.DateTime)
	smsDateTime := strings.TrimSpace(in.SmsDateTime)
	if smsDateTime == "" {
		smsDateTime = dateTime
	}
	text := strings.TrimSpace(in.Text)

	switch {
	case messageType == "":
		return nil, validationError("There is no message type")
	case !messageTypeRx.MatchString(messageType):
		return nil, validationError("Wrong message type format")
	case deviceID == "":
		return nil, validationError("There is no device ID")
	case tel == "":
		return nil, validationError("There is no tel")
	case dateTime == "":
		return nil, validationError("There is no date_time")
	case smsDateTime == "":
		return nil, validationError("There is no sms_date_time")
	case !dateTimeRx.MatchString(dateTime):
		return nil, validationError("date_time is incorrect")
	case !dateTimeRx.MatchString(smsDateTime):
		return nil, validationError("sms_date_time is incorrect")
	case text == "":
		return nil, validationError("There is no text")
	case utf8.RuneCountInString(text) > maxTextLen:
		return nil, validationError("Text is too long")
	}

	return &model.Message{
		Login:       login,
		MessageType: messageType,
		DeviceID:    deviceID,
		Tel:         tel,
		DateTime:    dateTime,
		SmsDateTime: smsDateTime,
		Text:        text,
	}, nil
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, msg)
}
