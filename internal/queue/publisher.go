// Package queue publishes new-message notifications to the downstream queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"github.com/sms487/archive/internal/model"
)

// messageGroupID is fixed: the downstream queue is FIFO with a single group.
const messageGroupID = "1"

// Publisher sends one notification per call. Delivery is best-effort;
// callers decide whether a failure surfaces.
type Publisher interface {
	Publish(ctx context.Context, messages []model.DisplayMessage) error
}

// Clients yields the current queue client and URL. The connection manager
// implements it, so every publish picks up rotated credentials.
type Clients interface {
	Queue(ctx context.Context) (*sqs.Client, string, error)
}

// notification is the queue payload shape.
type notification struct {
	Type string                 `json:"type"`
	Data []model.DisplayMessage `json:"data"`
}

// SQSPublisher publishes notifications through the connection manager.
type SQSPublisher struct {
	clients Clients
}

func NewSQSPublisher(clients Clients) *SQSPublisher {
	return &SQSPublisher{clients: clients}
}

func (p *SQSPublisher) Publish(ctx context.Context, messages []model.DisplayMessage) error {
	if len(messages) == 0 {
		return nil
	}

	client, queueURL, err := p.clients.Queue(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(notification{Type: "new_messages", Data: messages})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(queueURL),
		MessageBody:    aws.String(string(body)),
		MessageGroupId: aws.String(messageGroupID),
	})
	if err != nil {
		return fmt.Errorf("%w: queue publish: %v", model.ErrDownstream, err)
	}
	return nil
}

// BestEffort publishes and swallows any failure: the insert already
// succeeded, so a publish error is logged and never surfaces to the caller.
func BestEffort(ctx context.Context, p Publisher, messages []model.DisplayMessage, log zerolog.Logger) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, messages); err != nil {
		log.Warn().Err(err).Int("count", len(messages)).Msg("Notification publish failed")
		return
	}
	log.Info().Int("count", len(messages)).Msg("Notification published")
}
