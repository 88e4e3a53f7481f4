package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sms487/archive/internal/model"
)

type stubClients struct {
	client *sqs.Client
	url    string
	err    error
}

func (s *stubClients) Queue(ctx context.Context) (*sqs.Client, string, error) {
	return s.client, s.url, s.err
}

// newQueueBackend runs a local endpoint standing in for the queue API and
// captures every request body it receives.
func newQueueBackend(t *testing.T, status int) (*sqs.Client, *[][]byte) {
	t.Helper()

	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := sqs.New(sqs.Options{
		Region:           "ru-central1",
		BaseEndpoint:     aws.String(srv.URL),
		Credentials:      aws.AnonymousCredentials{},
		RetryMaxAttempts: 1,
	})
	return client, &bodies
}

func displayBatch() []model.DisplayMessage {
	return []model.DisplayMessage{{
		DeviceID:    "phone1",
		Tel:         "900",
		MessageType: "sms",
		Text:        "hello",
	}}
}

func TestPublishSendsNewMessagesNotification(t *testing.T) {
	client, bodies := newQueueBackend(t, http.StatusOK)
	p := NewSQSPublisher(&stubClients{client: client, url: "https://queue/prod"})

	require.NoError(t, p.Publish(context.Background(), displayBatch()))
	require.Len(t, *bodies, 1)

	var req struct {
		QueueURL       string `json:"QueueUrl"`
		MessageBody    string `json:"MessageBody"`
		MessageGroupID string `json:"MessageGroupId"`
	}
	require.NoError(t, json.Unmarshal((*bodies)[0], &req))
	assert.Equal(t, "https://queue/prod", req.QueueURL)
	assert.Equal(t, "1", req.MessageGroupID)

	var payload struct {
		Type string                 `json:"type"`
		Data []model.DisplayMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.MessageBody), &payload))
	assert.Equal(t, "new_messages", payload.Type)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "hello", payload.Data[0].Text)
}

func TestPublishEmptyBatchIsNoOp(t *testing.T) {
	client, bodies := newQueueBackend(t, http.StatusOK)
	p := NewSQSPublisher(&stubClients{client: client, url: "https://queue/prod"})

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Empty(t, *bodies)
}

func TestPublishWrapsSendFailure(t *testing.T) {
	client, _ := newQueueBackend(t, http.StatusInternalServerError)
	p := NewSQSPublisher(&stubClients{client: client, url: "https://queue/prod"})

	err := p.Publish(context.Background(), displayBatch())
	require.ErrorIs(t, err, model.ErrDownstream)
}

func TestPublishPropagatesClientError(t *testing.T) {
	p := NewSQSPublisher(&stubClients{err: model.ErrSecretUnavailable})

	err := p.Publish(context.Background(), displayBatch())
	require.ErrorIs(t, err, model.ErrSecretUnavailable)
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(ctx context.Context, messages []model.DisplayMessage) error {
	f.calls++
	return errors.New("queue down")
}

func TestBestEffortSwallowsPublishError(t *testing.T) {
	p := &failingPublisher{}

	BestEffort(context.Background(), p, displayBatch(), zerolog.Nop())
	assert.Equal(t, 1, p.calls)
}

func TestBestEffortToleratesNilPublisher(t *testing.T) {
	BestEffort(context.Background(), nil, displayBatch(), zerolog.Nop())
}
