// Package conn owns the cached handles to the document store and the
// notification queue and rebuilds them when credentials rotate.
package conn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/secrets"
)

const (
	// disconnectGrace bounds how long a replaced Mongo client may keep
	// draining in-flight operations before the driver force-closes it.
	disconnectGrace = 15 * time.Second
)

// MongoDialer opens a Mongo client for a credential snapshot.
type MongoDialer func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error)

// QueueDialer opens an SQS client for a credential snapshot.
type QueueDialer func(ctx context.Context, creds secrets.QueueCredentials) (*sqs.Client, error)

// Manager caches one live handle per downstream system. Each accessor asks
// the credential provider first and swaps the handle exactly when the
// provider reports a change. The swap happens under the mutex, so concurrent
// callers observe either the pre-rotation or the post-rotation handle; the
// old Mongo client is disconnected asynchronously after being replaced, so
// in-flight callers that already hold it finish undisturbed.
type Manager struct {
	provider  secrets.Provider
	log       zerolog.Logger
	dialMongo MongoDialer
	dialQueue QueueDialer

	mu          sync.Mutex
	mongoClient *mongo.Client
	dbName      string
	queueClient *sqs.Client
	queueURL    string
}

func NewManager(provider secrets.Provider, log zerolog.Logger) *Manager {
	return &Manager{
		provider:  provider,
		log:       log,
		dialMongo: dialMongo,
		dialQueue: dialQueue,
	}
}

// NewManagerWithDialers is used by tests to stub out the real connections.
func NewManagerWithDialers(provider secrets.Provider, log zerolog.Logger, dm MongoDialer, dq QueueDialer) *Manager {
	return &Manager{provider: provider, log: log, dialMongo: dm, dialQueue: dq}
}

// Database returns the current database handle, opening or rotating the
// underlying client as the credential snapshot dictates.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, changed, err := m.provider.Store(ctx)
	if err != nil {
		return nil, err
	}

	if m.mongoClient == nil || changed {
		client, err := m.dialMongo(ctx, creds)
		if err != nil {
			// The previous handle, if any, stays cached and in service.
			return nil, fmt.Errorf("%w: mongo connect: %v", model.ErrDownstream, err)
		}

		if old := m.mongoClient; old != nil {
			m.log.Info().Fields(creds.Redacted()).Msg("Store credentials rotated, rebuilding client")
			go m.disconnect(old)
		} else {
			m.log.Info().Str("host", creds.Host).Int("port", creds.Port).Msg("Connecting to MongoDB")
		}

		m.mongoClient = client
		m.dbName = creds.DBName
	}

	return m.mongoClient.Database(m.dbName), nil
}

// Queue returns the current queue client together with the queue URL to
// publish to. SQS clients hold no persistent connection state, so rotation
// is a plain replacement.
func (m *Manager) Queue(ctx context.Context) (*sqs.Client, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, changed, err := m.provider.Queue(ctx)
	if err != nil {
		return nil, "", err
	}

	if m.queueClient == nil || changed {
		client, err := m.dialQueue(ctx, creds)
		if err != nil {
			return nil, "", fmt.Errorf("%w: queue client: %v", model.ErrDownstream, err)
		}
		if m.queueClient != nil {
			m.log.Info().Fields(creds.Redacted()).Msg("Queue credentials rotated, rebuilding client")
		}
		m.queueClient = client
		m.queueURL = creds.QueueURL
	}

	return m.queueClient, m.queueURL, nil
}

// Close disconnects the cached Mongo client. Used on shutdown.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mongoClient == nil {
		return nil
	}
	err := m.mongoClient.Disconnect(ctx)
	m.mongoClient = nil
	return err
}

func (m *Manager) disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectGrace)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		m.log.Warn().Err(err).Msg("Error closing replaced mongo client")
	}
}
