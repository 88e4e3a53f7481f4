package conn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sms487/archive/internal/secrets"
)

// scriptedProvider returns queued snapshots with explicit changed flags.
type scriptedProvider struct {
	mu    sync.Mutex
	store []scriptedStore
	queue []scriptedQueue
}

type scriptedStore struct {
	creds   secrets.StoreCredentials
	changed bool
	err     error
}

type scriptedQueue struct {
	creds   secrets.QueueCredentials
	changed bool
	err     error
}

func (p *scriptedProvider) Store(ctx context.Context) (secrets.StoreCredentials, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.store[0]
	if len(p.store) > 1 {
		p.store = p.store[1:]
	}
	return next.creds, next.changed, next.err
}

func (p *scriptedProvider) Queue(ctx context.Context) (secrets.QueueCredentials, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.queue[0]
	if len(p.queue) > 1 {
		p.queue = p.queue[1:]
	}
	return next.creds, next.changed, next.err
}

// newDetachedClient builds a Mongo client without any I/O; the driver
// connects lazily.
func newDetachedClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	return client
}

func storeCreds(host string) secrets.StoreCredentials {
	return secrets.StoreCredentials{Host: host, Port: 27017, DBName: "sms487"}
}

func TestManagerOpensHandleOnFirstCall(t *testing.T) {
	dialed := 0
	client := newDetachedClient(t)

	provider := &scriptedProvider{store: []scriptedStore{
		{creds: storeCreds("db1"), changed: false},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(),
		func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
			dialed++
			return client, nil
		}, nil)

	db, err := m.Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sms487", db.Name())
	assert.Equal(t, 1, dialed)

	// Unchanged credentials reuse the cached handle.
	_, err = m.Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dialed)
}

func TestManagerRebuildsHandleOnRotation(t *testing.T) {
	var dialedHosts []string
	clients := []*mongo.Client{newDetachedClient(t), newDetachedClient(t)}

	provider := &scriptedProvider{store: []scriptedStore{
		{creds: storeCreds("db1"), changed: true},
		{creds: storeCreds("db2"), changed: true},
		{creds: storeCreds("db2"), changed: false},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(),
		func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
			dialedHosts = append(dialedHosts, creds.Host)
			return clients[len(dialedHosts)-1], nil
		}, nil)

	db1, err := m.Database(context.Background())
	require.NoError(t, err)

	// Rotation: the second call gets a handle built from the new snapshot.
	db2, err := m.Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"db1", "db2"}, dialedHosts)
	assert.NotSame(t, db1.Client(), db2.Client())

	// The old handle is not reused for new requests.
	db3, err := m.Database(context.Background())
	require.NoError(t, err)
	assert.Same(t, db2.Client(), db3.Client())
}

func TestManagerPropagatesProviderError(t *testing.T) {
	provider := &scriptedProvider{store: []scriptedStore{
		{err: errors.New("secret unavailable")},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(),
		func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
			t.Fatal("dial must not run when credentials are unavailable")
			return nil, nil
		}, nil)

	_, err := m.Database(context.Background())
	require.Error(t, err)
}

func TestManagerKeepsOldHandleWhenRotationDialFails(t *testing.T) {
	client := newDetachedClient(t)
	dialed := 0

	provider := &scriptedProvider{store: []scriptedStore{
		{creds: storeCreds("db1"), changed: true},
		{creds: storeCreds("db2"), changed: true},
		{creds: storeCreds("db2"), changed: false},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(),
		func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
			dialed++
			if creds.Host == "db2" {
				return nil, errors.New("connect refused")
			}
			return client, nil
		}, nil)

	db1, err := m.Database(context.Background())
	require.NoError(t, err)

	_, err = m.Database(context.Background())
	require.Error(t, err)

	// The pre-rotation handle stays cached and in service.
	db3, err := m.Database(context.Background())
	require.NoError(t, err)
	assert.Same(t, db1.Client(), db3.Client())
}

func TestManagerQueueRotation(t *testing.T) {
	dialed := 0
	provider := &scriptedProvider{queue: []scriptedQueue{
		{creds: secrets.QueueCredentials{QueueURL: "https://q/one"}, changed: false},
		{creds: secrets.QueueCredentials{QueueURL: "https://q/two"}, changed: true},
		{creds: secrets.QueueCredentials{QueueURL: "https://q/two"}, changed: false},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(), nil,
		func(ctx context.Context, creds secrets.QueueCredentials) (*sqs.Client, error) {
			dialed++
			return sqs.New(sqs.Options{}), nil
		})

	_, url, err := m.Queue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://q/one", url)

	_, url, err = m.Queue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://q/two", url)

	_, _, err = m.Queue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dialed)
}

func TestManagerConcurrentCallersGetConsistentHandle(t *testing.T) {
	client := newDetachedClient(t)
	provider := &scriptedProvider{store: []scriptedStore{
		{creds: storeCreds("db1"), changed: false},
	}}
	m := NewManagerWithDialers(provider, zerolog.Nop(),
		func(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
			return client, nil
		}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := m.Database(context.Background())
			assert.NoError(t, err)
			assert.Same(t, client, db.Client())
		}()
	}
	wg.Wait()
}
