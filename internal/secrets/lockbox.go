package secrets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/sms487/archive/internal/config"
	"github.com/sms487/archive/internal/model"
)

const lockboxFetchTimeout = 10 * time.Second

// LockboxProvider fetches credential snapshots from the cloud secret service
// and caches them for the configured TTL. The bearer token comes from the
// instance metadata service and is cached on the same schedule.
type LockboxProvider struct {
	client     *resty.Client
	lockboxURL string

	storeSecretID string
	queueSecretID string

	token *ttlCache[string]
	store *ttlCache[StoreCredentials]
	queue *ttlCache[QueueCredentials]
}

func NewLockboxProvider(cfg *config.Config) *LockboxProvider {
	ttl := time.Duration(cfg.SecretTTLSeconds) * time.Second

	p := &LockboxProvider{
		client: resty.New().
			SetHeader("Content-Type", "application/json").
			SetTimeout(lockboxFetchTimeout),
		lockboxURL:    cfg.LockboxURL,
		storeSecretID: cfg.MongoSecretID,
		queueSecretID: cfg.QueueSecretID,
	}

	tokenURL := fmt.Sprintf(
		"http://%s/computeMetadata/v1/instance/service-accounts/default/token",
		cfg.MetadataServiceHost,
	)
	p.token = newTTLCache(ttl, func(ctx context.Context) (string, error) {
		return p.fetchToken(ctx, tokenURL)
	})
	p.store = newTTLCache(ttl, p.fetchStoreCredentials)
	p.queue = newTTLCache(ttl, p.fetchQueueCredentials)

	return p
}

func (p *LockboxProvider) Store(ctx context.Context) (StoreCredentials, bool, error) {
	creds, changed, err := p.store.get(ctx)
	if err != nil {
		return StoreCredentials{}, false, err
	}
	if changed {
		log.Info().Fields(creds.Redacted()).Msg("Store credentials fetched")
	}
	return creds, changed, nil
}

func (p *LockboxProvider) Queue(ctx context.Context) (QueueCredentials, bool, error) {
	creds, changed, err := p.queue.get(ctx)
	if err != nil {
		return QueueCredentials{}, false, err
	}
	if changed {
		log.Info().Fields(creds.Redacted()).Msg("Queue credentials fetched")
	}
	return creds, changed, nil
}

func (p *LockboxProvider) fetchStoreCredentials(ctx context.Context) (StoreCredentials, error) {
	data, err := p.fetchPayload(ctx, p.storeSecretID)
	if err != nil {
		return StoreCredentials{}, err
	}

	for _, name := range []string{"host", "port", "ssl_cert", "user", "password"} {
		if _, ok := data[name]; !ok {
			return StoreCredentials{}, fmt.Errorf(
				"%w: required field not found in secret data: %s", model.ErrSecretUnavailable, name)
		}
	}

	port, err := strconv.Atoi(data["port"])
	if err != nil {
		return StoreCredentials{}, fmt.Errorf(
			"%w: port is not a number", model.ErrSecretUnavailable)
	}

	dbName := data["db_name"]
	if dbName == "" {
		dbName = "sms487"
	}

	creds := StoreCredentials{
		Host:       data["host"],
		Port:       port,
		User:       data["user"],
		Password:   data["password"],
		AuthSource: data["auth_source"],
		DBName:     dbName,
		ReplicaSet: data["replica_set"],
		TLSCert:    data["ssl_cert"],
	}
	if err := validateStoreCredentials(creds); err != nil {
		return StoreCredentials{}, err
	}
	return creds, nil
}

func (p *LockboxProvider) fetchQueueCredentials(ctx context.Context) (QueueCredentials, error) {
	data, err := p.fetchPayload(ctx, p.queueSecretID)
	if err != nil {
		return QueueCredentials{}, err
	}

	for _, name := range []string{"access-key", "secret-key", "prod-queue"} {
		if _, ok := data[name]; !ok {
			return QueueCredentials{}, fmt.Errorf(
				"%w: required field not found in secret data: %s", model.ErrSecretUnavailable, name)
		}
	}

	endpoint := data["endpoint"]
	if endpoint == "" {
		endpoint = "https://message-queue.api.cloud.yandex.net"
	}

	return QueueCredentials{
		QueueURL:  data["prod-queue"],
		AccessKey: data["access-key"],
		SecretKey: data["secret-key"],
		Endpoint:  endpoint,
	}, nil
}

// lockboxPayload is the secret service response shape.
type lockboxPayload struct {
	Entries []struct {
		Key       string `json:"key"`
		TextValue string `json:"textValue"`
	} `json:"entries"`
}

type metadataToken struct {
	AccessToken string `json:"access_token"`
}

func (p *LockboxProvider) fetchPayload(ctx context.Context, secretID string) (map[string]string, error) {
	token, _, err := p.token.get(ctx)
	if err != nil {
		return nil, err
	}

	var payload lockboxPayload
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&payload).
		Get(fmt.Sprintf("%s/%s/payload", p.lockboxURL, secretID))
	if err != nil {
		return nil, fmt.Errorf("%w: lockbox request failed: %v", model.ErrSecretUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: lockbox responded %d", model.ErrSecretUnavailable, resp.StatusCode())
	}

	data := make(map[string]string, len(payload.Entries))
	for _, e := range payload.Entries {
		data[e.Key] = e.TextValue
	}
	return data, nil
}

func (p *LockboxProvider) fetchToken(ctx context.Context, tokenURL string) (string, error) {
	var tok metadataToken
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Metadata-Flavor", "Google").
		SetResult(&tok).
		Get(tokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: metadata request failed: %v", model.ErrSecretUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: metadata service responded %d", model.ErrSecretUnavailable, resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: there is no access token in metadata response", model.ErrSecretUnavailable)
	}
	return tok.AccessToken, nil
}
