package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/sms487/archive/internal/config"
	"github.com/sms487/archive/internal/model"
)

// Provider exposes the current credential snapshots for the downstream
// systems. The boolean result is the changed flag: true iff the returned
// value differs from the value returned on the previous call to the same
// accessor. Implementations are safe for concurrent use.
type Provider interface {
	Store(ctx context.Context) (StoreCredentials, bool, error)
	Queue(ctx context.Context) (QueueCredentials, bool, error)
}

// NewProvider picks the provider implementation for the configured deploy
// type.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.DeployType {
	case config.DeployEnv:
		return NewEnvProvider(cfg)
	case config.DeployLockbox:
		return NewLockboxProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown deploy type: %s", cfg.DeployType)
	}
}

// EnvProvider serves snapshots built once from the environment. Environment
// credentials cannot rotate, so the changed flag is always false.
type EnvProvider struct {
	store StoreCredentials
	queue QueueCredentials
}

func NewEnvProvider(cfg *config.Config) (*EnvProvider, error) {
	store := StoreCredentials{
		Host:       cfg.MongoHost,
		Port:       cfg.MongoPort,
		User:       cfg.MongoUser,
		Password:   cfg.MongoPassword,
		AuthSource: cfg.MongoAuthSource,
		DBName:     cfg.MongoDBName,
		ReplicaSet: cfg.MongoReplicaSet,
		TLSCert:    cfg.MongoTLSCert,
	}
	if err := validateStoreCredentials(store); err != nil {
		return nil, err
	}

	queue := QueueCredentials{
		QueueURL:  cfg.QueueURL,
		AccessKey: cfg.QueueAccessKey,
		SecretKey: cfg.QueueSecretKey,
		Endpoint:  cfg.QueueEndpoint,
	}

	return &EnvProvider{store: store, queue: queue}, nil
}

func (p *EnvProvider) Store(ctx context.Context) (StoreCredentials, bool, error) {
	return p.store, false, nil
}

func (p *EnvProvider) Queue(ctx context.Context) (QueueCredentials, bool, error) {
	return p.queue, false, nil
}

func validateStoreCredentials(c StoreCredentials) error {
	var empty []string
	if c.Host == "" {
		empty = append(empty, "host")
	}
	if c.Port == 0 {
		empty = append(empty, "port")
	}
	if c.DBName == "" {
		empty = append(empty, "db_name")
	}
	if len(empty) > 0 {
		return fmt.Errorf("%w: store credential fields are required: %s",
			model.ErrSecretUnavailable, strings.Join(empty, ", "))
	}
	return nil
}
