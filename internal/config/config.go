package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// DeployType selects where credentials come from.
type DeployType string

const (
	// DeployEnv reads store and queue credentials from the environment.
	DeployEnv DeployType = "env"
	// DeployLockbox fetches credentials from the cloud secret service.
	DeployLockbox DeployType = "lockbox"
)

// Config holds the configuration for the archive service.
// Environment variables are parsed from the SMS487 prefix.
type Config struct {
	DeployType DeployType `envconfig:"DEPLOY_TYPE" default:"env"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Display and retention
	TZOffsetHours    int `envconfig:"TZ_OFFSET" default:"3"`
	RetentionSeconds int `envconfig:"RETENTION_SECONDS" default:"172800"`

	// Credential cache
	SecretTTLSeconds int `envconfig:"SECRET_TTL_SECONDS" default:"90"`

	// Mongo fallbacks for the env deploy type
	MongoHost       string `envconfig:"MONGO_HOST" default:"localhost"`
	MongoPort       int    `envconfig:"MONGO_PORT" default:"27017"`
	MongoUser       string `envconfig:"MONGO_USER" default:""`
	MongoPassword   string `envconfig:"MONGO_PASSWORD" default:""`
	MongoAuthSource string `envconfig:"MONGO_AUTH_SOURCE" default:""`
	MongoDBName     string `envconfig:"MONGO_DB_NAME" default:"sms487"`
	MongoReplicaSet string `envconfig:"MONGO_REPLICA_SET" default:""`
	MongoTLSCert    string `envconfig:"MONGO_TLS_CERT" default:""`

	// Queue fallbacks for the env deploy type
	QueueURL       string `envconfig:"QUEUE_URL" default:""`
	QueueAccessKey string `envconfig:"QUEUE_ACCESS_KEY" default:""`
	QueueSecretKey string `envconfig:"QUEUE_SECRET_KEY" default:""`
	QueueEndpoint  string `envconfig:"QUEUE_ENDPOINT" default:"https://message-queue.api.cloud.yandex.net"`

	// Lockbox deploy type
	LockboxURL          string `envconfig:"LOCKBOX_URL" default:"https://payload.lockbox.api.cloud.yandex.net/lockbox/v1/secrets"`
	MongoSecretID       string `envconfig:"MONGO_SECRET_ID" default:""`
	QueueSecretID       string `envconfig:"QUEUE_SECRET_ID" default:""`
	MetadataServiceHost string `envconfig:"METADATA_SERVICE" default:"169.254.169.254"`
}

// New creates a Config by parsing environment variables.
// Example: SMS487_HTTP_PORT, SMS487_DEPLOY_TYPE.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SMS487", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("deploy_type", string(cfg.DeployType)).
		Int("http_port", cfg.HTTPPort).
		Int("tz_offset", cfg.TZOffsetHours).
		Int("retention_seconds", cfg.RetentionSeconds).
		Int("secret_ttl_seconds", cfg.SecretTTLSeconds).
		Str("mongo_db_name", cfg.MongoDBName).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.DeployType {
	case DeployEnv:
	case DeployLockbox:
		if c.MongoSecretID == "" || c.QueueSecretID == "" {
			return fmt.Errorf("lockbox deploy type requires SMS487_MONGO_SECRET_ID and SMS487_QUEUE_SECRET_ID")
		}
	default:
		return fmt.Errorf("unsupported SMS487_DEPLOY_TYPE: %s", c.DeployType)
	}

	if c.RetentionSeconds <= 0 {
		return fmt.Errorf("SMS487_RETENTION_SECONDS must be positive")
	}
	if c.SecretTTLSeconds <= 0 {
		return fmt.Errorf("SMS487_SECRET_TTL_SECONDS must be positive")
	}
	return nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		DeployType:       DeployEnv,
		HTTPPort:         8080,
		TZOffsetHours:    3,
		RetentionSeconds: 172800,
		SecretTTLSeconds: 90,
		MongoHost:        "localhost",
		MongoPort:        27017,
		MongoDBName:      "sms487",
		QueueEndpoint:    "https://message-queue.api.cloud.yandex.net",
	}
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
