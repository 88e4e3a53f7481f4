package conn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sms487/archive/internal/secrets"
)

const (
	mongoConnectTimeoutMS = 5000
	queueRegion           = "ru-central1"
)

func dialMongo(ctx context.Context, creds secrets.StoreCredentials) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%d/?connectTimeoutMS=%d", creds.Host, creds.Port, mongoConnectTimeoutMS)
	opts := options.Client().ApplyURI(uri)

	if creds.ReplicaSet != "" {
		opts.SetReplicaSet(creds.ReplicaSet)
	}

	if creds.TLSCert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(creds.TLSCert)) {
			return nil, fmt.Errorf("invalid TLS trust anchor in store credentials")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: pool})
	}

	if creds.User != "" {
		auth := options.Credential{
			Username: creds.User,
			Password: creds.Password,
		}
		auth.AuthSource = creds.DBName
		if creds.AuthSource != "" {
			auth.AuthSource = creds.AuthSource
		}
		opts.SetAuth(auth)
	}

	return mongo.Connect(ctx, opts)
}

func dialQueue(ctx context.Context, creds secrets.QueueCredentials) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(queueRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(creds.Endpoint)
		}
	}), nil
}
