package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sms487/archive/internal/model"
)

// Store exposes persistence operations required by services.
// The document store implementation lives under internal/store/mongo.
type Store interface {
	Messages() Messages
	Filters() Filters
}

// MessageQuery describes one read through the retrieval pipeline. Either
// Login scopes the read (with optional DeviceID), or IDs restricts it to an
// explicit identity set when re-reading just-inserted documents. Exclusion
// and Mark are the filter compiler's artifacts; nil disables the stage.
type MessageQuery struct {
	Login     string
	DeviceID  string
	IDs       []primitive.ObjectID
	Limit     int
	Exclusion bson.M
	Mark      bson.M
}

type Messages interface {
	// Insert persists the batch atomically and returns the assigned
	// identities in input order.
	Insert(ctx context.Context, msgs []*model.Message) ([]primitive.ObjectID, error)
	// Find runs the sort/limit/group retrieval pipeline.
	Find(ctx context.Context, q MessageQuery) ([]*model.Message, error)
	DeviceIDs(ctx context.Context, login string) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

type Filters interface {
	// List returns the owner's rules newest-first.
	List(ctx context.Context, login string) ([]*model.FilterRule, error)
	Insert(ctx context.Context, r *model.FilterRule) error
	// Update replaces the rule's match fields, op and action in place.
	Update(ctx context.Context, r *model.FilterRule) error
	// Upsert is Update that inserts when the identity is not present yet.
	Upsert(ctx context.Context, r *model.FilterRule) error
	Delete(ctx context.Context, login string, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}
