// Package mongo implements the store interfaces on the MongoDB driver.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/store"
)

const (
	messagesCollection = "sms_items"
	filtersCollection  = "filters"
)

// Databases resolves the current database handle. The connection manager
// implements it; every operation goes through it so reads and writes pick up
// rotated credentials without restart.
type Databases interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// Store bundles the collection-level implementations.
type Store struct {
	db               Databases
	retentionSeconds int32
}

func NewStore(db Databases, retentionSeconds int) *Store {
	return &Store{db: db, retentionSeconds: int32(retentionSeconds)}
}

func (s *Store) Messages() store.Messages { return &messages{s} }
func (s *Store) Filters() store.Filters   { return &filters{s} }

func (s *Store) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func downstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrDownstream, op, err)
}
