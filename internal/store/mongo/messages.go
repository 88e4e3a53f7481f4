package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/store"
)

type messages struct {
	s *Store
}

func (m *messages) Insert(ctx context.Context, msgs []*model.Message) ([]primitive.ObjectID, error) {
	coll, err := m.s.collection(ctx, messagesCollection)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Created.IsZero() {
			msg.Created = now
		}
		docs = append(docs, msg)
	}

	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, downstream("insert messages", err)
	}

	ids := make([]primitive.ObjectID, 0, len(res.InsertedIDs))
	for _, raw := range res.InsertedIDs {
		id, ok := raw.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected inserted id type %T", model.ErrDownstream, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *messages) Find(ctx context.Context, q store.MessageQuery) ([]*model.Message, error) {
	coll, err := m.s.collection(ctx, messagesCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Aggregate(ctx, buildPipeline(q))
	if err != nil {
		return nil, downstream("aggregate messages", err)
	}
	defer cursor.Close(ctx)

	var result []*model.Message
	if err := cursor.All(ctx, &result); err != nil {
		return nil, downstream("decode messages", err)
	}
	return result, nil
}

func (m *messages) DeviceIDs(ctx context.Context, login string) ([]string, error) {
	coll, err := m.s.collection(ctx, messagesCollection)
	if err != nil {
		return nil, err
	}

	raw, err := coll.Distinct(ctx, "device_id", bson.M{"login": login})
	if err != nil {
		return nil, downstream("distinct device ids", err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *messages) EnsureIndexes(ctx context.Context) error {
	coll, err := m.s.collection(ctx, messagesCollection)
	if err != nil {
		return err
	}

	indexes := []mongo.IndexModel{
		{
			// Retention is measured from the creation instant, not from
			// the message timestamp.
			Keys:    bson.D{{Key: "created", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(m.s.retentionSeconds),
		},
		{Keys: bson.D{{Key: "login", Value: 1}, {Key: "device_id", Value: 1}}},
		{Keys: bson.D{{Key: "login", Value: 1}, {Key: "tel", Value: 1}}},
		{Keys: bson.D{{Key: "login", Value: 1}, {Key: "date_time", Value: -1}}},
		{Keys: bson.D{
			{Key: "login", Value: 1},
			{Key: "date_time", Value: -1},
			{Key: "device_id", Value: 1},
		}},
	}

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return downstream("ensure message indexes", err)
	}
	return nil
}
