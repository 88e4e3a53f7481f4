package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sms487/archive/internal/model"
)

type filters struct {
	s *Store
}

func (f *filters) List(ctx context.Context, login string) ([]*model.FilterRule, error) {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}})
	cursor, err := coll.Find(ctx, bson.M{"login": login}, opts)
	if err != nil {
		return nil, downstream("list filters", err)
	}
	defer cursor.Close(ctx)

	var result []*model.FilterRule
	if err := cursor.All(ctx, &result); err != nil {
		return nil, downstream("decode filters", err)
	}
	return result, nil
}

func (f *filters) Insert(ctx context.Context, r *model.FilterRule) error {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return err
	}

	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}
	res, err := coll.InsertOne(ctx, r)
	if err != nil {
		return downstream("insert filter", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = id
	}
	return nil
}

func (f *filters) Update(ctx context.Context, r *model.FilterRule) error {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return err
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"login": r.Login, "_id": r.ID},
		bson.M{"$set": matchFields(r)},
	)
	if err != nil {
		return downstream("update filter", err)
	}
	return nil
}

func (f *filters) Upsert(ctx context.Context, r *model.FilterRule) error {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return err
	}

	created := r.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = coll.UpdateOne(ctx,
		bson.M{"login": r.Login, "_id": r.ID},
		bson.M{
			"$set":         matchFields(r),
			"$setOnInsert": bson.M{"created": created},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return downstream("upsert filter", err)
	}
	return nil
}

func (f *filters) Delete(ctx context.Context, login string, id primitive.ObjectID) error {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return err
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"login": login, "_id": id}); err != nil {
		return downstream("delete filter", err)
	}
	return nil
}

func (f *filters) EnsureIndexes(ctx context.Context) error {
	coll, err := f.s.collection(ctx, filtersCollection)
	if err != nil {
		return err
	}

	index := mongo.IndexModel{
		Keys: bson.D{{Key: "login", Value: 1}, {Key: "created", Value: -1}},
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return downstream("ensure filter indexes", err)
	}
	return nil
}

func matchFields(r *model.FilterRule) bson.M {
	return bson.M{
		"op":        r.Op,
		"tel":       r.Tel,
		"device_id": r.DeviceID,
		"text":      r.Text,
		"action":    r.Action,
	}
}
