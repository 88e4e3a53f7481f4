package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sms487/archive/internal/store"
)

// overFetchFactor bounds the cost of the grouping stage: only the newest
// limit*overFetchFactor candidates take part in deduplication.
const overFetchFactor = 10

// dedupKeyTextLen truncates the text component of the group key. Two
// distinct long messages sharing a 128-code-point prefix collapse into one;
// accepted as a cost trade-off.
const dedupKeyTextLen = 128

// messageSort is the total read order: newest first, ties broken by device
// and then identity so pagination is stable.
var messageSort = bson.D{
	{Key: "date_time", Value: -1},
	{Key: "device_id", Value: 1},
	{Key: "_id", Value: -1},
}

// buildPipeline assembles the retrieval pipeline: match, sort, over-fetch,
// group to one representative per (device, tel, text prefix), re-sort,
// truncate, and optionally compute the marked flag. Under the descending
// sort the $first representative of each group is the most recent
// occurrence, so duplicates collapse to their latest instance.
func buildPipeline(q store.MessageQuery) mongo.Pipeline {
	match := bson.M{"login": q.Login}
	if len(q.IDs) > 0 {
		match["_id"] = bson.M{"$in": q.IDs}
	} else if q.DeviceID != "" {
		match["device_id"] = q.DeviceID
	}
	for k, v := range q.Exclusion {
		match[k] = v
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: messageSort}},
		bson.D{{Key: "$limit", Value: q.Limit * overFetchFactor}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"device_id": "$device_id",
				"tel":       "$tel",
				"text":      bson.M{"$substrCP": bson.A{"$text", 0, dedupKeyTextLen}},
			},
			"doc": bson.M{"$first": "$$ROOT"},
		}}},
		bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$doc"}}},
		bson.D{{Key: "$sort", Value: messageSort}},
		bson.D{{Key: "$limit", Value: q.Limit}},
	}

	if q.Mark != nil {
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{"marked": q.Mark}}})
	}

	return pipeline
}
