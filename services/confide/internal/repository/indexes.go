package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Fixed index names, so each configuration maps to one known index.
const (
	emailIndexName            = "email_1"
	usernameIndexName         = "username_1"
	emailUniqueIndexName      = "email_unique"
	usernameUniqueIndexName   = "username_unique"
	confirmationCodeIndexName = "confirmation_code_1"
	tokenIndexName            = "token_1"
	reminderEmailIndexName    = "email_1"
	createdAtTTLIndexName     = "created_at_ttl"

	// legacyCreatedAtIndexName is the server-generated name of earlier TTL indexes.
	legacyCreatedAtIndexName = "created_at_1"
)

// listIndexes returns the indexes of collection keyed by name.
func listIndexes(ctx context.Context, collection *mongo.Collection) (map[string]bson.M, error) {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}

	var specs []bson.M
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, err
	}

	indexes := make(map[string]bson.M, len(specs))
	for _, spec := range specs {
		if name, ok := spec["name"].(string); ok {
			indexes[name] = spec
		}
	}

	return indexes, nil
}

// dropIndexes drops the named indexes that exist.
func dropIndexes(
	ctx context.Context,
	collection *mongo.Collection,
	existing map[string]bson.M,
	names ...string,
) error {
	for _, name := range names {
		if _, ok := existing[name]; !ok {
			continue
		}
		if err := collection.Indexes().DropOne(ctx, name); err != nil {
			return err
		}
		delete(existing, name)
	}

	return nil
}

// isUnique reports whether an index spec enforces uniqueness.
func isUnique(spec bson.M) bool {
	unique, _ := spec["unique"].(bool)
	return unique
}

// setExpireAfter changes the expiry of an existing TTL index in place.
func setExpireAfter(ctx context.Context, collection *mongo.Collection, name string, ttl time.Duration) error {
	return collection.Database().RunCommand(ctx, bson.D{
		{Key: "collMod", Value: collection.Name()},
		{Key: "index", Value: bson.D{
			{Key: "name", Value: name},
			{Key: "expireAfterSeconds", Value: int64(ttl.Seconds())},
		}},
	}).Err()
}

// expireAfterSeconds reads the expiry of an index spec; ok is false for non-TTL indexes.
func expireAfterSeconds(spec bson.M) (int64, bool) {
	switch v := spec["expireAfterSeconds"].(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
