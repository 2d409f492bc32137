package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
)

// UserRepository defines the user directory operations backed by the document store.
type UserRepository interface {
	// Model returns a fresh record from the configured user factory.
	Model() (*model.User, error)

	GetUserByConfirmationCode(ctx context.Context, code string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByEmailOrUsername(ctx context.Context, emailOrUsername string) (*model.User, error)

	// GetUserByIdentity finds a user matching any of the identity fields present
	// in credentials. With no fields given, DefaultIdentityFields is used.
	GetUserByIdentity(ctx context.Context, credentials map[string]string, identityFields ...string) (*model.User, error)

	// CountDuplicates counts stored users sharing the candidate's username or email.
	CountDuplicates(ctx context.Context, user *model.User) (int64, error)

	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	ReplaceUser(ctx context.Context, user *model.User) error
	UpdateConfirmed(ctx context.Context, id bson.ObjectID, confirmed bool) error
	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	UpdateRememberToken(ctx context.Context, id bson.ObjectID, token string) error
}

// UserRepositoryOptions configures the user collection.
type UserRepositoryOptions struct {
	Collection string
	// Factory is resolved from the configured model name; nil means not configured.
	Factory model.Factory
	// UniqueIndexes enforces unique email and username at the store level.
	UniqueIndexes bool
}

const defaultUserCollection = "users"

type userMongoRepository struct {
	collection *mongo.Collection
	factory    model.Factory
}

// NewUserMongoRepository creates the user repository and ensures its indexes.
func NewUserMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	opts UserRepositoryOptions,
) (UserRepository, error) {
	name := opts.Collection
	if name == "" {
		name = defaultUserCollection
	}
	collection := db.Collection(name)

	if err := ensureUserIndexes(ctx, collection, opts.UniqueIndexes); err != nil {
		return nil, storeError("CreateIndexes", err)
	}

	logger.Debug().
		Str("collection", name).
		Bool("unique_indexes", opts.UniqueIndexes).
		Msg("user indexes ensured")

	return &userMongoRepository{
		collection: collection,
		factory:    opts.Factory,
	}, nil
}

// ensureUserIndexes creates the indexes for the unique setting and drops the
// ones left over from the other setting, since both share key patterns.
func ensureUserIndexes(ctx context.Context, collection *mongo.Collection, unique bool) error {
	existing, err := listIndexes(ctx, collection)
	if err != nil {
		return err
	}

	stale := []string{emailUniqueIndexName, usernameUniqueIndexName}
	if unique {
		stale = []string{emailIndexName, usernameIndexName}
	} else {
		for _, name := range []string{emailIndexName, usernameIndexName} {
			if spec, ok := existing[name]; ok && isUnique(spec) {
				stale = append(stale, name)
			}
		}
	}
	if err := dropIndexes(ctx, collection, existing, stale...); err != nil {
		return err
	}

	_, err = collection.Indexes().CreateMany(ctx, userIndexes(unique))
	return err
}

func userIndexes(unique bool) []mongo.IndexModel {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "confirmation_code", Value: 1}},
			Options: options.Index().SetName(confirmationCodeIndexName),
		},
	}

	if unique {
		return append(indexes,
			mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName(emailUniqueIndexName).SetUnique(true),
			},
			mongo.IndexModel{
				Keys: bson.D{{Key: "username", Value: 1}},
				Options: options.Index().
					SetName(usernameUniqueIndexName).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"username": bson.M{"$gt": ""}}),
			},
		)
	}

	return append(indexes,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndexName),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(usernameIndexName),
		},
	)
}

func (r *userMongoRepository) Model() (*model.User, error) {
	if r.factory == nil {
		return nil, configurationError("user model not specified in auth configuration")
	}

	return r.factory(), nil
}

func (r *userMongoRepository) GetUserByConfirmationCode(ctx context.Context, code string) (*model.User, error) {
	return r.findOne(ctx, "GetUserByConfirmationCode", bson.M{"confirmation_code": code})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "GetUserByEmail", bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByEmailOrUsername(
	ctx context.Context,
	emailOrUsername string,
) (*model.User, error) {
	return r.GetUserByIdentity(ctx, map[string]string{
		"email":    emailOrUsername,
		"username": emailOrUsername,
	}, "email", "username")
}

func (r *userMongoRepository) GetUserByIdentity(
	ctx context.Context,
	credentials map[string]string,
	identityFields ...string,
) (*model.User, error) {
	if len(identityFields) == 0 {
		identityFields = DefaultIdentityFields
	}

	filter, ok := IdentityFilter(credentials, identityFields)
	if !ok {
		// MongoDB rejects an empty $or, so an identity without any usable
		// field matches nobody.
		if _, err := r.Model(); err != nil {
			return nil, err
		}
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, "GetUserByIdentity", filter)
}

func (r *userMongoRepository) CountDuplicates(ctx context.Context, user *model.User) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, DuplicateFilter(user))
	if err != nil {
		return 0, storeError("CountDuplicates", err)
	}

	return count, nil
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateUser
		}
		return nil, storeError("CreateUser", err)
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, storeError("CreateUser", errors.New("failed to convert inserted ID to ObjectID"))
	}
	user.ID = objectID

	return user, nil
}

func (r *userMongoRepository) ReplaceUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		return storeError("ReplaceUser", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userMongoRepository) UpdateConfirmed(ctx context.Context, id bson.ObjectID, confirmed bool) error {
	return r.setField(ctx, "UpdateConfirmed", id, "confirmed", confirmed)
}

func (r *userMongoRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	return r.setField(ctx, "UpdatePassword", id, "password", passwordHash)
}

func (r *userMongoRepository) UpdateRememberToken(ctx context.Context, id bson.ObjectID, token string) error {
	return r.setField(ctx, "UpdateRememberToken", id, "remember_token", token)
}

// setField updates a single field of one user, leaving the rest of the document untouched.
func (r *userMongoRepository) setField(
	ctx context.Context,
	operation string,
	id bson.ObjectID,
	field string,
	value any,
) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{field: value}},
	)
	if err != nil {
		return storeError(operation, err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userMongoRepository) findOne(ctx context.Context, operation string, filter any) (*model.User, error) {
	user, err := r.Model()
	if err != nil {
		return nil, err
	}

	if err := r.collection.FindOne(ctx, filter).Decode(user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(operation, err)
	}

	return user, nil
}
