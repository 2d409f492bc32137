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
	"github.com/vasapolrittideah/confide-mongo/shared/security"
)

// PasswordReminderRepository defines the interface for password reminder token operations.
type PasswordReminderRepository interface {
	// CreateToken issues a new reminder token for email and stores it.
	CreateToken(ctx context.Context, email string) (string, error)

	// CountByToken returns how many reminders carry token.
	CountByToken(ctx context.Context, token string) (int64, error)

	// GetEmailByToken returns the email owning token, or "" when there is none.
	GetEmailByToken(ctx context.Context, token string) (string, error)

	// DeleteByToken removes reminders carrying token. Unknown tokens are ignored.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired removes reminders created more than maxAge ago.
	DeleteExpired(ctx context.Context, maxAge time.Duration) (int64, error)
}

// PasswordReminderRepositoryOptions configures the reminder collection.
type PasswordReminderRepositoryOptions struct {
	Collection string
	// TTL lets the store expire reminders on its own. Zero disables it.
	TTL time.Duration
}

const defaultPasswordReminderCollection = "password_reminders"

type passwordReminderMongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
	newToken   func() (string, error)
}

// NewPasswordReminderMongoRepository creates a new MongoDB repository for password reminders.
func NewPasswordReminderMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	opts PasswordReminderRepositoryOptions,
) (PasswordReminderRepository, error) {
	name := opts.Collection
	if name == "" {
		name = defaultPasswordReminderCollection
	}
	collection := db.Collection(name)

	if err := ensureReminderIndexes(ctx, collection, opts.TTL); err != nil {
		return nil, storeError("CreateIndexes", err)
	}

	logger.Debug().
		Str("collection", name).
		Dur("ttl", opts.TTL).
		Msg("password reminder indexes ensured")

	return &passwordReminderMongoRepository{
		collection: collection,
		now:        time.Now,
		newToken:   func() (string, error) { return security.RandomToken(security.TokenBytes) },
	}, nil
}

// ensureReminderIndexes creates the lookup indexes and keeps the TTL index in
// line with ttl: created, changed in place, or dropped when ttl is zero.
func ensureReminderIndexes(ctx context.Context, collection *mongo.Collection, ttl time.Duration) error {
	existing, err := listIndexes(ctx, collection)
	if err != nil {
		return err
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName(tokenIndexName),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(reminderEmailIndexName),
		},
	}

	if err := dropIndexes(ctx, collection, existing, legacyCreatedAtIndexName); err != nil {
		return err
	}

	current, hasTTL := existing[createdAtTTLIndexName]
	switch {
	case ttl <= 0:
		if err := dropIndexes(ctx, collection, existing, createdAtTTLIndexName); err != nil {
			return err
		}
	case hasTTL:
		if seconds, _ := expireAfterSeconds(current); seconds != int64(ttl.Seconds()) {
			if err := setExpireAfter(ctx, collection, createdAtTTLIndexName, ttl); err != nil {
				return err
			}
		}
	default:
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName(createdAtTTLIndexName).
				SetExpireAfterSeconds(int32(ttl.Seconds())),
		})
	}

	_, err = collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *passwordReminderMongoRepository) CreateToken(ctx context.Context, email string) (string, error) {
	token, err := r.newToken()
	if err != nil {
		return "", err
	}

	reminder := model.PasswordReminder{
		Email:     email,
		Token:     token,
		CreatedAt: r.now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, reminder); err != nil {
		return "", storeError("CreateToken", err)
	}

	return token, nil
}

func (r *passwordReminderMongoRepository) CountByToken(ctx context.Context, token string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"token": token})
	if err != nil {
		return 0, storeError("CountByToken", err)
	}

	return count, nil
}

func (r *passwordReminderMongoRepository) GetEmailByToken(ctx context.Context, token string) (string, error) {
	var reminder model.PasswordReminder

	err := r.collection.FindOne(
		ctx,
		bson.M{"token": token},
		options.FindOne().SetProjection(bson.M{"email": 1}),
	).Decode(&reminder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", storeError("GetEmailByToken", err)
	}

	return reminder.Email, nil
}

func (r *passwordReminderMongoRepository) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"token": token}); err != nil {
		return storeError("DeleteByToken", err)
	}

	return nil
}

func (r *passwordReminderMongoRepository) DeleteExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	filter := bson.M{
		"created_at": bson.M{"$lt": r.now().Add(-maxAge).UTC()},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, storeError("DeleteExpired", err)
	}

	return result.DeletedCount, nil
}
