package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
)

func indexesOf(t *testing.T, collection *mongo.Collection) map[string]bson.M {
	t.Helper()

	indexes, err := listIndexes(context.Background(), collection)
	require.NoError(t, err)

	return indexes
}

func TestNewUserMongoRepository_SwitchUniqueIndexes(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	users := db.Collection(defaultUserCollection)

	permissive := newUserRepo(t, db, UserRepositoryOptions{Factory: model.NewUser})
	_, err := permissive.CreateUser(ctx, &model.User{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Contains(t, indexesOf(t, users), emailIndexName)

	strict := newUserRepo(t, db, UserRepositoryOptions{Factory: model.NewUser, UniqueIndexes: true})
	indexes := indexesOf(t, users)
	assert.NotContains(t, indexes, emailIndexName)
	assert.NotContains(t, indexes, usernameIndexName)
	require.Contains(t, indexes, emailUniqueIndexName)
	assert.True(t, isUnique(indexes[emailUniqueIndexName]))

	_, err = strict.CreateUser(ctx, &model.User{Username: "robert", Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	// building it again with the same setting is a no-op
	newUserRepo(t, db, UserRepositoryOptions{Factory: model.NewUser, UniqueIndexes: true})

	relaxed := newUserRepo(t, db, UserRepositoryOptions{Factory: model.NewUser})
	indexes = indexesOf(t, users)
	assert.NotContains(t, indexes, emailUniqueIndexName)
	assert.NotContains(t, indexes, usernameUniqueIndexName)
	assert.Contains(t, indexes, emailIndexName)

	_, err = relaxed.CreateUser(ctx, &model.User{Username: "robert", Email: "bob@example.com"})
	require.NoError(t, err)
}

func TestNewUserMongoRepository_ReplacesUniqueAutoNamedIndex(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	users := db.Collection(defaultUserCollection)

	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)

	newUserRepo(t, db, UserRepositoryOptions{Factory: model.NewUser})

	indexes := indexesOf(t, users)
	require.Contains(t, indexes, emailIndexName)
	assert.False(t, isUnique(indexes[emailIndexName]))
}

func TestNewPasswordReminderMongoRepository_ChangeTTL(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	reminders := db.Collection(defaultPasswordReminderCollection)

	build := func(ttl time.Duration) {
		t.Helper()
		_, err := NewPasswordReminderMongoRepository(ctx, &nopLogger, db, PasswordReminderRepositoryOptions{TTL: ttl})
		require.NoError(t, err)
	}

	build(time.Hour)
	seconds, ok := expireAfterSeconds(indexesOf(t, reminders)[createdAtTTLIndexName])
	require.True(t, ok)
	assert.Equal(t, int64(3600), seconds)

	build(2 * time.Hour)
	seconds, ok = expireAfterSeconds(indexesOf(t, reminders)[createdAtTTLIndexName])
	require.True(t, ok)
	assert.Equal(t, int64(7200), seconds)

	build(2 * time.Hour)

	build(0)
	assert.NotContains(t, indexesOf(t, reminders), createdAtTTLIndexName)

	build(time.Minute)
	seconds, ok = expireAfterSeconds(indexesOf(t, reminders)[createdAtTTLIndexName])
	require.True(t, ok)
	assert.Equal(t, int64(60), seconds)
}

func TestNewPasswordReminderMongoRepository_ReplacesAutoNamedTTLIndex(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	reminders := db.Collection(defaultPasswordReminderCollection)

	_, err := reminders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(600),
	})
	require.NoError(t, err)

	_, err = NewPasswordReminderMongoRepository(ctx, &nopLogger, db, PasswordReminderRepositoryOptions{TTL: time.Hour})
	require.NoError(t, err)

	indexes := indexesOf(t, reminders)
	assert.NotContains(t, indexes, legacyCreatedAtIndexName)
	seconds, ok := expireAfterSeconds(indexes[createdAtTTLIndexName])
	require.True(t, ok)
	assert.Equal(t, int64(3600), seconds)
}

func TestExpireAfterSeconds(t *testing.T) {
	tests := []struct {
		name     string
		spec     bson.M
		expected int64
		ok       bool
	}{
		{name: "int32", spec: bson.M{"expireAfterSeconds": int32(60)}, expected: 60, ok: true},
		{name: "int64", spec: bson.M{"expireAfterSeconds": int64(120)}, expected: 120, ok: true},
		{name: "double", spec: bson.M{"expireAfterSeconds": float64(30)}, expected: 30, ok: true},
		{name: "not ttl", spec: bson.M{"name": "token_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seconds, ok := expireAfterSeconds(tt.spec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, seconds)
		})
	}
}
