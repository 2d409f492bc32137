package provider

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/config"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/handler"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/notification"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/repository"
	"github.com/vasapolrittideah/confide-mongo/shared/mailer"
	"github.com/vasapolrittideah/confide-mongo/shared/security"
)

var (
	testClient *mongo.Client
	skipReason string
)

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		skipReason = "skipping MongoDB integration test in short mode"
		os.Exit(m.Run())
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		skipReason = fmt.Sprintf("MongoDB container unavailable: %v", err)
		os.Exit(m.Run())
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testClient, err = mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testClient.Disconnect(ctx)
	_ = container.Terminate(ctx)

	os.Exit(code)
}

type recordingSender struct {
	sent []mailer.Email
}

func (s *recordingSender) Send(email mailer.Email) error {
	s.sent = append(s.sent, email)
	return nil
}

func newTestConfig() *config.ConfideConfig {
	return &config.ConfideConfig{
		Locale: "en",
		Auth: config.AuthConfig{
			Model:              model.DefaultModel,
			Table:              "users",
			ReminderTable:      "password_reminders",
			SignupConfirm:      true,
			SignupEmail:        true,
			LoginIdentityField: []string{"email", "username"},
		},
		Email: config.EmailConfig{
			AccountConfirmation: "account_confirmation.html",
			ResetPassword:       "password_reset.html",
			AppURL:              "https://app.example.com",
		},
		Token: config.TokenConfig{
			Issuer:    "confide",
			Secret:    "test-secret",
			ExpiresIn: time.Hour,
		},
	}
}

func newTestContainer(t *testing.T, cfg *config.ConfideConfig, opts ...Option) *Container {
	t.Helper()

	if testClient == nil {
		t.Skip(skipReason)
	}

	db := testClient.Database("confide_" + bson.NewObjectID().Hex())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})

	logger := zerolog.Nop()
	c, err := New(context.Background(), cfg, &logger, db, opts...)
	require.NoError(t, err)

	return c
}

func TestOptions(t *testing.T) {
	registry := model.NewRegistry()
	sender := &recordingSender{}
	hasher := security.NewArgon2Hasher()

	var o containerOptions
	for _, opt := range []Option{
		WithRegistry(registry),
		WithNotifier(notification.NopNotifier{}),
		WithMailSender(sender),
		WithHasher(hasher),
	} {
		opt(&o)
	}

	assert.Same(t, registry, o.registry)
	assert.Equal(t, notification.NopNotifier{}, o.notifier)
	assert.Same(t, sender, o.sender)
	assert.Equal(t, hasher, o.hasher)
}

func TestNew_DefaultsToNopNotifier(t *testing.T) {
	c := newTestContainer(t, newTestConfig())

	assert.IsType(t, notification.NopNotifier{}, c.Notifier)
	assert.NotNil(t, c.Handler)
}

func TestNew_UnregisteredModel(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Model = "Customer"

	c := newTestContainer(t, cfg)

	_, err := c.Users.Model()
	require.Error(t, err)
	assert.True(t, repository.IsConfigurationError(err))
}

func TestNew_CustomRegistry(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Model = "Customer"

	registry := model.NewRegistry()
	registry.Register("Customer", func() *model.User {
		return &model.User{Username: "preset"}
	})

	c := newTestContainer(t, cfg, WithRegistry(registry))

	user, err := c.Users.Model()
	require.NoError(t, err)
	assert.Equal(t, "preset", user.Username)
}

func TestNew_UnsupportedLocale(t *testing.T) {
	if testClient == nil {
		t.Skip(skipReason)
	}

	cfg := newTestConfig()
	cfg.Locale = "xx"

	logger := zerolog.Nop()
	db := testClient.Database("confide_" + bson.NewObjectID().Hex())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})

	_, err := New(context.Background(), cfg, &logger, db)
	require.Error(t, err)
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestSignupConfirmLoginFlow(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	c := newTestContainer(t, newTestConfig(), WithMailSender(sender))

	rec := post(t, c.Handler, "/users",
		`{"username":"bob","email":"bob@example.com","password":"secret","password_confirmation":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Account Confirmation", sender.sent[0].Subject)

	rec = post(t, c.Handler, "/users",
		`{"username":"bob","email":"other@example.com","password":"secret","password_confirmation":"secret"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, c.Handler, "/users/login", `{"email":"bob@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := c.Users.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.Password)

	req := httptest.NewRequest(http.MethodGet, "/users/confirm/"+stored.ConfirmationCode, nil)
	rec = httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, c.Handler, "/users/login", `{"username":"bob","password":"secret","remember":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Len(t, resp.RememberToken, 64)
}

func TestForgotAndResetPasswordFlow(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	cfg := newTestConfig()
	cfg.Auth.SignupConfirm = false
	c := newTestContainer(t, cfg, WithMailSender(sender))

	user, err := c.UserUsecase.NewUser()
	require.NoError(t, err)
	user.Username = "bob"
	user.Email = "bob@example.com"
	user.Password = "secret"
	user.PasswordConfirmation = "secret"
	user.Confirmed = true
	require.NoError(t, c.UserUsecase.Save(ctx, user))
	assert.Empty(t, sender.sent, "confirmed users get no confirmation email")

	token, err := c.UserUsecase.ForgotPassword(ctx, user)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTMLBody, "/users/reset-password/"+token)

	rec := post(t, c.Handler, "/users/reset-password/"+token,
		`{"password":"changed","password_confirmation":"changed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	count, err := c.Reminders.CountByToken(ctx, token)
	require.NoError(t, err)
	assert.Zero(t, count)

	rec = post(t, c.Handler, "/users/login", `{"email":"bob@example.com","password":"changed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, c.Handler, "/users/login", `{"email":"bob@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
