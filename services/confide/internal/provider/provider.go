package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/config"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/handler"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/notification"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/repository"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/usecase"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/validation"
	"github.com/vasapolrittideah/confide-mongo/shared/auth"
	"github.com/vasapolrittideah/confide-mongo/shared/mailer"
	"github.com/vasapolrittideah/confide-mongo/shared/security"
	"github.com/vasapolrittideah/confide-mongo/shared/translator"
)

// Container holds the wired services of the confide module.
type Container struct {
	Users       repository.UserRepository
	Reminders   repository.PasswordReminderRepository
	Translator  *translator.Translator
	Validator   *validation.Validator
	Hasher      security.Hasher
	Notifier    notification.Notifier
	Tokens      *auth.JWTAuthenticator
	UserUsecase usecase.UserUsecase
	Handler     http.Handler
}

type containerOptions struct {
	registry *model.Registry
	notifier notification.Notifier
	sender   mailer.Sender
	hasher   security.Hasher
}

// Option customizes the Container built by New.
type Option func(*containerOptions)

// WithRegistry resolves the configured user model from registry.
func WithRegistry(registry *model.Registry) Option {
	return func(o *containerOptions) { o.registry = registry }
}

// WithNotifier uses notifier for lifecycle emails.
func WithNotifier(notifier notification.Notifier) Option {
	return func(o *containerOptions) { o.notifier = notifier }
}

// WithMailSender renders the configured email views and delivers them through sender.
func WithMailSender(sender mailer.Sender) Option {
	return func(o *containerOptions) { o.sender = sender }
}

// WithHasher replaces the default argon2 password hasher.
func WithHasher(hasher security.Hasher) Option {
	return func(o *containerOptions) { o.hasher = hasher }
}

// New builds the repositories, creating their indexes, and every service
// depending on them.
func New(
	ctx context.Context,
	cfg *config.ConfideConfig,
	logger *zerolog.Logger,
	db *mongo.Database,
	opts ...Option,
) (*Container, error) {
	o := containerOptions{registry: model.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	// A missing model is reported when the directory is first used.
	factory, ok := o.registry.Lookup(cfg.Auth.Model)
	if !ok {
		logger.Warn().Str("model", cfg.Auth.Model).Msg("user model is not registered")
	}

	users, err := repository.NewUserMongoRepository(ctx, logger, db, repository.UserRepositoryOptions{
		Collection:    cfg.Auth.Table,
		Factory:       factory,
		UniqueIndexes: cfg.Auth.UniqueIndexes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user repository: %w", err)
	}

	reminders, err := repository.NewPasswordReminderMongoRepository(
		ctx,
		logger,
		db,
		repository.PasswordReminderRepositoryOptions{
			Collection: cfg.Auth.ReminderTable,
			TTL:        cfg.Auth.ReminderTTL,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create password reminder repository: %w", err)
	}

	trans, err := translator.New(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}
	logger.Debug().Str("locale", trans.Locale()).Msg("translator ready")

	validator, err := validation.New(trans.Universal())
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	hasher := o.hasher
	if hasher == nil {
		hasher = security.NewArgon2Hasher()
	}

	notifier := o.notifier
	switch {
	case notifier != nil:
	case o.sender != nil:
		notifier, err = notification.NewMailNotifier(logger, o.sender, trans, cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to create mail notifier: %w", err)
		}
	default:
		logger.Warn().Msg("no mail sender configured, lifecycle emails are discarded")
		notifier = notification.NopNotifier{}
	}

	userUsecase := usecase.NewUserUsecase(
		logger,
		users,
		reminders,
		validator,
		hasher,
		notifier,
		trans,
		usecase.UserUsecaseOptions{
			SignupConfirm:  cfg.Auth.SignupConfirm,
			SignupEmail:    cfg.Auth.SignupEmail,
			IdentityFields: cfg.Auth.LoginIdentityField,
		},
	)

	tokens := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Secret, cfg.Token.ExpiresIn)

	return &Container{
		Users:       users,
		Reminders:   reminders,
		Translator:  trans,
		Validator:   validator,
		Hasher:      hasher,
		Notifier:    notifier,
		Tokens:      tokens,
		UserUsecase: userUsecase,
		Handler:     handler.NewUserHTTPHandler(logger, userUsecase, validator, tokens, trans),
	}, nil
}
