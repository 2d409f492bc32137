package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/notification"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/repository"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/validation"
	"github.com/vasapolrittideah/confide-mongo/shared/security"
	"github.com/vasapolrittideah/confide-mongo/shared/translator"
)

// confirmationCodeBytes yields a 32 character hex confirmation code.
const confirmationCodeBytes = 16

// DuplicatedField is the failure key used when credentials are already taken.
const DuplicatedField = "duplicated"

// UserUsecase defines the user record lifecycle: saving, confirming and
// password management.
type UserUsecase interface {
	// NewUser returns an empty record from the configured user model.
	NewUser() (*model.User, error)

	// Save validates and stores user. New records get a confirmation code and,
	// unless already confirmed, a confirmation email.
	Save(ctx context.Context, user *model.User) error

	// Confirm marks a stored user as confirmed.
	Confirm(ctx context.Context, user *model.User) error

	// ConfirmByCode confirms the user owning code. It reports false when no user matches.
	ConfirmByCode(ctx context.Context, code string) (bool, error)

	// ResetPassword stores a new password. It reports false when password and
	// confirmation differ, without writing anything.
	ResetPassword(ctx context.Context, user *model.User, password, confirmation string) (bool, error)

	// ResetPasswordByToken resets the password of the reminder token owner and
	// consumes the token.
	ResetPasswordByToken(ctx context.Context, token, password, confirmation string) (bool, error)

	// ForgotPassword issues a reminder token for user and emails it.
	ForgotPassword(ctx context.Context, user *model.User) (string, error)

	// RequestPasswordReset runs ForgotPassword for the user owning email, if any.
	RequestPasswordReset(ctx context.Context, email string) error

	// UserExists reports whether a user matches the credentials.
	UserExists(ctx context.Context, credentials map[string]string, identityFields ...string) (bool, error)

	// IsConfirmed reports whether a confirmed user matches the credentials.
	IsConfirmed(ctx context.Context, credentials map[string]string, identityFields ...string) (bool, error)

	// Login checks credentials and returns the authenticated user.
	Login(ctx context.Context, params LoginParams) (*model.User, error)

	// GetUserByEmail returns the user owning email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Credentials map[string]string
	Password    string
	Remember    bool
}

// UserUsecaseOptions tunes the lifecycle behaviour.
type UserUsecaseOptions struct {
	// SignupConfirm requires a confirmed email before login.
	SignupConfirm bool
	// SignupEmail sends the confirmation email after a new user is stored.
	SignupEmail bool
	// IdentityFields are matched against login credentials.
	IdentityFields []string
}

// UserValidator validates user records.
type UserValidator interface {
	User(user *model.User) error
}

// Translator resolves user facing messages.
type Translator interface {
	Get(key string, params ...string) string
}

var (
	ErrUserNotPersisted   = errors.New("user has not been saved")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotConfirmed   = errors.New("user email is not confirmed")
	ErrTokenNotFound      = errors.New("password reminder token not found")
	ErrNotificationFailed = errors.New("user saved but notification failed")
)

// legacyIdentityFields are the defaults of UserExists and IsConfirmed.
var legacyIdentityFields = []string{"username", "email"}

type userUsecase struct {
	logger       *zerolog.Logger
	userRepo     repository.UserRepository
	reminderRepo repository.PasswordReminderRepository
	validator    UserValidator
	hasher       security.Hasher
	notifier     notification.Notifier
	trans        Translator
	opts         UserUsecaseOptions
	newCode      func() (string, error)
}

// NewUserUsecase creates a new instance of UserUsecase.
func NewUserUsecase(
	logger *zerolog.Logger,
	userRepo repository.UserRepository,
	reminderRepo repository.PasswordReminderRepository,
	validator UserValidator,
	hasher security.Hasher,
	notifier notification.Notifier,
	trans Translator,
	opts UserUsecaseOptions,
) UserUsecase {
	if len(opts.IdentityFields) == 0 {
		opts.IdentityFields = repository.DefaultIdentityFields
	}

	return &userUsecase{
		logger:       logger,
		userRepo:     userRepo,
		reminderRepo: reminderRepo,
		validator:    validator,
		hasher:       hasher,
		notifier:     notifier,
		trans:        trans,
		opts:         opts,
		newCode:      func() (string, error) { return security.RandomToken(confirmationCodeBytes) },
	}
}

func (u *userUsecase) NewUser() (*model.User, error) {
	return u.userRepo.Model()
}

func (u *userUsecase) Save(ctx context.Context, user *model.User) error {
	isNew := user.IsNew()

	// The code is generated once, before the first write, and kept afterwards.
	if isNew && user.ConfirmationCode == "" {
		code, err := u.newCode()
		if err != nil {
			return err
		}
		user.ConfirmationCode = code
	}

	if err := u.validator.User(user); err != nil {
		return err
	}

	if isNew {
		count, err := u.userRepo.CountDuplicates(ctx, user)
		if err != nil {
			return err
		}
		if count > 0 {
			return u.duplicated()
		}
	}

	// Work on a copy so a failed write leaves the caller's record as it was.
	record := *user
	record.PasswordConfirmation = ""
	if record.Password != "" && !security.IsHashed(record.Password) {
		hash, err := u.hasher.Make(record.Password)
		if err != nil {
			return err
		}
		record.Password = hash
	}

	if !isNew {
		if err := u.userRepo.ReplaceUser(ctx, &record); err != nil {
			if errors.Is(err, repository.ErrDuplicateUser) {
				return u.duplicated()
			}
			return err
		}
		*user = record
		u.logger.Debug().Str("user_id", user.ID.Hex()).Stringer("state", user.State()).Msg("user updated")
		return nil
	}

	if _, err := u.userRepo.CreateUser(ctx, &record); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return u.duplicated()
		}
		return err
	}
	*user = record

	u.logger.Info().
		Str("user_id", user.ID.Hex()).
		Str("email", user.Email).
		Stringer("state", user.State()).
		Msg("user created")

	if user.Confirmed || !u.opts.SignupEmail {
		return nil
	}

	if err := u.notifier.AccountConfirmation(ctx, user); err != nil {
		u.logger.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send account confirmation")
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	return nil
}

func (u *userUsecase) Confirm(ctx context.Context, user *model.User) error {
	if user.IsNew() {
		return ErrUserNotPersisted
	}

	if err := u.userRepo.UpdateConfirmed(ctx, user.ID, true); err != nil {
		return err
	}
	user.Confirmed = true

	u.logger.Info().Str("user_id", user.ID.Hex()).Stringer("state", user.State()).Msg("user confirmed")
	return nil
}

func (u *userUsecase) ConfirmByCode(ctx context.Context, code string) (bool, error) {
	// Records that never had a code store it empty.
	if code == "" {
		return false, nil
	}

	user, err := u.userRepo.GetUserByConfirmationCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := u.Confirm(ctx, user); err != nil {
		return false, err
	}

	return true, nil
}

func (u *userUsecase) ResetPassword(
	ctx context.Context,
	user *model.User,
	password, confirmation string,
) (bool, error) {
	if password != confirmation {
		return false, nil
	}

	if user.IsNew() {
		return false, ErrUserNotPersisted
	}

	hash, err := u.hasher.Make(password)
	if err != nil {
		return false, err
	}

	if err := u.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return false, err
	}
	user.Password = hash

	return true, nil
}

func (u *userUsecase) ResetPasswordByToken(
	ctx context.Context,
	token, password, confirmation string,
) (bool, error) {
	email, err := u.reminderRepo.GetEmailByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if email == "" {
		return false, ErrTokenNotFound
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrTokenNotFound
		}
		return false, err
	}

	ok, err := u.ResetPassword(ctx, user, password, confirmation)
	if err != nil || !ok {
		return ok, err
	}

	if err := u.reminderRepo.DeleteByToken(ctx, token); err != nil {
		// The password is already changed; a leftover token is only logged.
		u.logger.Warn().Err(err).Msg("failed to delete password reminder")
	}

	return true, nil
}

func (u *userUsecase) ForgotPassword(ctx context.Context, user *model.User) (string, error) {
	token, err := u.reminderRepo.CreateToken(ctx, user.Email)
	if err != nil {
		return "", err
	}

	if err := u.notifier.PasswordReset(ctx, user, token); err != nil {
		u.logger.Error().Err(err).Str("email", user.Email).Msg("failed to send password reset")
		return "", fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	return token, nil
}

func (u *userUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// To prevent email enumeration, do not reveal that the email does not exist.
			return nil
		}
		return err
	}

	_, err = u.ForgotPassword(ctx, user)
	return err
}

func (u *userUsecase) UserExists(
	ctx context.Context,
	credentials map[string]string,
	identityFields ...string,
) (bool, error) {
	user, err := u.findByIdentity(ctx, credentials, identityFields)
	if err != nil {
		return false, err
	}

	return user != nil, nil
}

func (u *userUsecase) IsConfirmed(
	ctx context.Context,
	credentials map[string]string,
	identityFields ...string,
) (bool, error) {
	user, err := u.findByIdentity(ctx, credentials, identityFields)
	if err != nil {
		return false, err
	}

	return user != nil && user.Confirmed, nil
}

func (u *userUsecase) Login(ctx context.Context, params LoginParams) (*model.User, error) {
	user, err := u.userRepo.GetUserByIdentity(ctx, params.Credentials, u.opts.IdentityFields...)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if ok, err := u.hasher.Check(params.Password, user.Password); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	if u.opts.SignupConfirm && !user.Confirmed {
		return nil, ErrUserNotConfirmed
	}

	if params.Remember {
		token, err := security.RandomToken(security.TokenBytes)
		if err != nil {
			return nil, err
		}
		if err := u.userRepo.UpdateRememberToken(ctx, user.ID, token); err != nil {
			return nil, err
		}
		user.RememberToken = token
	}

	return user, nil
}

func (u *userUsecase) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.userRepo.GetUserByEmail(ctx, email)
}

func (u *userUsecase) findByIdentity(
	ctx context.Context,
	credentials map[string]string,
	identityFields []string,
) (*model.User, error) {
	if len(identityFields) == 0 {
		identityFields = legacyIdentityFields
	}

	user, err := u.userRepo.GetUserByIdentity(ctx, credentials, identityFields...)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

func (u *userUsecase) duplicated() error {
	return validation.NewFailure(DuplicatedField, u.trans.Get(translator.KeyDuplicatedCredentials))
}
