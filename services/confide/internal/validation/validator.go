package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	pt_BR_translations "github.com/go-playground/validator/v10/translations/pt_BR"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
	"github.com/vasapolrittideah/confide-mongo/shared/security"
)

const (
	minPasswordLength = 4
	maxPasswordLength = 11
)

var alphaDashRegex = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

var customMessages = map[string]map[string]string{
	"en": {
		"alpha_dash": "{0} may only contain letters, numbers, dashes and underscores",
		"between":    "{0} must be between {1} and {2} characters",
		"confirmed":  "{0} confirmation does not match",
	},
	"pt_BR": {
		"alpha_dash": "{0} deve conter apenas letras, números, traços e sublinhados",
		"between":    "{0} deve ter entre {1} e {2} caracteres",
		"confirmed":  "a confirmação de {0} não confere",
	},
}

// Validator validates user records and request payloads, reporting
// translated messages keyed by stored field name.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New creates a Validator whose messages use trans.
func New(trans ut.Translator) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	if err := v.RegisterValidation("alpha_dash", alphaDash); err != nil {
		return nil, err
	}
	v.RegisterStructValidation(validateUserPassword, model.User{})

	locale := trans.Locale()
	switch locale {
	case "pt_BR":
		if err := pt_BR_translations.RegisterDefaultTranslations(v, trans); err != nil {
			return nil, err
		}
	default:
		locale = "en"
		if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
			return nil, err
		}
	}

	for tag, text := range customMessages[locale] {
		if err := registerTranslation(v, trans, tag, text); err != nil {
			return nil, fmt.Errorf("failed to register %q translation: %w", tag, err)
		}
	}

	return &Validator{validate: v, trans: trans}, nil
}

// Struct validates s. It returns a *Failure for rule violations.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	failure := &Failure{Fields: map[string]string{}}
	for _, fe := range verrs {
		failure.Add(fe.Field(), fe.Translate(v.trans))
	}

	return failure
}

// User validates a user record before it is saved.
func (v *Validator) User(user *model.User) error {
	return v.Struct(user)
}

// validateUserPassword checks a pending plaintext password. Encoded hashes
// were validated when they were set.
func validateUserPassword(sl validator.StructLevel) {
	user, ok := sl.Current().Interface().(model.User)
	if !ok || user.Password == "" || security.IsHashed(user.Password) {
		return
	}

	n := utf8.RuneCountInString(user.Password)
	if n < minPasswordLength || n > maxPasswordLength {
		sl.ReportError(user.Password, "password", "Password", "between",
			fmt.Sprintf("%d,%d", minPasswordLength, maxPasswordLength))
		return
	}

	if user.Password != user.PasswordConfirmation {
		sl.ReportError(user.PasswordConfirmation, "password", "Password", "confirmed", "")
	}
}

func alphaDash(fl validator.FieldLevel) bool {
	return alphaDashRegex.MatchString(fl.Field().String())
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"bson", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}

	return ""
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) error {
	return v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			params := append([]string{fe.Field()}, strings.Split(fe.Param(), ",")...)
			msg, err := t.T(fe.Tag(), params...)
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}
