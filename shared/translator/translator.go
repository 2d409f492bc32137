package translator

import (
	"fmt"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
)

// Message keys shared by the confide flows.
const (
	KeyDuplicatedCredentials      = "confide.alerts.duplicated_credentials"
	KeyWrongCredentials           = "confide.alerts.wrong_credentials"
	KeyNotConfirmed               = "confide.alerts.not_confirmed"
	KeyConfirmation               = "confide.alerts.confirmation"
	KeyWrongConfirmation          = "confide.alerts.wrong_confirmation"
	KeyPasswordReset              = "confide.alerts.password_reset"
	KeyWrongPasswordReset         = "confide.alerts.wrong_password_reset"
	KeyAccountConfirmationSubject = "confide.email.account_confirmation.subject"
	KeyPasswordResetSubject       = "confide.email.password_reset.subject"
)

var catalogs = map[string]map[string]string{
	"en": {
		KeyDuplicatedCredentials:      "The credentials provided have already been used. Try with a different username or email.",
		KeyWrongCredentials:           "Incorrect username, email or password.",
		KeyNotConfirmed:               "Your account may not be confirmed. Check your email for the confirmation link.",
		KeyConfirmation:               "Your account has been confirmed! You may now login.",
		KeyWrongConfirmation:          "Wrong confirmation code.",
		KeyPasswordReset:              "Your password has been changed successfully.",
		KeyWrongPasswordReset:         "Invalid password. Try again.",
		KeyAccountConfirmationSubject: "Account Confirmation",
		KeyPasswordResetSubject:       "Password Reset",
	},
	"pt_BR": {
		KeyDuplicatedCredentials:      "As credenciais fornecidas já foram utilizadas. Tente com outro nome de usuário ou email.",
		KeyWrongCredentials:           "Usuário, email ou senha incorretos.",
		KeyNotConfirmed:               "Sua conta pode não ter sido confirmada. Verifique seu email.",
		KeyConfirmation:               "Sua conta foi confirmada! Você pode fazer login.",
		KeyWrongConfirmation:          "Código de confirmação incorreto.",
		KeyPasswordReset:              "Sua senha foi alterada com sucesso.",
		KeyWrongPasswordReset:         "Senha inválida. Tente novamente.",
		KeyAccountConfirmationSubject: "Confirmação de conta",
		KeyPasswordResetSubject:       "Redefinição de senha",
	},
}

// Translator resolves localized messages by key.
type Translator struct {
	trans ut.Translator
}

// New creates a Translator for the given locale ("en" or "pt_BR").
func New(locale string) (*Translator, error) {
	english := en.New()
	uni := ut.New(english, english, pt_BR.New())

	trans, found := uni.GetTranslator(locale)
	if !found {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}

	for key, text := range catalogs[trans.Locale()] {
		if err := trans.Add(key, text, false); err != nil {
			return nil, fmt.Errorf("failed to register %q: %w", key, err)
		}
	}

	return &Translator{trans: trans}, nil
}

// Get returns the message for key, or the key itself when it is unknown.
func (t *Translator) Get(key string, params ...string) string {
	msg, err := t.trans.T(key, params...)
	if err != nil {
		return key
	}

	return msg
}

// Locale returns the active locale name.
func (t *Translator) Locale() string {
	return t.trans.Locale()
}

// Universal exposes the underlying translator, e.g. for validator message registration.
func (t *Translator) Universal() ut.Translator {
	return t.trans
}
