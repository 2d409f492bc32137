package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/config"
	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
	"github.com/vasapolrittideah/confide-mongo/shared/mailer"
	"github.com/vasapolrittideah/confide-mongo/shared/translator"
)

//go:embed views/*.html
var defaultViews embed.FS

// Notifier delivers the emails triggered by the user lifecycle.
type Notifier interface {
	// AccountConfirmation sends the confirmation link to a newly stored user.
	AccountConfirmation(ctx context.Context, user *model.User) error

	// PasswordReset sends the reset link carrying token.
	PasswordReset(ctx context.Context, user *model.User, token string) error
}

// Translator resolves email subjects.
type Translator interface {
	Get(key string, params ...string) string
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) AccountConfirmation(context.Context, *model.User) error { return nil }

func (NopNotifier) PasswordReset(context.Context, *model.User, string) error { return nil }

// MailNotifier renders the configured views and sends them by email.
type MailNotifier struct {
	logger *zerolog.Logger
	sender mailer.Sender
	trans  Translator
	views  *template.Template
	cfg    config.EmailConfig
}

type viewData struct {
	User  *model.User
	Token string
	Link  string
}

// NewMailNotifier creates a MailNotifier. Both configured views must exist.
func NewMailNotifier(
	logger *zerolog.Logger,
	sender mailer.Sender,
	trans Translator,
	cfg config.EmailConfig,
) (*MailNotifier, error) {
	views, err := template.ParseFS(defaultViews, "views/*.html")
	if err != nil {
		return nil, err
	}

	for _, name := range []string{cfg.AccountConfirmation, cfg.ResetPassword} {
		if views.Lookup(name) == nil {
			return nil, fmt.Errorf("email view %q not found", name)
		}
	}

	return &MailNotifier{
		logger: logger,
		sender: sender,
		trans:  trans,
		views:  views,
		cfg:    cfg,
	}, nil
}

func (n *MailNotifier) AccountConfirmation(ctx context.Context, user *model.User) error {
	return n.send(ctx, user, translator.KeyAccountConfirmationSubject, n.cfg.AccountConfirmation, viewData{
		User: user,
		Link: n.link("users", "confirm", user.ConfirmationCode),
	})
}

func (n *MailNotifier) PasswordReset(ctx context.Context, user *model.User, token string) error {
	return n.send(ctx, user, translator.KeyPasswordResetSubject, n.cfg.ResetPassword, viewData{
		User:  user,
		Token: token,
		Link:  n.link("users", "reset-password", token),
	})
}

func (n *MailNotifier) send(ctx context.Context, user *model.User, subjectKey, view string, data viewData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := n.views.ExecuteTemplate(&body, view, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", view, err)
	}

	err := n.sender.Send(mailer.Email{
		To:       []string{user.Email},
		Subject:  n.trans.Get(subjectKey),
		HTMLBody: body.String(),
	})
	if err != nil {
		n.logger.Error().Err(err).Str("view", view).Str("email", user.Email).Msg("failed to send email")
		return err
	}

	n.logger.Info().Str("view", view).Str("email", user.Email).Msg("email sent")
	return nil
}

func (n *MailNotifier) link(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	return strings.TrimRight(n.cfg.AppURL, "/") + "/" + strings.Join(escaped, "/")
}
