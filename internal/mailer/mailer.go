package mailer

import (
	"context"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/loomline/storefront-backend/pkg/config"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// Service sends transactional order email.
type Service interface {
	SendOrderConfirmation(ctx context.Context, email OrderEmail) error
	SendOrderReceipt(ctx context.Context, email OrderEmail) error
}

// sender is the part of *mail.Client the service uses, split out so tests
// can capture outgoing messages.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type service struct {
	sender sender
	from   string
	logg   *logger.Logger
}

// NewService builds the SMTP-backed mailer from config.
func NewService(cfg config.SMTPConfig, logg *logger.Logger) (Service, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp host required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp from address required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if strings.TrimSpace(cfg.Username) != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building smtp client")
	}

	return &service{sender: client, from: from, logg: logg}, nil
}

func (s *service) SendOrderConfirmation(ctx context.Context, email OrderEmail) error {
	subject, body, err := renderOrderConfirmation(email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering confirmation email")
	}
	return s.send(ctx, email.Email, subject, body, "order confirmation sent")
}

func (s *service) SendOrderReceipt(ctx context.Context, email OrderEmail) error {
	subject, body, err := renderOrderReceipt(email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering receipt email")
	}
	return s.send(ctx, email.Email, subject, body, "order receipt sent")
}

func (s *service) send(ctx context.Context, to, subject, htmlBody, logMsg string) error {
	if strings.TrimSpace(to) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "setting from address")
	}
	if err := msg.To(to); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "setting recipient")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending email")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"subject": subject}), logMsg)
	}
	return nil
}
