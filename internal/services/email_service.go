package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
)

// Mailer delivers password reset links
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// SESAPI is the subset of the SES client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends reset links through AWS SES
type SESMailer struct {
	client      SESAPI
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewSESMailer loads the default AWS credential chain for region
func NewSESMailer(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESMailerWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

func NewSESMailerWithClient(client SESAPI, fromAddress, baseURL string, logger *slog.Logger) *SESMailer {
	return &SESMailer{
		client:      client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

func resetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", baseURL, url.QueryEscape(token))
}

func (m *SESMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := resetLink(m.baseURL, token)
	expiry := expiresAt.UTC().Format("02/01/2006 15:04 MST")

	textBody := fmt.Sprintf(`Redefinição de senha

Recebemos um pedido para redefinir a sua senha. Use o link abaixo até %s:

%s

Se você não fez este pedido, ignore este email.
`, expiry, link)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Redefinição de senha</h2>
    <p>Recebemos um pedido para redefinir a sua senha. Use o link abaixo até %s:</p>
    <p><a href="%s">Redefinir senha</a></p>
    <p style="color: #666; font-size: 12px;">Se você não fez este pedido, ignore este email.</p>
</body>
</html>
`, expiry, link)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Redefinição de senha")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send password reset email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("password reset email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// LogMailer writes reset links to the log. Used when SES is not configured.
type LogMailer struct {
	baseURL string
	logger  *slog.Logger
}

func NewLogMailer(baseURL string, logger *slog.Logger) *LogMailer {
	return &LogMailer{baseURL: baseURL, logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.logger.Info("password reset link generated",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("link", resetLink(m.baseURL, token)),
		slog.Time("expires_at", expiresAt.UTC()))
	return nil
}
