package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/irdebg/internal/lockout"
	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used to send mail
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails the account owner when their address gets locked out.
// Phone identifiers are skipped.
type SESLockoutNotifier struct {
	sesClient   SESAPI
	fromAddress string
	supportURL  string
	logger      *slog.Logger
}

// NewSESLockoutNotifier creates a notifier using the default AWS credential chain
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress, supportURL string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, supportURL, logger), nil
}

// NewSESLockoutNotifierWithClient creates a notifier around an existing SES client
func NewSESLockoutNotifierWithClient(client SESAPI, fromAddress, supportURL string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		supportURL:  supportURL,
		logger:      logger,
	}
}

// NotifyLocked implements lockout.Notifier
func (n *SESLockoutNotifier) NotifyLocked(ctx context.Context, identifier string, status lockout.Status) error {
	if !strings.Contains(identifier, "@") {
		return nil
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>Account temporarily locked</h2>
    <p>We blocked sign-in to your account after several failed password attempts.</p>
    <p>You can try again in about <strong>%d minutes</strong>.</p>
    <p>If this wasn't you, reset your password: <a href="%s">%s</a></p>
    <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, status.MinutesRemaining, n.supportURL, n.supportURL)

	textBody := fmt.Sprintf(`Account temporarily locked

We blocked sign-in to your account after several failed password attempts.
You can try again in about %d minutes.

If this wasn't you, reset your password: %s

This is an automated message. Please do not reply to this email.
`, status.MinutesRemaining, n.supportURL)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{identifier},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout email sent",
		slog.String("email", pkglogger.SanitizedEmail(identifier)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
