package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/autentica/pkg/logger"
)

// sesAPI is the slice of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESCodeSender delivers email MFA codes through AWS SES
type SESCodeSender struct {
	client      sesAPI
	fromAddress string
	issuer      string
	logger      *slog.Logger
}

// NewSESCodeSender creates a sender using the default AWS credential chain
func NewSESCodeSender(ctx context.Context, region, fromAddress, issuer string, log *slog.Logger) (*SESCodeSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESCodeSender(ses.NewFromConfig(cfg), fromAddress, issuer, log), nil
}

func newSESCodeSender(client sesAPI, fromAddress, issuer string, log *slog.Logger) *SESCodeSender {
	return &SESCodeSender{
		client:      client,
		fromAddress: fromAddress,
		issuer:      issuer,
		logger:      log,
	}
}

// SendCode emails a verification code
func (s *SESCodeSender) SendCode(ctx context.Context, destination, code string, validFor time.Duration) error {
	minutes := int(validFor.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; padding: 16px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <p>Your %s verification code is:</p>
        <p class="code">%s</p>
        <p>This code expires in %d minutes. If you did not try to sign in, you can ignore this email.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, s.issuer, code, minutes)

	textBody := fmt.Sprintf(`Your %s verification code is: %s

This code expires in %d minutes. If you did not try to sign in, you can ignore this email.
`, s.issuer, code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{destination},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Your %s verification code", s.issuer)),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send verification code via SES",
			slog.String("email", logger.SanitizedEmail(destination)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification code sent",
		slog.String("email", logger.SanitizedEmail(destination)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
