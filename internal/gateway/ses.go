// internal/gateway/ses.go
package gateway

import (
	"context"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES API we use, split out for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers notifications over email via AWS SES.
type SESSender struct {
	client    SESService
	fromEmail string
}

func NewSESSender(client SESService, fromEmail string) *SESSender {
	return &SESSender{client: client, fromEmail: fromEmail}
}

func (s *SESSender) Channel() string {
	return models.ChannelEmail
}

func (s *SESSender) Send(ctx context.Context, msg Message) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.Address},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return "", apperrors.NewGatewaySendFailedError(err.Error(), true)
	}
	return aws.ToString(out.MessageId), nil
}
