// internal/gateway/sns.go
package gateway

import (
	"context"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the slice of the SNS API we use, split out for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender delivers notifications as SMS via AWS SNS.
type SNSSender struct {
	client   SNSService
	senderID string
}

func NewSNSSender(client SNSService, senderID string) *SNSSender {
	return &SNSSender{client: client, senderID: senderID}
}

func (s *SNSSender) Channel() string {
	return models.ChannelSMS
}

func (s *SNSSender) Send(ctx context.Context, msg Message) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.Address),
		Message:     aws.String(msg.Body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", apperrors.NewGatewaySendFailedError(err.Error(), true)
	}
	return aws.ToString(out.MessageId), nil
}
