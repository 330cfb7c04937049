package services

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// MessageSender is the outbound text gateway the conversation flows reply
// through.
type MessageSender interface {
	SendText(ctx context.Context, phone, body string) error
}

type SMSService struct {
	sns *awssns.Client
}

func NewSMSService() (*SMSService, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SMSService{sns: awssns.NewFromConfig(cfg)}, nil
}

func (s *SMSService) SendText(ctx context.Context, phone, body string) error {
	_, err := s.sns.Publish(ctx, &awssns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	return err
}
