package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"community-bot/internal/membership"
)

type sesSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails operator alerts.
type SESNotifier struct {
	client sesSender
	from   string
	to     []string
}

func NewSESNotifier(ctx context.Context, region, from string, to []string) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESNotifier{client: ses.NewFromConfig(cfg), from: from, to: to}, nil
}

func (n *SESNotifier) Notify(ctx context.Context, subject, message string) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(n.from),
		Destination: &types.Destination{ToAddresses: n.to},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(message), Charset: awssdk.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// MultiNotifier delivers to every notifier and joins their errors.
type MultiNotifier []membership.Notifier

func (m MultiNotifier) Notify(ctx context.Context, subject, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
