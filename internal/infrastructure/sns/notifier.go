package sns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/sos-api/internal/config"
	"github.com/sos-api/internal/domain"
)

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier delivers SMS through AWS SNS direct-to-phone publishing.
// Transport errors are reported as a Failed outcome, never returned.
type Notifier struct {
	client   publisher
	senderID string
}

// NewNotifier builds an SNS-backed notifier from cfg. It fails when SMS is
// disabled or the AWS configuration cannot be loaded; callers fall back to
// Unconfigured in that case.
func NewNotifier(cfg *config.Config) (*Notifier, error) {
	if !cfg.SMSEnabled {
		return nil, errors.New("sms disabled (SMS_ENABLED=false)")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config for sns: %w", err)
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newNotifier(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSSenderID), nil
}

func newNotifier(client publisher, senderID string) *Notifier {
	return &Notifier{client: client, senderID: senderID}
}

func (n *Notifier) Send(ctx context.Context, to, message string) (outcome domain.DeliveryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sns publish panicked", "to", to, "panic", r)
			outcome = domain.OutcomeFailed(fmt.Sprint(r))
		}
	}()

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if n.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(n.senderID)}
	}
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return domain.OutcomeFailed(errorDetail(err))
	}
	return domain.OutcomeSent()
}

// errorDetail prefers the service's own message over the SDK's wrapped chain.
func errorDetail(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorMessage() != "" {
		return ae.ErrorMessage()
	}
	return err.Error()
}

// Unconfigured is the notifier used when no SMS transport is available.
// Every send reports DeliveryUnconfiguredKind so alerts are logged for
// manual follow-up instead of counted as failures.
type Unconfigured struct{}

func (Unconfigured) Send(_ context.Context, to, _ string) domain.DeliveryOutcome {
	slog.Info("sms not configured; emergency notification logged", "to", to)
	return domain.OutcomeUnconfigured()
}
