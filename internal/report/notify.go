package report

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

type NotifyClientProvider interface {
	SNS(region string) (snsiface.SNSAPI, error)
	SQS(region string) (sqsiface.SQSAPI, error)
}

// Notifier pushes a short message to a topic and/or queue when a run fails.
type Notifier struct {
	config  NotifyConfig
	clients NotifyClientProvider
	logger  *zap.Logger
}

func NewNotifier(config NotifyConfig, clients NotifyClientProvider, logger *zap.Logger) *Notifier {
	return &Notifier{
		config:  config,
		clients: clients,
		logger:  logger,
	}
}

func failureMessage(event runner.Event, result runner.Result) string {
	msg := fmt.Sprintf(
		"integration test failed with status %d (bucket=%s region=%s s3_host=%s)",
		result.ExitCode, event.BucketName, event.Region, event.S3Host)
	if result.Summary != nil {
		msg += fmt.Sprintf(": %d of %d specs failed", result.Summary.Failed, result.Summary.Ran)
	}
	return msg
}

func (n *Notifier) Report(ctx context.Context, event runner.Event, result runner.Result) {
	if result.OK() {
		return
	}

	message := failureMessage(event, result)

	if n.config.TopicArn != "" {
		if err := n.pushToTopic(ctx, message); err != nil {
			n.logger.Error("unable to publish failure", zap.Error(err))
		}
	}
	if n.config.QueueURL != "" {
		if err := n.pushToQueue(ctx, message); err != nil {
			n.logger.Error("unable to queue failure", zap.Error(err))
		}
	}
}

func (n *Notifier) pushToTopic(ctx context.Context, message string) error {
	snsClient, err := n.clients.SNS(n.config.Region)
	if err != nil {
		return oops.Code("notify_failed").Wrap(err)
	}

	snsInput := &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicArn),
		Subject:  aws.String("s3cli integration test failure"),
		Message:  aws.String(message),
	}
	snsOutput, err := snsClient.PublishWithContext(ctx, snsInput)
	if err != nil {
		return oops.Code("notify_failed").With("topic_arn", n.config.TopicArn).Wrap(err)
	}

	n.logger.Info("published failure", zap.String("message_id", aws.StringValue(snsOutput.MessageId)))
	return nil
}

func (n *Notifier) pushToQueue(ctx context.Context, message string) error {
	sqsClient, err := n.clients.SQS(n.config.Region)
	if err != nil {
		return oops.Code("notify_failed").Wrap(err)
	}

	sqsInput := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.config.QueueURL),
		MessageBody: aws.String(message),
	}
	sqsOutput, err := sqsClient.SendMessageWithContext(ctx, sqsInput)
	if err != nil {
		return oops.Code("notify_failed").With("queue_url", n.config.QueueURL).Wrap(err)
	}

	n.logger.Info("queued failure", zap.String("message_id", aws.StringValue(sqsOutput.MessageId)))
	return nil
}
