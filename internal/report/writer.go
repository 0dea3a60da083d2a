package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

type S3ClientProvider interface {
	S3(region, roleArn string) (s3iface.S3API, error)
}

type RunReport struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id,omitempty"`
	Status     string          `json:"status"`
	ExitCode   int             `json:"exit_code"`
	BucketName string          `json:"bucket_name"`
	Region     string          `json:"region"`
	S3Host     string          `json:"s3_host"`
	Focus      string          `json:"focus"`
	Output     string          `json:"output"`
	Summary    *runner.Summary `json:"summary,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// S3Writer stores a JSON report of every run in a log bucket.
type S3Writer struct {
	config  Config
	clients S3ClientProvider
	logger  *zap.Logger
	now     func() time.Time
}

func NewS3Writer(config Config, clients S3ClientProvider, logger *zap.Logger) *S3Writer {
	return &S3Writer{
		config:  config,
		clients: clients,
		logger:  logger,
		now:     getNowInUTC,
	}
}

func getNowInUTC() time.Time {
	return time.Now().UTC()
}

func (w *S3Writer) Report(ctx context.Context, event runner.Event, result runner.Result) {
	if err := w.write(ctx, event, result); err != nil {
		w.logger.Error("unable to write run report", zap.Error(err))
	}
}

func (w *S3Writer) write(ctx context.Context, event runner.Event, result runner.Result) error {
	now := w.now()
	report := RunReport{
		ID:         uuid.New().String(),
		Status:     StatusSuccess,
		ExitCode:   result.ExitCode,
		BucketName: event.BucketName,
		Region:     event.Region,
		S3Host:     event.S3Host,
		Focus:      runner.Focus,
		Output:     result.Output,
		Summary:    result.Summary,
		Timestamp:  now.Unix(),
	}
	if !result.OK() {
		report.Status = StatusFailure
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		report.RequestID = lc.AwsRequestID
	}

	key := reportKey(w.config.Prefix, now, report)

	s3Client, err := w.clients.S3(w.config.Region, w.config.RoleArn)
	if err != nil {
		return oops.Code("report_failed").Wrap(err)
	}

	serializedData, err := json.Marshal(report)
	if err != nil {
		return oops.Code("report_failed").Wrap(err)
	}

	input := s3.PutObjectInput{
		Bucket:      aws.String(w.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(serializedData),
		ContentType: aws.String("application/json"),
	}

	_, err = s3Client.PutObjectWithContext(ctx, &input)
	if err != nil {
		return oops.Code("report_failed").
			With("bucket", w.config.Bucket).
			With("key", key).
			Wrapf(err, "unable to put report")
	}

	w.logger.Info("wrote run report", zap.String("bucket", w.config.Bucket), zap.String("key", key))
	return nil
}

// reportKey shards reports into five minute buckets so a listing of one
// window stays small.
func reportKey(prefix string, now time.Time, report RunReport) string {
	dateShard := "dt=" + now.Truncate(5*time.Minute).Format("2006-01-02-15-04")
	name := fmt.Sprintf("%s~%s~%d", report.Status, report.ID, report.Timestamp)
	return path.Join(prefix, dateShard, name)
}
