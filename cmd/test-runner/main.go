package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/cloudfoundry/s3cli-test-runner/internal/config"
	"github.com/cloudfoundry/s3cli-test-runner/internal/report"
	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

type invokeResponse struct {
	runner.Result
	Error string `json:"error,omitempty"`
}

// statusFor maps a handler outcome onto an HTTP status for the API Gateway
// and local entrypoints.
func statusFor(err error) int {
	var missing *runner.MissingFieldError
	var failure *runner.TestFailureError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case isCode(err, "invalid_event"):
		return http.StatusBadRequest
	case errors.As(err, &failure):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func isCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

func invoke(ctx context.Context, handler *runner.Handler, body []byte) (int, []byte) {
	result, err := handler.HandleRaw(ctx, body)

	resp := invokeResponse{Result: result}
	if err != nil {
		resp.Error = err.Error()
	}

	data, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return http.StatusInternalServerError, []byte(`{"error":"unable to encode response"}`)
	}
	return statusFor(err), data
}

func newApiGatewayHandler(handler *runner.Handler) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		status, body := invoke(ctx, handler, []byte(request.Body))
		return events.APIGatewayProxyResponse{
			Body:       string(body),
			StatusCode: status,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, nil
	}
}

func newLogger() (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	return logger, level, err
}

func newReporters(cfg config.Config, logger *zap.Logger) (reporters []runner.Reporter, cleanup func()) {
	cleanup = func() {}
	if cfg.Report.Bucket == "" && cfg.Notify.TopicArn == "" && cfg.Notify.QueueURL == "" {
		return
	}

	clientManager := report.NewClientManager(cfg.Report.ClientTTLSeconds)
	cleanup = clientManager.Close

	if cfg.Report.Bucket != "" {
		reporters = append(reporters, report.NewS3Writer(cfg.Report, clientManager, logger))
	}
	if cfg.Notify.TopicArn != "" || cfg.Notify.QueueURL != "" {
		reporters = append(reporters, report.NewNotifier(cfg.Notify, clientManager, logger))
	}
	return
}

func main() {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	cfg, err := config.Load(configDir, os.LookupEnv)
	if err != nil {
		log.Fatalln("Unable to load config", err)
	}

	logger, level, err := newLogger()
	if err != nil {
		log.Fatalln("Unable to create logger", err)
	}
	defer logger.Sync()

	reporters, cleanup := newReporters(cfg, logger)
	defer cleanup()

	handler := runner.NewHandler(cfg.Config, logger, level, runner.WithReporters(reporters...))

	lambdaEnv := os.Getenv("LAMBDA_ENVIRONMENT")
	logger.Info("starting test runner", zap.String("mode", lambdaEnv))

	switch lambdaEnv {
	case "API_GATEWAY":
		lambda.Start(newApiGatewayHandler(handler))
	case "LOCAL":
		if err := newLocalServer(handler).Listen(cfg.Local.ListenAddr); err != nil {
			logger.Fatal("local server stopped", zap.Error(err))
		}
	default:
		lambda.Start(handler.HandleRaw)
	}
}
