package runner

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
)

// Reporter is told about every completed run. Implementations must not fail
// the invocation; they log their own errors.
type Reporter interface {
	Report(ctx context.Context, event Event, result Result)
}

type Handler struct {
	config    Config
	executor  Executor
	logger    *zap.Logger
	level     zap.AtomicLevel
	reporters []Reporter

	// environ supplies the inherited environment, os.Environ by default.
	environ func() []string
}

type Option func(*Handler)

func WithExecutor(executor Executor) Option {
	return func(h *Handler) {
		h.executor = executor
	}
}

func WithReporters(reporters ...Reporter) Option {
	return func(h *Handler) {
		h.reporters = append(h.reporters, reporters...)
	}
}

func WithEnviron(environ func() []string) Option {
	return func(h *Handler) {
		h.environ = environ
	}
}

// NewHandler builds a Handler. level must be the level the logger's core was
// built with; it is raised to debug on every invocation.
func NewHandler(config Config, logger *zap.Logger, level zap.AtomicLevel, opts ...Option) *Handler {
	h := &Handler{
		config:   config,
		executor: NewProcessExecutor(),
		logger:   logger,
		level:    level,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRaw is the Lambda entrypoint. The event stays raw until decoded so a
// missing key can be told apart from an empty value.
func (h *Handler) HandleRaw(ctx context.Context, payload json.RawMessage) (Result, error) {
	event, err := DecodeEvent(payload)
	if err != nil {
		h.logger.Error("unable to decode event", zap.Error(err))
		return Result{}, err
	}
	return h.Handle(ctx, event)
}

// Handle runs the integration test binary once for event. A non-zero exit is
// logged and returned as a *TestFailureError alongside the Result.
func (h *Handler) Handle(ctx context.Context, event Event) (Result, error) {
	env := NewEnvironment(h.config.S3CLIPath, event)

	h.level.SetLevel(zap.DebugLevel)
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With(zap.String("request_id", lc.AwsRequestID))
	}

	task := ExecTask{
		Command:     h.config.Binary,
		Args:        h.config.Args(),
		Cwd:         h.config.WorkDir,
		Env:         env.Merge(h.environ()),
		StreamStdio: h.config.StreamOutput,
	}

	logger.Info("running integration test",
		zap.String("binary", task.Command),
		zap.Strings("args", task.Args),
		zap.String("bucket_name", event.BucketName),
		zap.String("region", event.Region),
		zap.String("s3_host", event.S3Host),
	)

	res, err := h.executor.Execute(ctx, task)
	if err != nil {
		logger.Error("unable to run integration test", zap.Error(err))
		return Result{}, err
	}

	result := Result{Output: res.Output, ExitCode: res.ExitCode}
	if summary, ok := ParseSummary(res.Output); ok {
		result.Summary = &summary
		logger.Info("integration test summary",
			zap.Int("ran", summary.Ran),
			zap.Int("total", summary.Total),
			zap.Int("passed", summary.Passed),
			zap.Int("failed", summary.Failed),
		)
	}

	if result.OK() {
		logger.Debug(OutputMarker)
		logger.Debug(result.Output)
	} else {
		logger.Debug(StatusMarker + strconv.Itoa(result.ExitCode))
		logger.Debug(result.Output)
	}

	for _, r := range h.reporters {
		r.Report(ctx, event, result)
	}

	return result, result.Err()
}
