package runner

import "fmt"

const (
	S3CLIPathEnv  = "S3_CLI_PATH"
	BucketNameEnv = "BUCKET_NAME"
	RegionEnv     = "REGION"
	S3HostEnv     = "S3_HOST"

	DefaultBinary    = "./integration.test"
	Focus            = "AWS STANDARD IAM ROLE"
	DefaultS3CLIPath = "echo"

	OutputMarker = "INTEGRATION TEST OUTPUT:"
	StatusMarker = "INTEGRATION TEST EXITED WITH STATUS: "
)

type Event struct {
	BucketName string `json:"bucket_name"`
	Region     string `json:"region"`
	S3Host     string `json:"s3_host"`
}

// Environment is the set of variables handed to the test binary on top of
// the parent process environment.
type Environment struct {
	S3CLIPath  string
	BucketName string
	Region     string
	S3Host     string
}

func NewEnvironment(s3CLIPath string, event Event) Environment {
	return Environment{
		S3CLIPath:  s3CLIPath,
		BucketName: event.BucketName,
		Region:     event.Region,
		S3Host:     event.S3Host,
	}
}

// Vars returns the variables in KEY=value form, in a fixed order.
func (e Environment) Vars() []string {
	return []string{
		S3CLIPathEnv + "=" + e.S3CLIPath,
		BucketNameEnv + "=" + e.BucketName,
		RegionEnv + "=" + e.Region,
		S3HostEnv + "=" + e.S3Host,
	}
}

// Merge appends the variables to base. Later entries win in os/exec, so the
// returned slice overrides any inherited value with the same key.
func (e Environment) Merge(base []string) []string {
	env := make([]string, 0, len(base)+4)
	env = append(env, base...)
	return append(env, e.Vars()...)
}

type Config struct {
	Binary       string `yaml:"binary"`
	S3CLIPath    string `yaml:"s3_cli_path"`
	WorkDir      string `yaml:"work_dir"`
	StreamOutput bool   `yaml:"stream_output"`
}

func DefaultConfig() Config {
	return Config{
		Binary:    DefaultBinary,
		S3CLIPath: DefaultS3CLIPath,
	}
}

// Args are the flags passed to the ginkgo test binary. They do not depend on
// configuration or on the event.
func (c Config) Args() []string {
	return []string{"-ginkgo.focus", Focus, "-ginkgo.noColor"}
}

// Result is the outcome of one test binary run.
type Result struct {
	Output   string   `json:"output"`
	ExitCode int      `json:"exit_code"`
	Summary  *Summary `json:"summary,omitempty"`
}

func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Err returns a *TestFailureError for a non-zero exit and nil otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &TestFailureError{ExitCode: r.ExitCode, Output: r.Output}
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("event is missing required field %q", e.Field)
}

type TestFailureError struct {
	ExitCode int
	Output   string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("integration test exited with status %d", e.ExitCode)
}
