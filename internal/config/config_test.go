package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

func noEnv(string) (string, bool) {
	return "", false
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing"), noEnv)
	require.NoError(t, err)

	assert.Equal(t, runner.DefaultConfig(), cfg.Config)
	assert.Equal(t, ":8080", cfg.Local.ListenAddr)
	assert.Empty(t, cfg.Report.Bucket)
	assert.Empty(t, cfg.Notify.TopicArn)
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
test-runner:
  s3_cli_path: /var/task/s3cli
  work_dir: /var/task
  report:
    bucket: run-logs
    prefix: s3cli
    region: us-east-1
`)
	writeConfig(t, dir, "notes.txt", "ignored: [")

	cfg, err := Load(dir, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "/var/task/s3cli", cfg.S3CLIPath)
	assert.Equal(t, "/var/task", cfg.WorkDir)
	assert.Equal(t, runner.DefaultBinary, cfg.Binary)
	assert.Equal(t, "run-logs", cfg.Report.Bucket)
	assert.Equal(t, "s3cli", cfg.Report.Prefix)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "notify.yml", `
test-runner:
  notify:
    topic_arn: ${FAILURE_TOPIC}
    region: ${NOTIFY_REGION:us-west-2}
`)

	lookup := func(key string) (string, bool) {
		if key == "FAILURE_TOPIC" {
			return "arn:aws:sns:us-west-2:1:failures", true
		}
		return "", false
	}

	cfg, err := Load(dir, lookup)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:us-west-2:1:failures", cfg.Notify.TopicArn)
	assert.Equal(t, "us-west-2", cfg.Notify.Region)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "bad.yaml", "test-runner: [")

	_, err := Load(dir, os.LookupEnv)
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "config_invalid", oopsErr.Code())
}
