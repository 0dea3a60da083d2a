package report

type Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// RoleArn is assumed through STS before writing when set.
	RoleArn          string `yaml:"role_arn"`
	ClientTTLSeconds int64  `yaml:"client_ttl_seconds"`
}

type NotifyConfig struct {
	TopicArn string `yaml:"topic_arn"`
	QueueURL string `yaml:"queue_url"`
	Region   string `yaml:"region"`
}

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)
