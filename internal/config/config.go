package config

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/samber/oops"
	uberconfig "go.uber.org/config"

	"github.com/cloudfoundry/s3cli-test-runner/internal/report"
	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

const Key = "test-runner"

type LocalConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	runner.Config `yaml:",inline"`

	Report report.Config       `yaml:"report"`
	Notify report.NotifyConfig `yaml:"notify"`
	Local  LocalConfig         `yaml:"local"`
}

func defaults() map[string]interface{} {
	d := runner.DefaultConfig()
	return map[string]interface{}{
		Key: map[string]interface{}{
			"binary":      d.Binary,
			"s3_cli_path": d.S3CLIPath,
			"local": map[string]interface{}{
				"listen_addr": ":8080",
			},
		},
	}
}

func configFiles(configDir string) ([]string, error) {
	files, err := ioutil.ReadDir(configDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var filenames []string
	for _, file := range files {
		ext := filepath.Ext(file.Name())
		if file.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		filenames = append(filenames, path.Join(configDir, file.Name()))
	}
	return filenames, nil
}

// Load reads every YAML file in configDir on top of the built-in defaults.
// ${VAR} references are expanded through lookup. A missing directory is not
// an error.
func Load(configDir string, lookup func(string) (string, bool)) (cfg Config, err error) {
	filenames, err := configFiles(configDir)
	if err != nil {
		err = oops.Code("config_invalid").With("dir", configDir).Wrapf(err, "unable to list config files")
		return
	}

	opts := []uberconfig.YAMLOption{
		uberconfig.Static(defaults()),
		uberconfig.Expand(lookup),
	}
	for _, f := range filenames {
		opts = append(opts, uberconfig.File(f))
	}

	provider, err := uberconfig.NewYAML(opts...)
	if err != nil {
		err = oops.Code("config_invalid").With("dir", configDir).Wrapf(err, "unable to load config")
		return
	}

	if err = provider.Get(Key).Populate(&cfg); err != nil {
		err = oops.Code("config_invalid").Wrapf(err, "unable to populate config")
	}
	return
}
