package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "WBVERIFY"
)

// Config keys.
const (
	cfgKeyBackend           = "backend"
	cfgKeyBaseDir           = "base_dir"
	cfgKeyDataDir           = "data_dir"
	cfgKeyStoreEndpoint     = "store.endpoint"
	cfgKeyStoreTimeout      = "store.timeout"
	cfgKeyExtractorEndpoint = "extractor.endpoint"
	cfgKeyExtractorTimeout  = "extractor.timeout"
	cfgKeyWaitPolicy        = "wait.policy"
	cfgKeyWaitTimeout       = "wait.timeout"
	cfgKeyWaitInterval      = "wait.interval"
	cfgKeyTagCleanup        = "tag_cleanup"
	cfgKeyLogLevel          = "log.level"
	cfgKeyLogFormat         = "log.format"
)

// defaults are the values used when config.yaml and the environment are
// silent.
var defaults = map[string]any{
	cfgKeyBackend:           types.BackendHTTP,
	cfgKeyStoreEndpoint:     "http://127.0.0.1:8890/update",
	cfgKeyStoreTimeout:      20 * time.Second,
	cfgKeyExtractorEndpoint: "http://127.0.0.1:8891",
	cfgKeyExtractorTimeout:  20 * time.Second,
	cfgKeyWaitPolicy:        types.WaitFixed,
	cfgKeyWaitTimeout:       types.DefaultWaitTimeout,
	cfgKeyWaitInterval:      250 * time.Millisecond,
	cfgKeyTagCleanup:        types.TagCleanupReference,
	cfgKeyLogLevel:          "info",
	cfgKeyLogFormat:         "console",
}

// defaultConfigHeader is prepended to the generated config.yaml.
const defaultConfigHeader = `# wbverify configuration
#
# base_dir and data_dir are optional; when unset the fixtures are staged
# under $HOME and copied from ./test-writeback-data. Every key can also be
# set through the environment, e.g. WBVERIFY_STORE_ENDPOINT.

`

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// configFromViper maps viper keys onto a types.Config.
func configFromViper(v *viper.Viper) types.Config {
	return types.Config{
		Backend: v.GetString(cfgKeyBackend),
		BaseDir: v.GetString(cfgKeyBaseDir),
		DataDir: v.GetString(cfgKeyDataDir),
		Store: types.EndpointConfig{
			Endpoint: v.GetString(cfgKeyStoreEndpoint),
			Timeout:  v.GetDuration(cfgKeyStoreTimeout),
		},
		Extractor: types.EndpointConfig{
			Endpoint: v.GetString(cfgKeyExtractorEndpoint),
			Timeout:  v.GetDuration(cfgKeyExtractorTimeout),
		},
		Wait: types.WaitConfig{
			Policy:   v.GetString(cfgKeyWaitPolicy),
			Timeout:  v.GetDuration(cfgKeyWaitTimeout),
			Interval: v.GetDuration(cfgKeyWaitInterval),
		},
		TagCleanup: v.GetString(cfgKeyTagCleanup),
		Log: types.LogConfig{
			Level:  v.GetString(cfgKeyLogLevel),
			Format: v.GetString(cfgKeyLogFormat),
		},
	}
}

// fileConfig is the YAML shape of config.yaml. Durations are written as
// strings so the file stays readable.
type fileConfig struct {
	Backend    string          `yaml:"backend"`
	BaseDir    string          `yaml:"base_dir,omitempty"`
	DataDir    string          `yaml:"data_dir,omitempty"`
	Store      fileEndpoint    `yaml:"store"`
	Extractor  fileEndpoint    `yaml:"extractor"`
	Wait       fileWait        `yaml:"wait"`
	TagCleanup string          `yaml:"tag_cleanup"`
	Log        types.LogConfig `yaml:"log"`
}

type fileEndpoint struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

type fileWait struct {
	Policy   string `yaml:"policy"`
	Timeout  string `yaml:"timeout"`
	Interval string `yaml:"interval"`
}

func toFileConfig(c types.Config) fileConfig {
	return fileConfig{
		Backend:    c.Backend,
		BaseDir:    c.BaseDir,
		DataDir:    c.DataDir,
		Store:      fileEndpoint{Endpoint: c.Store.Endpoint, Timeout: c.Store.Timeout.String()},
		Extractor:  fileEndpoint{Endpoint: c.Extractor.Endpoint, Timeout: c.Extractor.Timeout.String()},
		Wait:       fileWait{Policy: c.Wait.Policy, Timeout: c.Wait.Timeout.String(), Interval: c.Wait.Interval.String()},
		TagCleanup: c.TagCleanup,
		Log:        c.Log,
	}
}

// renderConfig returns c as YAML.
func renderConfig(c types.Config) ([]byte, error) {
	return yaml.Marshal(toFileConfig(c))
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	body, err := renderConfig(configFromViper(v))
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(defaultConfigHeader), body...), 0o644)
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := renderConfig(a.cfg)
			if err != nil {
				return sysError("render config: %w", err)
			}
			if used := a.viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}
