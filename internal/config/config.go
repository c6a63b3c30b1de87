// Package config loads screen-capture settings from defaults, an optional
// YAML file and CAPTURE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/logging"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CAPTURE"

// Config is the effective process configuration.
type Config struct {
	// Capture defaults used when no explicit options are supplied.
	ChunkDurationMs uint64 `mapstructure:"chunk_duration_ms" yaml:"chunk_duration_ms"`
	CaptureMic      bool   `mapstructure:"capture_mic" yaml:"capture_mic"`
	DebugSave       bool   `mapstructure:"debug_save" yaml:"debug_save"`
	TargetWindow    string `mapstructure:"target_window" yaml:"target_window,omitempty"`

	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir"`

	// Audio device selectors. Empty uses the platform default.
	SystemAudioDevice string `mapstructure:"system_audio_device" yaml:"system_audio_device,omitempty"`
	MicDevice         string `mapstructure:"mic_device" yaml:"mic_device,omitempty"`

	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty"`

	MQTT MQTTConfig `mapstructure:"mqtt" yaml:"mqtt"`
}

// MQTTConfig configures the remote control plane. Disabled when Broker is
// empty.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker" yaml:"broker,omitempty"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	QoS         int    `mapstructure:"qos" yaml:"qos"`
	Username    string `mapstructure:"username" yaml:"username,omitempty"`
	Password    string `mapstructure:"password" yaml:"-"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ChunkDurationMs: 5000,
		DebugDir:        "debug_chunks",
		LogFormat:       "text",
		LogLevel:        "info",
		MQTT: MQTTConfig{
			ClientID:    "screen-capture",
			TopicPrefix: "screen-capture",
			QoS:         1,
		},
	}
}

// Load reads cfgFile (or screen-capture.yaml from the working directory or
// the user config dir when cfgFile is empty), then applies CAPTURE_*
// environment overrides. A missing default config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := newViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("screen-capture")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newViper returns a viper instance with defaults registered for every key,
// so AutomaticEnv can override any of them.
func newViper() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("chunk_duration_ms", d.ChunkDurationMs)
	v.SetDefault("capture_mic", d.CaptureMic)
	v.SetDefault("debug_save", d.DebugSave)
	v.SetDefault("target_window", d.TargetWindow)
	v.SetDefault("debug_dir", d.DebugDir)
	v.SetDefault("system_audio_device", d.SystemAudioDevice)
	v.SetDefault("mic_device", d.MicDevice)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("mqtt.qos", d.MQTT.QoS)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Validate checks field ranges and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	if c.DebugDir == "" {
		errs = append(errs, errors.New("debug_dir must not be empty"))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.MQTT.Enabled() && strings.Trim(c.MQTT.TopicPrefix, "/") == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix must not be empty when a broker is configured"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// YAML renders the configuration as YAML. Secrets are omitted.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: encode yaml: %w", err)
	}
	return out, nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "screen-capture")
}
