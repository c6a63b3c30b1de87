package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

// Environment overrides for the audio device selectors.
const (
	EnvSystemAudioDevice = EnvPrefix + "_SYSTEM_AUDIO_DEVICE"
	EnvMicDevice         = EnvPrefix + "_MIC_DEVICE"
)

// DeviceResolver resolves the audio device selector for a stream. The
// environment is consulted on every call, so each pipeline build sees the
// overrides current at that moment.
type DeviceResolver struct {
	v *viper.Viper
}

// NewDeviceResolver uses cfg's device fields (may be nil) as the fallback
// below the environment.
func NewDeviceResolver(cfg *Config) *DeviceResolver {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfg != nil {
		v.SetDefault("system_audio_device", cfg.SystemAudioDevice)
		v.SetDefault("mic_device", cfg.MicDevice)
	} else {
		v.SetDefault("system_audio_device", "")
		v.SetDefault("mic_device", "")
	}

	return &DeviceResolver{v: v}
}

// Device returns the configured selector for kind, or "" to use the
// platform default.
func (r *DeviceResolver) Device(kind chunk.Kind) string {
	if r == nil {
		return ""
	}
	switch kind {
	case chunk.KindSystemAudio:
		return strings.TrimSpace(r.v.GetString("system_audio_device"))
	case chunk.KindMic:
		return strings.TrimSpace(r.v.GetString("mic_device"))
	default:
		return ""
	}
}
