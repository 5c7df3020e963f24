package config

import "time"

const (
	defaultConfigPath        = "~/.config/rawwatch/config.toml"
	defaultInputDir          = "~/rawwatch/upload"
	defaultOutputDir         = "~/rawwatch/converted"
	defaultStateDir          = "~/.local/share/rawwatch"
	defaultLogDir            = "~/.local/share/rawwatch/logs"
	defaultDecoderBinary     = "dcraw"
	defaultDecoderTimeout    = 300
	defaultJPEGQuality       = 95
	defaultHeartbeatInterval = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultLogMaxSizeMB      = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Decoder: Decoder{
			Binary:         defaultDecoderBinary,
			TimeoutSeconds: defaultDecoderTimeout,
		},
		Encoder: Encoder{
			Quality: defaultJPEGQuality,
		},
		Watch: Watch{
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
		},
	}
}

// DecoderTimeout returns the per-file decoder timeout.
func (c *Config) DecoderTimeout() time.Duration {
	return time.Duration(c.Decoder.TimeoutSeconds) * time.Second
}

// HeartbeatInterval returns the watch loop liveness interval.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Watch.HeartbeatInterval) * time.Second
}

// SettleDelay returns the delay between a trigger and the rescan it causes.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watch.SettleDelayMillis) * time.Millisecond
}
