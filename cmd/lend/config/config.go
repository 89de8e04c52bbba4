// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the lend CLI's flag set and viper instance.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const Version = "v0.1.0"

const (
	ConfigFilePathKey = "config-file"
	LogLevelKey       = "log-level"
	LogJSONKey        = "log-json"
	LogFileKey        = "log-file"
	LogMaxSizeKey     = "log-max-size"
	LogMaxAgeKey      = "log-max-age"
	VersionKey        = "version"
	BackstopKey       = "backstop-address"
	EmitterGapKey     = "emitter-gap"
)

// BuildFlagSet declares the CLI flags.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("lend", pflag.ContinueOnError)
	fs.String(ConfigFilePathKey, "", "Path to an optional config file")
	fs.String(LogLevelKey, "info", "Log level: trace, debug, info, warn, error")
	fs.Bool(LogJSONKey, false, "Emit logs as JSON")
	fs.String(LogFileKey, "", "Also write logs to this file, with rotation")
	fs.Int(LogMaxSizeKey, 100, "Rotate the log file after this many megabytes")
	fs.Int(LogMaxAgeKey, 28, "Drop rotated log files older than this many days")
	fs.Bool(VersionKey, false, "Print the version and exit")
	fs.String(BackstopKey, "", "Backstop contract address to operate on")
	fs.Duration(EmitterGapKey, 24*time.Hour, "Simulated gap between emitter distributions")
	return fs
}

// BuildViper binds the flag set, environment and optional config file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("lend")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if path := v.GetString(ConfigFilePathKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// EmitterGap reads the configured distribution gap as a duration,
// accepting either a duration string or a second count.
func EmitterGap(v *viper.Viper) time.Duration {
	raw := v.Get(EmitterGapKey)
	if d, err := cast.ToDurationE(raw); err == nil {
		return d
	}
	return time.Duration(cast.ToInt64(raw)) * time.Second
}
