// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "AUTHCORE_"

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment, then any flags in fs that were
// explicitly set. The result is not validated.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "load environment").
			Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey(fs)), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "decode config").
			Wrap(err)
	}
	return cfg, nil
}

// envKey maps AUTHCORE_SECTION__NESTED__FIELD to section.nested.field. A
// variable without "__" splits at its first underscore, so
// AUTHCORE_AUTH_SIGNING_SECRET is auth.signing_secret.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	return section + "." + field
}

// flagKeys maps the flags RegisterFlags adds to their config keys.
var flagKeys = map[string]string{
	"http-addr":             "http.addr",
	"metrics-addr":          "metrics.addr",
	"log-format":            "log.format",
	"database-url":          "database.url",
	"database-auto-migrate": "database.auto_migrate",
	"notify-provider":       "notify.provider",
}

// flagKey maps explicitly set flags to config keys. Unset flags and flags
// Load does not own are skipped, so flag defaults never mask file or
// environment values.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// RegisterFlags adds the command line overrides Load understands.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "address the auth API listens on")
	fs.String("metrics-addr", d.Metrics.Addr, "address the metrics and health server listens on (empty disables it)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.Bool("database-auto-migrate", d.Database.AutoMigrate, "apply pending migrations at startup")
	fs.String("notify-provider", d.Notify.Provider, "mail provider (log, mailgun or sendgrid)")
}
