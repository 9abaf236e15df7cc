// Package config loads dit settings from flags, environment and an optional
// TOML file.
//
// Precedence, highest first: bound flags, DIT_* environment variables, the
// config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = ".dit"
	configType = "toml"

	// FileName is the config file looked up in the working and home
	// directories.
	FileName = configName + "." + configType

	// EnvPrefix prefixes environment overrides, e.g. DIT_PERIOD.
	EnvPrefix = "DIT"

	configFileMode = 0o644
)

// Keys.
const (
	KeyFile        = "file"
	KeyFormat      = "format"
	KeyVerbose     = "verbose"
	KeyPeriod      = "period"
	KeyMaxAttempts = "max_attempts"
	KeyDatabase    = "database"
)

// Defaults.
const (
	DefaultFile     = ".dit"
	DefaultFormat   = "text"
	DefaultPeriod   = 65536
	DefaultDatabase = ".dit.db"
)

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config holds resolved settings.
type Config struct {
	// File is the log file path.
	File string `toml:"file" mapstructure:"file" json:"file"`

	// Format is the CLI output format.
	Format string `toml:"format" mapstructure:"format" json:"format"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose" mapstructure:"verbose" json:"verbose"`

	// Period is the number of mining attempts between progress reports.
	Period uint32 `toml:"period" mapstructure:"period" json:"period"`

	// MaxAttempts bounds each mining run; 0 is unbounded.
	MaxAttempts uint64 `toml:"max_attempts" mapstructure:"max_attempts" json:"max_attempts"`

	// Database is the SQLite mirror path used by index.
	Database string `toml:"database" mapstructure:"database" json:"database"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		File:     DefaultFile,
		Format:   DefaultFormat,
		Period:   DefaultPeriod,
		Database: DefaultDatabase,
	}
}

// Load resolves settings into v and decodes them. An explicit path must
// exist; without one, a missing FileName in the working or home directory is
// not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	def := Default()
	v.SetDefault(KeyFile, def.File)
	v.SetDefault(KeyFormat, def.Format)
	v.SetDefault(KeyVerbose, def.Verbose)
	v.SetDefault(KeyPeriod, def.Period)
	v.SetDefault(KeyMaxAttempts, def.MaxAttempts)
	v.SetDefault(KeyDatabase, def.Database)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.File == "" {
		return errors.New("config: file is empty")
	}
	for _, f := range ValidFormats {
		if c.Format == f {
			return nil
		}
	}
	return fmt.Errorf("config: invalid format %q (valid: %s)", c.Format, strings.Join(ValidFormats, ", "))
}

// Encode renders the config as TOML.
func (c Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Decode parses TOML produced by Encode, starting from defaults.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// WriteFile writes c to path. It refuses to overwrite an existing file.
func WriteFile(path string, c Config) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, configFileMode)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}
