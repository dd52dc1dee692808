package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const appName = "extract-readme"

// Features is a list of cargo features. In config files and the environment
// it may also be written as one comma or space separated string.
type Features []string

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DocsRsConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type Config struct {
	Toolchain    string       `mapstructure:"toolchain"`
	DefaultHint  string       `mapstructure:"default_hint"`
	ResolveLinks bool         `mapstructure:"resolve_links"`
	Features     Features     `mapstructure:"features"`
	Log          LogConfig    `mapstructure:"log"`
	DocsRs       DocsRsConfig `mapstructure:"docs_rs"`
}

// cacheBase returns the base cache directory.
// Checks XDG_CACHE_HOME, then ~/.cache, then the temp dir as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// JSONCacheDir returns the path to the directory caching downloaded rustdoc
// JSON.
func JSONCacheDir() string {
	return filepath.Join(cacheBase(), "json")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, appName))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", appName))
	}

	viper.SetDefault("toolchain", "nightly")
	viper.SetDefault("default_hint", "rust")
	viper.SetDefault("resolve_links", false)
	viper.SetDefault("features", []string{})
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "auto")
	viper.SetDefault("docs_rs.base_url", "https://docs.rs")

	viper.SetEnvPrefix("EXTRACT_README")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func stringToFeaturesHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(Features{}) {
			return data, nil
		}
		if f.Kind() == reflect.String {
			return ParseFeatures(data.(string)), nil
		}
		return data, nil
	}
}

// ParseFeatures splits a feature list written the way cargo accepts it on
// the command line: names separated by commas and/or spaces.
func ParseFeatures(s string) Features {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToFeaturesHookFunc(),
		// The environment only carries strings, e.g. EXTRACT_README_RESOLVE_LINKS=1.
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Features = flattenFeatures(config.Features)
	return &config, nil
}

// flattenFeatures splits list entries that themselves hold several
// features, as in features = ["a,b", "c"].
func flattenFeatures(in Features) Features {
	var out Features
	for _, f := range in {
		out = append(out, ParseFeatures(f)...)
	}
	return out
}
