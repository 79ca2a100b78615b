// Package config loads YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const configDir = "configs"

// New returns a viper instance for serviceName.
//
// CONFIG_PATH may name a YAML file or a directory; by default
// configs/{APP_ENV}/{serviceName}.yaml and then configs/{serviceName}.yaml are
// tried. A missing file is not an error: every key can come from the
// environment as {SERVICENAME}_{SECTION}_{KEY}.
func New(serviceName string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configPath := os.Getenv("CONFIG_PATH")
	switch {
	case strings.HasSuffix(configPath, ".yaml") || strings.HasSuffix(configPath, ".yml"):
		v.SetConfigFile(configPath)
	case configPath != "":
		v.SetConfigName(serviceName)
		v.AddConfigPath(configPath)
	default:
		v.SetConfigName(serviceName)
		v.AddConfigPath(filepath.Join(configDir, env))
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Load reads the configuration for serviceName into out. defaults are applied
// first so that environment variables for keys absent from the file are still
// picked up.
func Load(serviceName string, out interface{}, defaults map[string]interface{}) error {
	v, err := New(serviceName)
	if err != nil {
		return err
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}
