package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides holds secret values that may be supplied via environment
// variables instead of the config file. Environment wins over file.
type envOverrides struct {
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
}

// Load reads and parses configuration from a file. If configPath is a
// directory, config.yaml inside it is used.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", absPath, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides layers LICENSEGW_* environment variables over file values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("licensegw", &env); err != nil {
		return fmt.Errorf("process environment overrides: %w", err)
	}
	if env.WebhookSecret != "" {
		cfg.Webhook.Secret = env.WebhookSecret
	}
	if env.SMTPPassword != "" {
		cfg.Mail.SMTPPassword = env.SMTPPassword
	}
	return nil
}

// Validate checks structural constraints on the loaded configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			first := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %q check", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	// Constraints the tag grammar cannot express.
	if c.Webhook.Path[0] != '/' {
		return fmt.Errorf("invalid config: webhook.path must start with '/'")
	}
	return nil
}
