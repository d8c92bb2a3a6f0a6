package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
service:
  name: licensegw
  log_level: debug
webhook:
  listen: "0.0.0.0:9000"
  secret: "super-secret-webhook-key"
product:
  match: hakpak
generator:
  command: /opt/licensegw/generate_license.sh
  validity_days: 180
  timeout: 90s
mail:
  smtp_host: smtp.example.com
  smtp_username: licenses@phanesguild.com
  smtp_password: file-password
  from_email: licenses@phanesguild.com
  operator_email: ops@phanesguild.com
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	// From file.
	assert.Equal(t, "0.0.0.0:9000", cfg.Webhook.Listen)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, 180, cfg.Generator.ValidityDays)
	assert.Equal(t, 90*time.Second, cfg.Generator.Timeout)

	// Defaults survive where the file is silent.
	assert.Equal(t, "/webhook/orders", cfg.Webhook.Path)
	assert.Equal(t, "X-Shopify-Hmac-Sha256", cfg.Webhook.SignatureHeader)
	assert.Equal(t, int64(1048576), cfg.Webhook.MaxBodySize)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
}

func TestLoad_DirectoryResolvesConfigYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(validYAML), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Webhook.Listen)
}

func TestLoad_EnvironmentOverridesSecrets(t *testing.T) {
	t.Setenv("LICENSEGW_WEBHOOK_SECRET", "env-webhook-secret")
	t.Setenv("LICENSEGW_SMTP_PASSWORD", "env-smtp-password")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-webhook-secret", cfg.Webhook.Secret)
	assert.Equal(t, "env-smtp-password", cfg.Mail.SMTPPassword)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "webhook: [not a mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := Defaults()
	// Defaults alone are incomplete: no webhook secret.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestValidate_RejectsBadOperatorEmail(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.Mail.OperatorEmail = "not-an-email"
	assert.Error(t, cfg.Validate())
}

func TestValidate_WebhookPathMustBeAbsolute(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.Webhook.Path = "webhook/orders"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with '/'")
}
