package config

import "time"

// Config represents the complete licensegw configuration. It is loaded once
// at startup and treated as immutable for the process lifetime.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Product   ProductConfig   `yaml:"product"`
	Generator GeneratorConfig `yaml:"generator"`
	Mail      MailConfig      `yaml:"mail"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	LockPath string `yaml:"lock_path"`
}

// WebhookConfig defines the inbound order-notification endpoint.
type WebhookConfig struct {
	Listen string `yaml:"listen" validate:"required"`

	// Path is the URL path the commerce platform posts order notifications to.
	Path string `yaml:"path" validate:"required"`

	// SignatureHeader carries the base64 HMAC-SHA256 of the raw body.
	SignatureHeader string `yaml:"signature_header" validate:"required"`

	// Secret is the shared HMAC secret. Overridable via LICENSEGW_WEBHOOK_SECRET.
	Secret string `yaml:"secret" validate:"required"`

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size" validate:"gt=0"`
}

// ProductConfig controls which line items the pipeline acts on.
type ProductConfig struct {
	// Match is the case-insensitive substring tested against a line item's
	// name, title and product_title fields.
	Match string `yaml:"match" validate:"required"`
}

// GeneratorConfig defines the external license generator invocation.
type GeneratorConfig struct {
	// Command is the path to the generator executable.
	Command string `yaml:"command" validate:"required"`

	// ValidityDays is passed to the generator and used for the quoted
	// expiry date in the delivery email.
	ValidityDays int `yaml:"validity_days" validate:"gt=0"`

	// WorkspaceDir is the base directory under which per-request artifact
	// workspaces are created.
	WorkspaceDir string `yaml:"workspace_dir" validate:"required"`

	// Timeout bounds a single generator run.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// MailConfig defines the outbound mail transport and addresses.
type MailConfig struct {
	SMTPHost     string `yaml:"smtp_host" validate:"required"`
	SMTPPort     int    `yaml:"smtp_port" validate:"gt=0"`
	SMTPUsername string `yaml:"smtp_username"`
	// SMTPPassword is overridable via LICENSEGW_SMTP_PASSWORD.
	SMTPPassword string `yaml:"smtp_password"`

	FromEmail     string `yaml:"from_email" validate:"required,email"`
	FromName      string `yaml:"from_name"`
	OperatorEmail string `yaml:"operator_email" validate:"required,email"`
}

// AuditConfig defines the audit surfaces.
type AuditConfig struct {
	// LogPath is the operational log (every lifecycle event).
	LogPath string `yaml:"log_path" validate:"required"`

	// LedgerPath is the delivery ledger file (confirmed deliveries only).
	LedgerPath string `yaml:"ledger_path" validate:"required"`

	// DBPath is the SQLite delivery ledger store.
	DBPath string `yaml:"db_path" validate:"required"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "licensegw",
			LogLevel: "info",
			LockPath: "./data/licensegw.lock",
		},
		Webhook: WebhookConfig{
			Listen:          "127.0.0.1:8787",
			Path:            "/webhook/orders",
			SignatureHeader: "X-Shopify-Hmac-Sha256",
			MaxBodySize:     1048576, // 1 MB
		},
		Product: ProductConfig{
			Match: "hakpak",
		},
		Generator: GeneratorConfig{
			Command:      "./generate_license.sh",
			ValidityDays: 365,
			WorkspaceDir: "./data/workspaces",
			Timeout:      120 * time.Second,
		},
		Mail: MailConfig{
			SMTPPort: 587,
			FromName: "PhanesGuild Software",
		},
		Audit: AuditConfig{
			LogPath:    "./data/license_delivery.log",
			LedgerPath: "./data/license_deliveries.log",
			DBPath:     "./data/ledger.db",
		},
	}
}
