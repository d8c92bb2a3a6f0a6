// Package doctor validates the licensegw environment before the gateway is
// started: config sanity, generator availability, writable directories.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phanesguild/licensegw/internal/config"
	"github.com/phanesguild/licensegw/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor runs preflight checks against a loaded config.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.checkGenerator(r)
	d.checkWorkspace(r)
	d.checkLedgerDB(ctx, r)
	d.checkMail(r)
	d.checkSecret(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkGenerator verifies the generator executable exists and is runnable.
func (d *Doctor) checkGenerator(r *Result) {
	cmd := d.cfg.Generator.Command
	info, err := os.Stat(cmd)
	if err != nil {
		d.addError(r, "generator", "generator.command",
			fmt.Sprintf("generator %q not found: %v", cmd, err))
		return
	}
	if info.IsDir() {
		d.addError(r, "generator", "generator.command",
			fmt.Sprintf("generator %q is a directory", cmd))
		return
	}
	if info.Mode()&0o111 == 0 {
		d.addError(r, "generator", "generator.command",
			fmt.Sprintf("generator %q is not executable", cmd))
	}
}

// checkWorkspace verifies the workspace base directory is creatable/writable.
func (d *Doctor) checkWorkspace(r *Result) {
	base := d.cfg.Generator.WorkspaceDir
	if err := os.MkdirAll(base, 0o755); err != nil {
		d.addError(r, "workspace", "generator.workspace_dir",
			fmt.Sprintf("cannot create workspace dir %q: %v", base, err))
		return
	}

	probe := filepath.Join(base, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		d.addError(r, "workspace", "generator.workspace_dir",
			fmt.Sprintf("workspace dir %q is not writable: %v", base, err))
		return
	}
	_ = os.Remove(probe)
}

// checkLedgerDB verifies the delivery ledger database can be opened.
func (d *Doctor) checkLedgerDB(ctx context.Context, r *Result) {
	db, err := storage.OpenSQLite(ctx, d.cfg.Audit.DBPath)
	if err != nil {
		d.addError(r, "ledger", "audit.db_path",
			fmt.Sprintf("cannot open ledger database: %v", err))
		return
	}
	_ = db.Close()
}

// checkMail sanity-checks the SMTP settings that only fail at send time.
func (d *Doctor) checkMail(r *Result) {
	if d.cfg.Mail.SMTPUsername != "" && d.cfg.Mail.SMTPPassword == "" {
		d.addWarning(r, "mail", "mail.smtp_password",
			"smtp_username set but no password (set LICENSEGW_SMTP_PASSWORD)")
	}
	if d.cfg.Mail.FromEmail == d.cfg.Mail.OperatorEmail {
		d.addWarning(r, "mail", "mail.operator_email",
			"operator_email equals from_email; delivery failures will alert the sending address")
	}
}

// checkSecret flags weak webhook secrets.
func (d *Doctor) checkSecret(r *Result) {
	if len(d.cfg.Webhook.Secret) < 16 {
		d.addWarning(r, "webhook", "webhook.secret",
			"webhook secret is shorter than 16 characters")
	}
}
