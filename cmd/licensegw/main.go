package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/phanesguild/licensegw/internal/audit"
	"github.com/phanesguild/licensegw/internal/config"
	"github.com/phanesguild/licensegw/internal/doctor"
	"github.com/phanesguild/licensegw/internal/fulfill"
	"github.com/phanesguild/licensegw/internal/ledger"
	"github.com/phanesguild/licensegw/internal/license"
	"github.com/phanesguild/licensegw/internal/lock"
	"github.com/phanesguild/licensegw/internal/log"
	"github.com/phanesguild/licensegw/internal/mail"
	"github.com/phanesguild/licensegw/internal/storage"
	"github.com/phanesguild/licensegw/internal/tui"
	"github.com/phanesguild/licensegw/internal/webhook"
	"github.com/phanesguild/licensegw/internal/workspace"
)

const version = "0.1.0"

const defaultConfigPath = "./config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "ledger":
		os.Exit(runLedgerNoun(args))
	case "monitor":
		os.Exit(runMonitor(args))
	case "version":
		fmt.Printf("licensegw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`licensegw - Webhook-triggered license issuance gateway

Usage:
  licensegw <command> [flags]

Commands:
  start         Run the webhook gateway in foreground
  config lock   Authorize current config state (write integrity checksum)
  config check  Validate config syntax and integrity
  doctor        Preflight the environment (generator, workspace, ledger, mail)
  ledger list   Print recent confirmed deliveries
  monitor       Live terminal view of the delivery ledger
  version       Show version information
  help          Show this help message

Common flags:
  --config path   Configuration file (default ./config.yaml)
`)
}

// resolveConfigPath normalizes a --config value to a config file path.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if stat, err := os.Stat(configPath); err == nil && stat.IsDir() {
		return filepath.Join(configPath, "config.yaml")
	}
	return configPath
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("licensegw starting", "version", version, "config", *configPath)

	pidLock, err := lock.Acquire(cfg.Service.LockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.LockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", cfg.Service.LockPath)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Audit.DBPath)
	if err != nil {
		logger.Error("failed to open ledger database", "path", cfg.Audit.DBPath, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("ledger database opened", "path", cfg.Audit.DBPath)

	store := ledger.NewStore(db)
	recorder := audit.NewRecorder(log.WithComponent("audit"),
		audit.NewOperationalLog(cfg.Audit.LogPath),
		audit.NewLedgerFile(cfg.Audit.LedgerPath),
		ledger.NewSink(store),
	)

	workspaces, err := workspace.NewManager(cfg.Generator.WorkspaceDir)
	if err != nil {
		logger.Error("failed to initialize workspace manager", "base_dir", cfg.Generator.WorkspaceDir, "error", err)
		return 1
	}

	// Sweep workspaces orphaned by a previous crash.
	if report, err := workspaces.Cleanup(ctx, 24*time.Hour); err != nil {
		logger.Warn("workspace cleanup failed", "error", err)
	} else if report.DeletedDirs > 0 {
		logger.Info("removed stale workspaces", "count", report.DeletedDirs)
	}

	gen := license.NewGenerator(cfg.Generator.Command, cfg.Generator.ValidityDays, cfg.Generator.Timeout)
	producer := license.NewProducer(gen, workspaces, log.WithComponent("license"))

	sender := mail.NewSMTPSender(
		cfg.Mail.SMTPHost, cfg.Mail.SMTPPort,
		cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword,
		cfg.Mail.FromEmail, cfg.Mail.FromName,
		cfg.Mail.OperatorEmail,
	)
	notifier := mail.NewNotifier(sender, cfg.Mail.OperatorEmail, cfg.Generator.ValidityDays, log.WithComponent("mail"))

	processor := fulfill.NewProcessor(producer, notifier, recorder, log.WithComponent("fulfill"))

	server := webhook.New(webhook.Config{
		Listen:          cfg.Webhook.Listen,
		Path:            cfg.Webhook.Path,
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		MaxBodySize:     cfg.Webhook.MaxBodySize,
		ProductMatch:    cfg.Product.Match,
	}, processor, recorder, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("webhook server failed", "error", err)
		return 1
	}

	logger.Info("licensegw stopped")
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: licensegw config <lock|check> [--config path]")
		return 1
	}

	action := args[0]
	fs := flag.NewFlagSet(action, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	path := resolveConfigPath(*configPath)

	switch action {
	case "lock":
		if err := config.Lock(path); err != nil {
			fmt.Fprintf(os.Stderr, "Lock failed: %v\n", err)
			return 1
		}
		fmt.Printf("Checksums written for %s\n", path)
		return 0
	case "check":
		if _, err := config.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config check FAILED: %v\n", err)
			return 1
		}
		if err := config.Check(path); err != nil {
			fmt.Fprintf(os.Stderr, "Integrity check FAILED: %v\n", err)
			return 1
		}
		fmt.Println("Status: Configuration check PASSED.")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate(context.Background())

	if *jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		for _, issue := range result.Errors {
			fmt.Printf("ERROR   [%s] %s: %s\n", issue.Category, issue.Field, issue.Message)
		}
		for _, issue := range result.Warnings {
			fmt.Printf("WARNING [%s] %s: %s\n", issue.Category, issue.Field, issue.Message)
		}
		if result.Valid {
			fmt.Println("Doctor: environment OK")
		} else {
			fmt.Println("Doctor: environment NOT ready")
		}
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runLedgerNoun(args []string) int {
	if len(args) < 1 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "Usage: licensegw ledger list [--limit N] [--config path]")
		return 1
	}

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	limit := fs.Int("limit", 20, "Maximum number of deliveries to show")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Audit.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open ledger database: %v\n", err)
		return 1
	}
	defer db.Close()

	entries, err := ledger.NewStore(db).Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read ledger: %v\n", err)
		return 1
	}

	if len(entries) == 0 {
		fmt.Println("No deliveries recorded.")
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%s  order=%s  %s (%s)\n",
			e.DeliveredAt.Local().Format("2006-01-02 15:04:05"), e.OrderID, e.BuyerEmail, e.BuyerName)
	}
	return 0
}

func runMonitor(args []string) int {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Audit.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open ledger database: %v\n", err)
		return 1
	}
	defer db.Close()

	p := tea.NewProgram(tui.NewMonitor(ledger.NewStore(db)))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Monitor failed: %v\n", err)
		return 1
	}
	return 0
}
