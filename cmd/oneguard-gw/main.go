package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/oneguard-gw/internal/config"
	"github.com/mattjoyce/oneguard-gw/internal/doctor"
	"github.com/mattjoyce/oneguard-gw/internal/inbox"
	"github.com/mattjoyce/oneguard-gw/internal/lock"
	"github.com/mattjoyce/oneguard-gw/internal/log"
	"github.com/mattjoyce/oneguard-gw/internal/scheduler"
	"github.com/mattjoyce/oneguard-gw/internal/server"
	"github.com/mattjoyce/oneguard-gw/internal/signature"
	"github.com/mattjoyce/oneguard-gw/internal/storage"
	"github.com/mattjoyce/oneguard-gw/internal/verification"
	"github.com/mattjoyce/oneguard-gw/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "webhook":
		os.Exit(runWebhookNoun(args))
	case "inbox":
		os.Exit(runInboxNoun(args))

	// --- ROOT ALIASES ---
	case "start":
		os.Exit(runStart(args))
	case "version":
		fmt.Printf("oneguard-gw version %s\n", version)
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
	fmt.Print(`oneguard-gw - Signed webhook receiver and verification proxy

Usage:
  oneguard-gw <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle
  config    Configuration and integrity
  webhook   Signing helpers for senders
  inbox     Recorded deliveries

System Commands:
  system start      Start the gateway in the foreground

Config Commands:
  config check      Validate configuration and secret hygiene
  config lock       Record the config file hash in .checksums
  config show       Print the resolved configuration
  config get        Read one setting by dot path
  config set        Change one setting (--dry-run or --apply)

Webhook Commands:
  webhook sign      Sign a body with the configured secret

Inbox Commands:
  inbox list        Show the most recent accepted deliveries

General:
  version           Show version information
  help              Show this help message

Use 'oneguard-gw <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "get":
		if hasHelpFlag(actionArgs) {
			printConfigGetHelp()
			return 0
		}
		return runConfigGet(actionArgs)
	case "set":
		if hasHelpFlag(actionArgs) {
			printConfigSetHelp()
			return 0
		}
		return runConfigSet(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runWebhookNoun(args []string) int {
	if len(args) < 1 {
		printWebhookNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printWebhookNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "sign":
		if hasHelpFlag(actionArgs) {
			printWebhookSignHelp()
			return 0
		}
		return runWebhookSign(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown webhook action: %s\n", action)
		return 1
	}
}

func runInboxNoun(args []string) int {
	if len(args) < 1 {
		printInboxNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printInboxNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "list":
		if hasHelpFlag(actionArgs) {
			printInboxListHelp()
			return 0
		}
		return runInboxList(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown inbox action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: oneguard-gw system <action>")
	fmt.Fprintln(w, "Actions: start")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: oneguard-gw config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, show, get, set")
}

func printWebhookNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: oneguard-gw webhook <action> [flags]")
	fmt.Fprintln(w, "Actions: sign")
}

func printInboxNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: oneguard-gw inbox <action> [flags]")
	fmt.Fprintln(w, "Actions: list")
}

func printSystemStartHelp() {
	fmt.Println("Usage: oneguard-gw system start [--config PATH]")
	fmt.Println("Start the gateway in the foreground.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: oneguard-gw config check [--config PATH] [--strict] [--json]")
	fmt.Println("Validate configuration, routes, and secret hygiene. --strict fails on warnings (exit 2).")
}

func printConfigLockHelp() {
	fmt.Println("Usage: oneguard-gw config lock [--config PATH] [--dry-run]")
	fmt.Println("Record the BLAKE3 hash of the config file in .checksums next to it.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: oneguard-gw config show [path] [--config PATH] [--json]")
	fmt.Println("Print the resolved configuration (api key redacted).")
}

func printConfigGetHelp() {
	fmt.Println("Usage: oneguard-gw config get <path> [--config PATH] [--json]")
	fmt.Println("Read a single value from the resolved configuration, e.g. webhook.timestamp_binding.")
}

func printConfigSetHelp() {
	fmt.Println("Usage: oneguard-gw config set <path>=<value> [--config PATH] [--dry-run | --apply]")
	fmt.Println("Change a setting in the config file after validating the result.")
}

func printWebhookSignHelp() {
	fmt.Println("Usage: oneguard-gw webhook sign --body FILE|- [--timestamp TS] [--config PATH]")
	fmt.Println("Print the headers a sender must attach for the given body.")
}

func printInboxListHelp() {
	fmt.Println("Usage: oneguard-gw inbox list [--config PATH] [--limit N] [--json]")
	fmt.Println("Show the most recent accepted deliveries, newest first.")
}

func loadConfigForTool(configPath string) (*config.Config, error) {
	return config.LoadOrDefault(configPath)
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	source := cfg.SourcePath
	if source == "" {
		source = "(built-in defaults)"
	}
	logger.Info("oneguard-gw starting", "version", version, "config", source)

	envFiles, err := config.LoadDotEnv(cfg)
	if err != nil {
		logger.Error("failed to load .env", "error", err)
		return 1
	}
	for _, f := range envFiles {
		logger.Info("loaded environment file", "path", f)
	}

	secret := config.LoadWebhookSecret(cfg.Webhook.SecretEnv, os.LookupEnv)
	if secret.IsDefault() {
		logger.Warn("webhook secret not set; using the built-in example secret",
			"env", cfg.Webhook.SecretEnv)
	} else {
		logger.Info("webhook secret loaded", "source", secret.Source())
	}
	if cfg.Webhook.TimestampBinding {
		logger.Warn("timestamp binding enabled without a freshness window; replayed deliveries are accepted",
			"timestamp_header", cfg.Webhook.TimestampHeader)
	}

	gate := webhook.NewGate(webhook.GateConfig{
		Secret:           secret,
		SignatureHeader:  cfg.Webhook.SignatureHeader,
		TimestampHeader:  cfg.Webhook.TimestampHeader,
		TimestampBinding: cfg.Webhook.TimestampBinding,
	}, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	routes := server.Routes{}
	var receiver webhook.Receiver
	if cfg.Inbox.Enabled {
		pidLockPath := lock.PathFor(cfg.Inbox.Path)
		pidLock, err := lock.Acquire(pidLockPath)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
			return 1
		}
		defer func() { _ = pidLock.Release() }()

		db, err := storage.OpenSQLite(ctx, cfg.Inbox.Path)
		if err != nil {
			logger.Error("failed to open inbox database", "path", cfg.Inbox.Path, "error", err)
			return 1
		}
		defer db.Close()

		store := inbox.New(db)
		receiver = store
		routes.Inbox = store
		logger.Info("inbox enabled", "path", cfg.Inbox.Path)

		if cfg.Inbox.Retention > 0 {
			sched, err := scheduler.New(store, cfg.Inbox.Retention, cfg.Inbox.PruneSchedule, log.WithComponent("inbox"))
			if err != nil {
				logger.Error("failed to configure inbox retention", "error", err)
				return 1
			}
			if err := sched.Start(ctx); err != nil {
				logger.Error("failed to start inbox retention", "error", err)
				return 1
			}
			defer sched.Stop()
		}
	}
	routes.Webhook = webhook.NewHandler(gate, receiver, cfg.MaxBodyBytes(), log.WithComponent("webhook"))

	verifyPath := ""
	if cfg.Verification.Enabled {
		client := verification.NewClient(cfg.Verification.Timeout, log.WithComponent("verification"))
		routes.Verify = verification.NewHandler(client, verification.Endpoints{
			Production: cfg.Verification.ProductionURL,
			Staging:    cfg.Verification.StagingURL,
		}, log.WithComponent("verification"))
		verifyPath = cfg.Verification.Path
	}

	srv := server.New(server.Config{
		Listen:          cfg.Server.Listen,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WebhookPath:     cfg.Webhook.Path,
		VerifyPath:      verifyPath,
		APIKey:          cfg.API.APIKey,
	}, routes, log.WithComponent("server"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("oneguard-gw running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("shutdown failed", "error", err)
			return 1
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
		return 1
	}

	logger.Info("oneguard-gw stopped")
	return 0
}

func runConfigCheck(args []string) int {
	var configPath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	if _, err := config.LoadDotEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Environment file error: %v\n", err)
		return 1
	}
	secret := config.LoadWebhookSecret(cfg.Webhook.SecretEnv, os.LookupEnv)
	result := doctor.New(cfg, secret).Validate()

	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigLock(args []string) int {
	var configPath string
	var dryRun bool

	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file or directory")
	fs.BoolVar(&dryRun, "dry-run", false, "Compute the hash without writing .checksums")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if configPath == "" {
		discovered, err := config.Discover()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		configPath = discovered
	}
	if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		configPath = filepath.Join(configPath, "config.yaml")
	}

	report, err := config.Lock(configPath, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	fmt.Printf("HASH %s: %s\n", report.ConfigPath, report.Hash)
	if report.Written {
		fmt.Printf("WROTE .checksums: %s\n", report.ChecksumPath)
	} else {
		fmt.Printf("DRY-RUN .checksums: %s (not written)\n", report.ChecksumPath)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	shown := redactedConfig(cfg)

	var result any = shown
	if fs.NArg() > 0 {
		res, err := shown.GetPath(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		result = res
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(result)
		fmt.Print(string(data))
	}
	return 0
}

func redactedConfig(cfg *config.Config) *config.Config {
	shown := *cfg
	if shown.API.APIKey != "" {
		shown.API.APIKey = "[REDACTED]"
	}
	return &shown
}

func runConfigGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: oneguard-gw config get <path> [--json]\n")
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	val, err := redactedConfig(cfg).GetPath(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(val, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("%v\n", val)
	}
	return 0
}

func runConfigSet(args []string) int {
	var configPath string
	var dryRun, apply bool

	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&dryRun, "dry-run", false, "Preview changes")
	fs.BoolVar(&apply, "apply", false, "Apply changes")

	var kvPair string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") && kvPair == "" {
			kvPair = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if kvPair == "" {
		fmt.Fprintf(os.Stderr, "Usage: oneguard-gw config set <path>=<value> [--dry-run | --apply]\n")
		return 1
	}
	if dryRun == apply {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --dry-run or --apply must be specified for 'config set'.")
		return 1
	}

	path, value, _ := strings.Cut(kvPair, "=")

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if err := cfg.SetPath(path, value, apply); err != nil {
		fmt.Fprintf(os.Stderr, "Set failed: %v\n", err)
		return 1
	}

	if dryRun {
		fmt.Printf("Dry-run: would set %q to %q\n", path, value)
		fmt.Println("Status: Configuration check PASSED.")
		return 0
	}

	fmt.Printf("Successfully set %q to %q\n", path, value)
	if cfg.Locked() {
		fmt.Printf("Config is locked; run: oneguard-gw config lock --config %s\n", cfg.SourcePath)
	}
	return 0
}

func runWebhookSign(args []string) int {
	var configPath, bodyPath, timestamp string

	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.StringVar(&bodyPath, "body", "", "File holding the raw body, or - for stdin")
	fs.StringVar(&timestamp, "timestamp", "", "Timestamp to bind (defaults to now when binding is enabled)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if bodyPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: oneguard-gw webhook sign --body FILE|- [--timestamp TS]")
		return 1
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	body, err := readBody(bodyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	if _, err := config.LoadDotEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Environment file error: %v\n", err)
		return 1
	}
	secret := config.LoadWebhookSecret(cfg.Webhook.SecretEnv, os.LookupEnv)
	if secret.IsDefault() {
		fmt.Fprintf(os.Stderr, "warning: ${%s} is not set; signing with the built-in example secret\n", cfg.Webhook.SecretEnv)
	}

	message := body
	if cfg.Webhook.TimestampBinding || timestamp != "" {
		if timestamp == "" {
			timestamp = strconv.FormatInt(time.Now().Unix(), 10)
		}
		message = signature.SignedMessage(timestamp, body)
	}

	sig, err := signature.Sign(secret.Bytes(), message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign: %v\n", err)
		return 1
	}

	if timestamp != "" {
		fmt.Printf("%s: %s\n", cfg.Webhook.TimestampHeader, timestamp)
	}
	fmt.Printf("%s: %s\n", cfg.Webhook.SignatureHeader, sig)
	return 0
}

func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runInboxList(args []string) int {
	var configPath string
	var limit int
	var jsonOut bool

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.IntVar(&limit, "limit", inbox.DefaultListLimit, "Number of deliveries to show")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	if !cfg.Inbox.Enabled {
		fmt.Fprintln(os.Stderr, "Inbox is disabled (set inbox.enabled: true)")
		return 1
	}
	if _, err := os.Stat(cfg.Inbox.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Inbox database not found: %s\n", cfg.Inbox.Path)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Inbox.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	entries, err := inbox.New(db).Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list inbox: %v\n", err)
		return 1
	}

	if jsonOut {
		if entries == nil {
			entries = []inbox.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode inbox: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(entries) == 0 {
		fmt.Println("No deliveries recorded.")
		return 0
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIVED\tID\tBYTES\tPAYLOAD")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			e.ReceivedAt.Format(time.RFC3339), e.ID, e.BodyBytes, truncate(string(e.Payload), 60))
	}
	_ = tw.Flush()
	return 0
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
