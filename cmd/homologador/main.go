package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"homologador/internal/config"
	"homologador/internal/core"
	"homologador/internal/data"
	"homologador/internal/logger"
	"homologador/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "backup":
		runBackup(os.Args[2:])
	case "prune":
		runPrune(os.Args[2:])
	case "reset-password":
		runResetPassword(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Homologador - storage administration")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  homologador init                      Initialize the database and seed the admin user")
	fmt.Println("  homologador backup [-suffix <s>]      Create a backup snapshot now")
	fmt.Println("  homologador prune                     Delete backups older than the retention window")
	fmt.Println("  homologador reset-password -u <user>  Reset a user's password (interactive)")
	fmt.Println("  homologador report [-days <n>] [-table <t>]  Print audit reports as JSON")
	fmt.Println()
	fmt.Println("Common flags: --db <path>, --backups <dir>, --debug")
}

// newCommandFlagSet builds a subcommand flag set that also accepts the
// shared --db/--backups/--debug flags. Their values are resolved by
// config.Load from the raw argument list; registering them here only
// keeps subcommand parsing from rejecting them.
func newCommandFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("db", "", "Path to the SQLite database")
	fs.String("backups", "", "Backups directory")
	fs.Bool("debug", false, "Enable debug mode")
	return fs
}

// setup resolves configuration and opens the storage core. Every command
// goes through the same path the desktop process uses.
func setup(args []string) (*config.Settings, *data.Manager) {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init("logs"); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	return cfg, data.NewManager(cfg)
}

func runInit(args []string) {
	cfg, m := setup(args)

	if err := m.InitializeDatabase(cfg.MigrationsDir()); err != nil {
		logger.Error.Fatalf("Failed to initialize database: %v", err)
	}

	userRepo := data.NewUserRepo(m)
	auditRepo := data.NewAuditRepo(m)
	auditLog := service.NewAuditLogger(auditRepo, userRepo)
	authSvc := service.NewAuthService(userRepo, auditLog)

	if err := service.EnsureSeedData(userRepo, authSvc, auditLog); err != nil {
		logger.Error.Fatalf("Failed to seed data: %v", err)
	}

	auditLog.LogSystemEvent(service.ActionSystemStartup, core.FieldMap{"command": "init"}, nil)
	fmt.Printf("Database ready at %s\n", cfg.DBPath)
}

func runBackup(args []string) {
	fs := newCommandFlagSet("backup")
	suffix := fs.String("suffix", "", "Suffix appended to the backup name")
	fs.Parse(args)

	_, m := setup(args)

	path, err := m.Backups().Create(*suffix)
	if err != nil {
		logger.Error.Fatalf("Backup failed: %v", err)
	}
	if path == "" {
		fmt.Println("Nothing to back up: database does not exist yet.")
		return
	}
	fmt.Printf("Backup created: %s\n", path)
}

func runPrune(args []string) {
	_, m := setup(args)
	m.Backups().Prune()
	fmt.Println("Prune complete.")
}

func runResetPassword(args []string) {
	fs := newCommandFlagSet("reset-password")
	username := fs.String("u", "", "Username to reset")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: homologador reset-password -u <username>")
		os.Exit(1)
	}

	password, ok := promptPassword()
	if !ok {
		os.Exit(1)
	}

	cfg, m := setup(args)
	if err := m.InitializeDatabase(cfg.MigrationsDir()); err != nil {
		logger.Error.Fatalf("Failed to initialize database: %v", err)
	}

	userRepo := data.NewUserRepo(m)
	auditRepo := data.NewAuditRepo(m)
	auditLog := service.NewAuditLogger(auditRepo, userRepo)
	authSvc := service.NewAuthService(userRepo, auditLog)

	if err := authSvc.ResetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

// promptPassword reads the new password twice with echo disabled.
func promptPassword() (string, bool) {
	fmt.Print("New password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		return "", false
	}

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		return "", false
	}

	if string(passBytes) != string(confirmBytes) {
		fmt.Println("Passwords do not match.")
		return "", false
	}
	if len(passBytes) == 0 {
		fmt.Println("Password cannot be empty.")
		return "", false
	}
	return string(passBytes), true
}

func runReport(args []string) {
	fs := newCommandFlagSet("report")
	days := fs.Int("days", 30, "Report window in days")
	table := fs.String("table", "homologations", "Table for the data-changes report")
	fs.Parse(args)

	_, m := setup(args)

	userRepo := data.NewUserRepo(m)
	auditRepo := data.NewAuditRepo(m)
	reporter := service.NewAuditReporter(auditRepo, userRepo)

	logins, err := reporter.LoginReport(*days)
	if err != nil {
		logger.Error.Fatalf("Login report failed: %v", err)
	}
	changes, err := reporter.DataChangesReport(*table, *days)
	if err != nil {
		logger.Error.Fatalf("Data changes report failed: %v", err)
	}

	out, err := json.MarshalIndent(map[string]any{
		"logins":       logins,
		"data_changes": changes,
	}, "", "  ")
	if err != nil {
		logger.Error.Fatalf("Cannot render report: %v", err)
	}
	fmt.Println(string(out))
}
