package config

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"homologador/internal/logger"
)

// Settings is the resolved configuration surface consumed by the storage
// core: where the database lives, where backups go, and the backup policy.
type Settings struct {
	DBPath              string `json:"db_path"`
	BackupsDir          string `json:"backups_dir"`
	BackupRetentionDays int    `json:"backup_retention_days"`
	AutoBackup          bool   `json:"auto_backup"`
	Debug               bool   `json:"debug"`
}

const configFileName = "config.json"

// Load resolves settings from, in ascending precedence: built-in defaults,
// config.json next to the working directory, environment variables, and CLI
// flags. Missing directories for the database and backups are created.
// args are the raw CLI arguments (usually os.Args[1:]); unknown flags are
// left for the caller's own flag sets.
func Load(args []string) (*Settings, error) {
	s := &Settings{
		DBPath:              "homologador.db",
		BackupsDir:          "backups",
		BackupRetentionDays: 30,
		AutoBackup:          true,
	}

	s.loadFromConfigFile()
	s.loadFromEnvironment()
	s.loadFromCLI(args)

	if err := s.resolvePaths(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) loadFromConfigFile() {
	data, err := os.ReadFile(configFileName)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn.Printf("Cannot read %s: %v", configFileName, err)
		}
		return
	}
	if err := json.Unmarshal(data, s); err != nil {
		logger.Warn.Printf("Invalid %s, ignoring: %v", configFileName, err)
		return
	}
	logger.Info.Printf("Configuration loaded from %s", configFileName)
}

func (s *Settings) loadFromEnvironment() {
	// .env is optional, same as the rest of the environment surface.
	_ = godotenv.Load()

	if v := os.Getenv("HOMOLOGADOR_DB"); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv("HOMOLOGADOR_BACKUPS"); v != "" {
		s.BackupsDir = v
	}
	if v := os.Getenv("HOMOLOGADOR_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			logger.Warn.Printf("Invalid HOMOLOGADOR_RETENTION_DAYS: %q", v)
		} else {
			s.BackupRetentionDays = days
		}
	}
	if v := os.Getenv("HOMOLOGADOR_AUTO_BACKUP"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			s.AutoBackup = true
		case "0", "false", "no", "off":
			s.AutoBackup = false
		default:
			logger.Warn.Printf("Invalid HOMOLOGADOR_AUTO_BACKUP: %q", v)
		}
	}
}

func (s *Settings) loadFromCLI(args []string) {
	fs := flag.NewFlagSet("homologador", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	db := fs.String("db", "", "Path to the SQLite database")
	backups := fs.String("backups", "", "Backups directory")
	debug := fs.Bool("debug", false, "Enable debug mode")

	// Parse only known flags; the UI/runtime layers own the rest.
	_ = fs.Parse(knownFlags(args, map[string]bool{"db": true, "backups": true, "debug": true}))

	if *db != "" {
		s.DBPath = *db
	}
	if *backups != "" {
		s.BackupsDir = *backups
	}
	if *debug {
		s.Debug = true
	}
}

// knownFlags keeps only the arguments this package understands, so foreign
// flags from the hosting process never abort config resolution.
func knownFlags(args []string, known map[string]bool) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, hasValue := flagName(arg)
		if name == "" || !known[name] {
			continue
		}
		out = append(out, arg)
		// "--db path" form: the value is the next argument.
		if !hasValue && name != "debug" && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

func flagName(arg string) (name string, hasValue bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false
	}
	name = strings.TrimLeft(arg, "-")
	if eq := strings.IndexByte(name, '='); eq >= 0 {
		return name[:eq], true
	}
	return name, false
}

func (s *Settings) resolvePaths() error {
	dbPath, err := filepath.Abs(s.DBPath)
	if err != nil {
		return err
	}
	s.DBPath = dbPath

	backupsDir, err := filepath.Abs(s.BackupsDir)
	if err != nil {
		return err
	}
	s.BackupsDir = backupsDir

	for _, dir := range []string{filepath.Dir(s.DBPath), s.BackupsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// LockPath is the advisory lock file guarding the database.
func (s *Settings) LockPath() string {
	return s.DBPath + ".lock"
}

// MigrationsDir is where *.sql migration scripts live, next to the
// database file.
func (s *Settings) MigrationsDir() string {
	return filepath.Join(filepath.Dir(s.DBPath), "migrations")
}
