// Package config loads application configuration from environment
// variables and the optional booking policy file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" (default) or "sqlite"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBPath         string // sqlite database file
	DBAutoMigrate  bool   // apply the embedded schema on start
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
	LogLevel       string // debug, info, warn, error
	LogFormat      string // text or json
	RabbitURL      string // broker for the confirmation relay; empty sends inline
	ResendAPIKey   string // email API key; empty logs emails instead
	MailFrom       string // sender address of confirmation emails
	PolicyFile     string // optional YAML booking policy
	AuditLogDir    string // directory of the relay consumer's audit log
}

// LoadDotEnv reads a .env file when present. A missing file is not an
// error; real environment variables always win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads configuration values from environment variables and returns a
// Config.  Every missing required variable is reported in one error.
func Load() (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:            r.must("APP_ENV"),
		Port:           envStr("APP_PORT", "8080"),
		JWTSecret:      r.must("JWT_SECRET"),
		AccessTTLMin:   r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "text"),
		RabbitURL:      firstEnv("RABBITMQ_URL", "AMQP_URL"),
		ResendAPIKey:   os.Getenv("RESEND_API_KEY"),
		MailFrom:       envStr("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
		PolicyFile:     os.Getenv("BOOKING_POLICY_FILE"),
		AuditLogDir:    envStr("AUDIT_LOG_DIR", "logs"),
	}
	r.database(&cfg)
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings and the bcrypt cost, for
// tools that do not serve HTTP.
func LoadDatabase() (Config, error) {
	r := &reader{}
	var cfg Config
	r.database(&cfg)
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (r *reader) database(cfg *Config) {
	cfg.DBDriver = strings.ToLower(envStr("DB_DRIVER", "mysql"))
	cfg.DBPass = os.Getenv("DB_PASS")
	cfg.DBPath = envStr("DB_PATH", "data/exams.db")
	cfg.DBAutoMigrate = envBool("DB_AUTO_MIGRATE", false)
	cfg.BcryptCost = envInt("BCRYPT_COST", 12)
	if cfg.DBDriver == "mysql" {
		cfg.DBUser = r.must("DB_USER")
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.must("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	}
}

// reader collects problems instead of exiting on the first one.
type reader struct {
	missing []string
	invalid []string
}

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Sprintf("%s=%q", key, s))
	}
	return n
}

func (r *reader) err() error {
	var parts []string
	if len(r.missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		parts = append(parts, "invalid int values: "+strings.Join(r.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
