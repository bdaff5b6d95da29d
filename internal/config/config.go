// Package config reads the service configuration from the environment, an
// optional .env file and the YAML policy file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRemote   = "remote"
)

var ErrInvalid = errors.New("invalid configuration")

type HTTP struct {
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type Log struct {
	Level string
	JSON  bool
}

type Store struct {
	Kind            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RemoteURL       string
	RemoteToken     string
	RemoteTimeout   time.Duration
	Seed            bool
}

type Mail struct {
	Endpoint    string
	APIKey      string
	SenderEmail string
	SenderName  string
}

type Config struct {
	HTTP          HTTP
	Log           Log
	Store         Store
	Mail          Mail
	SessionSecret string
	PolicyFile    string
}

// Load reads envFiles (missing files are skipped) and then the process
// environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	//nolint:gomnd
	cfg := &Config{
		HTTP: HTTP{
			Host:              getEnv("HTTP_HOST", "localhost"),
			Port:              getEnv("HTTP_PORT", "8092"),
			ReadHeaderTimeout: getEnvDuration("HTTP_READ_HEADER_TIMEOUT", 20*time.Second),
			ShutdownTimeout:   getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 4*time.Second),
		},
		Log: Log{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnv("LOG_FORMAT", "json") == "json",
		},
		Store: Store{
			Kind:            strings.ToLower(getEnv("STORE", StoreMemory)),
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			RemoteURL:       getEnv("RECORDS_URL", ""),
			RemoteToken:     getEnv("RECORDS_TOKEN", ""),
			RemoteTimeout:   getEnvDuration("RECORDS_TIMEOUT", 10*time.Second),
			Seed:            getEnvBool("SEED_DEMO_DATA", true),
		},
		Mail: Mail{
			Endpoint:    getEnv("MAIL_ENDPOINT", ""),
			APIKey:      getEnv("MAIL_API_KEY", ""),
			SenderEmail: getEnv("MAIL_SENDER_EMAIL", ""),
			SenderName:  getEnv("MAIL_SENDER_NAME", "Booking desk"),
		},
		SessionSecret: getEnv("SESSION_SECRET", ""),
		PolicyFile:    getEnv("POLICY_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET must be set")
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			problems = append(problems, fmt.Sprintf("DATABASE_DSN must be set for the %s store", c.Store.Kind))
		}
	case StoreRemote:
		if c.Store.RemoteURL == "" {
			problems = append(problems, "RECORDS_URL must be set for the remote store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE %q", c.Store.Kind))
	}

	if c.Mail.APIKey != "" && c.Mail.SenderEmail == "" {
		problems = append(problems, "MAIL_SENDER_EMAIL must be set when MAIL_API_KEY is")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}

	return def
}
