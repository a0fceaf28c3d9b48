package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Store backends accepted by BOOKING_STORE.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// ErrHelp is returned by LoadWithArgs when --help was requested.
var ErrHelp = pflag.ErrHelp

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int
	Store           string
	SQLiteDSN       string
	PostgresDSN     string
	TokenSecret     string
	TokenTTL        time.Duration
	Location        *time.Location
	RoomsFile       string
	MaxSuggestions  int
	CORSOrigins     []string
	PublicBaseURL   string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// InvitationLink returns the browser URL an attendee opens to answer.
func (c Config) InvitationLink(token string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/meeting-response?token=" + url.QueryEscape(token)
}

func defaults() Config {
	return Config{
		HTTPPort:        8080,
		Store:           StoreSQLite,
		SQLiteDSN:       "booking.db",
		TokenTTL:        7 * 24 * time.Hour,
		Location:        time.UTC,
		MaxSuggestions:  5,
		PublicBaseURL:   "http://localhost:5173",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadWithArgs(nil)
}

// LoadWithArgs reads the environment and then applies command-line
// overrides from args. Missing and invalid variables are reported together.
func LoadWithArgs(args []string) (Config, error) {
	cfg := defaults()

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := env("BOOKING_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if store := env("BOOKING_STORE"); store != "" {
		cfg.Store = strings.ToLower(store)
	}
	if dsn := env("BOOKING_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.PostgresDSN = env("BOOKING_POSTGRES_DSN")

	if secret := env("BOOKING_TOKEN_SECRET"); secret == "" {
		missing = append(missing, "BOOKING_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := env("BOOKING_TOKEN_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "BOOKING_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if tz := env("BOOKING_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "BOOKING_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	cfg.RoomsFile = env("BOOKING_ROOMS_FILE")

	if maxValue := env("BOOKING_MAX_SUGGESTIONS"); maxValue != "" {
		n, err := strconv.Atoi(maxValue)
		if err != nil || n <= 0 {
			invalid = append(invalid, "BOOKING_MAX_SUGGESTIONS")
		} else {
			cfg.MaxSuggestions = n
		}
	}

	if origins := env("BOOKING_CORS_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if base := env("BOOKING_PUBLIC_BASE_URL"); base != "" {
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "BOOKING_PUBLIC_BASE_URL")
		} else {
			cfg.PublicBaseURL = base
		}
	}

	if level := env("BOOKING_LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := env("BOOKING_LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	if err := cfg.applyFlags(args); err != nil {
		return Config{}, err
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			missing = append(missing, "BOOKING_POSTGRES_DSN")
		}
	default:
		invalid = append(invalid, "BOOKING_STORE")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c *Config) applyFlags(args []string) error {
	if len(args) == 0 {
		return nil
	}

	flagSet := pflag.NewFlagSet("roombooking", pflag.ContinueOnError)
	flagSet.IntVarP(&c.HTTPPort, "port", "p", c.HTTPPort, "HTTP listen port")
	flagSet.StringVar(&c.Store, "store", c.Store, "storage backend: memory, sqlite or postgres")
	flagSet.StringVar(&c.RoomsFile, "rooms", c.RoomsFile, "YAML room catalog loaded at startup")
	flagSet.StringVar(&c.SQLiteDSN, "sqlite-dsn", c.SQLiteDSN, "SQLite database path")
	flagSet.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ErrHelp
		}
		return fmt.Errorf("config: %w", err)
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("config: unexpected argument: %s", rest[0])
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid --port %d", c.HTTPPort)
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
