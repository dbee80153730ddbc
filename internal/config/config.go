// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional .env file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environments understood by the service.
const (
	Development = "development"
	Testing     = "testing"
	Production  = "production"
)

const (
	devSecretKey  = "dev-secret-key"
	testSecretKey = "test-secret-key"
)

// Options holds the configuration values for the application. Each field
// can be set by a flag and overridden by the environment variable named in
// its envconfig tag.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `envconfig:"SERVER_ADDRESS"`

	// BaseURL prefixes short codes in returned links.
	BaseURL string `envconfig:"BASE_URL"`

	// DatabasePath is the SQLite file used when no DSN or Redis address is set.
	DatabasePath string `envconfig:"DATABASE_PATH"`

	// DatabaseDSN is a PostgreSQL connection string.
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// GRPCAddr enables the gRPC server when not empty.
	GRPCAddr string `envconfig:"GRPC_ADDRESS"`

	LogLevel string `envconfig:"LOG_LEVEL"`

	// Env is one of development, testing or production.
	Env string `envconfig:"APP_ENV"`

	SecretKey     string        `envconfig:"SECRET_KEY"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL"`
	AdminUser     string        `envconfig:"ADMIN_USER"`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD"`

	CodeLength   int `envconfig:"CODE_LENGTH"`
	MaxURLLength int `envconfig:"MAX_URL_LENGTH"`
	MaxAttempts  int `envconfig:"MAX_ATTEMPTS"`

	// TrustedSubnet is the CIDR allowed to read internal stats.
	TrustedSubnet string `envconfig:"TRUSTED_SUBNET"`

	EnablePprof bool `envconfig:"ENABLE_PPROF"`
	EnableHTTPS bool `envconfig:"ENABLE_HTTPS"`

	// TLSHost is the domain autocert requests certificates for.
	TLSHost string `envconfig:"TLS_HOST"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`
}

// Parse reads the process arguments and environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs applies, in order: defaults and args, variables from the .env
// file named by -env-file (existing variables win), environment overrides,
// and finally the defaults of the selected environment.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}

	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fs.StringVar(&opts.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.BaseURL, "b", "http://localhost:8080", "result base url")
	fs.StringVar(&opts.DatabasePath, "f", "", "path to sqlite database file")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "postgres connection string")
	fs.StringVar(&opts.RedisAddr, "r", "", "redis address")
	fs.StringVar(&opts.GRPCAddr, "g", "", "run gRPC on ip:port")
	fs.StringVar(&opts.LogLevel, "l", "info", "log level")
	fs.StringVar(&opts.Env, "e", Development, "environment: development, testing or production")
	fs.StringVar(&opts.TrustedSubnet, "t", "", "trusted subnet in CIDR notation")
	fs.BoolVar(&opts.EnablePprof, "p", false, "enable pprof")
	fs.BoolVar(&opts.EnableHTTPS, "s", false, "enable https")
	fs.IntVar(&opts.CodeLength, "n", 6, "short code length")
	fs.IntVar(&opts.MaxURLLength, "m", 2048, "max long url length")
	fs.IntVar(&opts.MaxAttempts, "retries", 10, "attempts to find a free short code")
	fs.DurationVar(&opts.TokenTTL, "token-ttl", time.Hour, "access token lifetime")
	fs.DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	envFile := fs.String("env-file", ".env", "dotenv file to load")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	if err := envconfig.Process("", opts); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	opts.applyEnvDefaults()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) applyEnvDefaults() {
	switch o.Env {
	case Development:
		if o.SecretKey == "" {
			o.SecretKey = devSecretKey
		}
		if o.DatabasePath == "" {
			o.DatabasePath = "dev_urls.db"
		}
	case Testing:
		if o.SecretKey == "" {
			o.SecretKey = testSecretKey
		}
	case Production:
		if o.DatabasePath == "" {
			o.DatabasePath = "prod_urls.db"
		}
	}

	if o.Env != Production {
		if o.AdminUser == "" {
			o.AdminUser = "admin"
		}
		if o.AdminPassword == "" {
			o.AdminPassword = "123456"
		}
	}
}

// Validate reports the first inconsistent setting.
func (o *Options) Validate() error {
	switch o.Env {
	case Development, Testing:
	case Production:
		if o.SecretKey == "" {
			return errors.New("SECRET_KEY must be set in production")
		}
	default:
		return fmt.Errorf("invalid environment: %s (must be one of: development, testing, production)", o.Env)
	}

	if o.CodeLength <= 0 {
		return errors.New("code length must be positive")
	}
	if o.MaxURLLength <= 0 {
		return errors.New("max url length must be positive")
	}
	if o.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if o.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if o.TrustedSubnet != "" {
		if _, _, err := net.ParseCIDR(o.TrustedSubnet); err != nil {
			return fmt.Errorf("invalid trusted subnet: %w", err)
		}
	}
	return nil
}

// StorageKind names the backend the options select: postgres, redis,
// sqlite or memory, in that order of precedence.
func (o *Options) StorageKind() string {
	switch {
	case o.DatabaseDSN != "":
		return "postgres"
	case o.RedisAddr != "":
		return "redis"
	case o.DatabasePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}
