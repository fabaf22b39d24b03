package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LixenWraith/logger"
	"github.com/LixenWraith/tinytoml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultConfigBase = "/usr/local/etc"
)

// Transport modes.
const (
	ModeService  = "service"
	ModeHostPort = "hostPort"
	ModeResend   = "resend"
	ModePostmark = "postmark"
)

var (
	ErrMissingCredentials = errors.New("missing owner address or credential")
	ErrInvalid            = errors.New("invalid configuration")
)

type OwnerConfig struct {
	Address  string `toml:"address"`
	Name     string `toml:"name"`
	Password string `toml:"password"`
}

type TransportConfig struct {
	Mode         string        `toml:"mode"`
	Service      string        `toml:"service"`
	Host         string        `toml:"host"`
	Port         string        `toml:"port"`
	TLS          string        `toml:"tls"`
	AuthUser     string        `toml:"auth_user"`
	APIKey       string        `toml:"api_key"`
	PoolSize     int           `toml:"pool_size"`
	Timeout      time.Duration `toml:"timeout"`
	SenderPolicy string        `toml:"sender_policy"`
}

type ServerConfig struct {
	Host          string        `toml:"host"`
	Port          string        `toml:"port"`
	ReadTimeout   time.Duration `toml:"read_timeout"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	FailureStatus int           `toml:"failure_status"`
	MaxBodyBytes  int           `toml:"max_body_bytes"`
}

type Config struct {
	Owner     OwnerConfig     `toml:"owner"`
	Transport TransportConfig `toml:"transport"`
	Server    ServerConfig    `toml:"server"`
	Logging   logger.Config   `toml:"logging"`
}

// environment holds the canonical variables. Set values override the file.
type environment struct {
	OwnerAddress  string `env:"CONTACT_OWNER_ADDRESS"`
	OwnerName     string `env:"CONTACT_OWNER_NAME"`
	OwnerPassword string `env:"CONTACT_OWNER_PASSWORD"`
	Port          string `env:"PORT"`
	Mode          string `env:"CONTACT_TRANSPORT_MODE"`
	Service       string `env:"CONTACT_SMTP_SERVICE"`
	Host          string `env:"CONTACT_SMTP_HOST"`
	SMTPPort      string `env:"CONTACT_SMTP_PORT"`
	TLS           string `env:"CONTACT_SMTP_TLS"`
	APIKey        string `env:"CONTACT_API_KEY"`
	SenderPolicy  string `env:"CONTACT_SENDER_POLICY"`
	FailureStatus int    `env:"CONTACT_FAILURE_STATUS"`
}

var defaultConfig = Config{
	Transport: TransportConfig{
		Mode:         ModeService,
		Service:      "gmail",
		Host:         "smtp.gmail.com",
		Port:         "587",
		TLS:          "starttls",
		Timeout:      30 * time.Second,
		SenderPolicy: "owner",
	},
	Server: ServerConfig{
		Host:          "",
		Port:          "5000",
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  time.Minute,
		FailureStatus: http.StatusInternalServerError,
		MaxBodyBytes:  64 << 10,
	},
	Logging: logger.Config{
		Level:          logger.LevelInfo,
		Name:           "",
		Directory:      "/var/log",
		BufferSize:     1000,
		MaxSizeMB:      100,
		MaxTotalSizeMB: 1000,
		MinDiskFreeMB:  500,
	},
}

// Default returns the built-in configuration for the named application.
func Default(name string) Config {
	cfg := defaultConfig
	cfg.Logging.Name = name
	cfg.Logging.Directory = filepath.Join(cfg.Logging.Directory, name)
	return cfg
}

// Path returns the default config file location for the named application.
func Path(name string) string {
	return filepath.Join(defaultConfigBase, name, name+".toml")
}

// Load reads the named application's config from its default path.
func Load(name string) (*Config, bool, error) {
	return LoadFile(name, Path(name))
}

// LoadFile merges defaults, the TOML file at path (if present), a .env file in
// the working directory (if present) and the process environment, then validates
// the result. The returned bool reports whether the file existed.
func LoadFile(name, path string) (*Config, bool, error) {
	// Start with default config
	config := Default(name)

	// If config file exists, Load and merge with defaults
	configExists := false
	if _, err := os.Stat(path); err == nil {
		configExists = true
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, configExists, fmt.Errorf("failed to read config file: %w", err)
		}

		// Unmarshal into config, overwriting only specified values
		if err := tinytoml.Unmarshal(data, &config); err != nil {
			return nil, configExists, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is fine; the process environment may carry everything.
	_ = godotenv.Load()

	if err := applyEnv(&config); err != nil {
		return nil, configExists, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, configExists, err
	}

	return &config, configExists, nil
}

func applyEnv(config *Config) error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.Owner.Address, e.OwnerAddress)
	set(&config.Owner.Name, e.OwnerName)
	set(&config.Owner.Password, e.OwnerPassword)
	set(&config.Server.Port, e.Port)
	set(&config.Transport.Mode, e.Mode)
	set(&config.Transport.Service, e.Service)
	set(&config.Transport.Host, e.Host)
	set(&config.Transport.Port, e.SMTPPort)
	set(&config.Transport.TLS, e.TLS)
	set(&config.Transport.APIKey, e.APIKey)
	set(&config.Transport.SenderPolicy, e.SenderPolicy)
	if e.FailureStatus != 0 {
		config.Server.FailureStatus = e.FailureStatus
	}

	// CONTACT_SMTP_HOST without an explicit mode means a raw endpoint.
	if e.Host != "" && e.Mode == "" {
		config.Transport.Mode = ModeHostPort
	}
	return nil
}

func validateConfig(config *Config) error {
	owner := config.Owner
	if strings.TrimSpace(owner.Address) == "" {
		return fmt.Errorf("%w: CONTACT_OWNER_ADDRESS is not set", ErrMissingCredentials)
	}

	t := config.Transport
	switch t.Mode {
	case ModeService:
		if t.Service == "" {
			return fmt.Errorf("%w: transport.service is required in service mode", ErrInvalid)
		}
		if owner.Password == "" {
			return fmt.Errorf("%w: CONTACT_OWNER_PASSWORD is not set", ErrMissingCredentials)
		}
	case ModeHostPort:
		if t.Host == "" || t.Port == "" {
			return fmt.Errorf("%w: transport.host and transport.port are required in hostPort mode", ErrInvalid)
		}
		if owner.Password == "" && t.TLS != "none" {
			return fmt.Errorf("%w: CONTACT_OWNER_PASSWORD is not set", ErrMissingCredentials)
		}
	case ModeResend, ModePostmark:
		if t.APIKey == "" {
			return fmt.Errorf("%w: CONTACT_API_KEY is required in %s mode", ErrMissingCredentials, t.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown transport mode %q", ErrInvalid, t.Mode)
	}

	switch t.TLS {
	case "", "starttls", "tls", "none":
	default:
		return fmt.Errorf("%w: unknown tls mode %q", ErrInvalid, t.TLS)
	}

	switch t.SenderPolicy {
	case "", "owner", "sender":
	default:
		return fmt.Errorf("%w: unknown sender policy %q", ErrInvalid, t.SenderPolicy)
	}

	if t.Timeout <= 0 || t.PoolSize < 0 {
		return fmt.Errorf("invalid transport configuration")
	}

	s := config.Server
	validStatus := s.FailureStatus == http.StatusOK || (s.FailureStatus >= 400 && s.FailureStatus <= 599)
	if s.Port == "" || !validStatus || s.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server configuration")
	}

	if config.Logging.Directory == "" || config.Logging.BufferSize <= 0 {
		return fmt.Errorf("invalid logging configuration")
	}

	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Save writes config to path. Credentials belong in the environment and are never written.
func Save(config *Config, path string) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	redacted := *config
	redacted.Owner.Password = ""
	redacted.Transport.APIKey = ""

	data, err := tinytoml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnsureFile writes the default config to path when no file exists there yet.
func EnsureFile(name, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	cfg := Default(name)
	if err := Save(&cfg, path); err != nil {
		return false, err
	}
	return true, nil
}
