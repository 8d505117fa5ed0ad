package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// relative to the XDG config home
const defaultConfigPath = "financas/config.yaml"

var ErrMissingSetting = errors.New("missing required setting")

type Config struct {
	Env         string `yaml:"env"`
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	CORSOrigin  string `yaml:"corsOrigin"`

	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Limits  LimitsConfig  `yaml:"limits"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
	AdminKey  string        `yaml:"adminKey"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type LimitsConfig struct {
	WriteMax    int           `yaml:"writeMax"`
	WriteWindow time.Duration `yaml:"writeWindow"`
	AuthMax     int           `yaml:"authMax"`
}

// StorageConfig selects where archived statements go. BlobServiceURL wins
// over Dir when both are set.
type StorageConfig struct {
	BlobServiceURL string        `yaml:"blobServiceUrl"`
	Container      string        `yaml:"container"`
	Dir            string        `yaml:"dir"`
	LinkTTL        time.Duration `yaml:"linkTtl"`
}

type QueueConfig struct {
	ServiceURL string `yaml:"serviceUrl"`
	Name       string `yaml:"name"`
}

type JobsConfig struct {
	SweepInterval time.Duration `yaml:"sweepInterval"`
	Disabled      bool          `yaml:"disabled"`
}

// Default returns the settings used when neither a file nor the
// environment provides a value.
func Default() Config {
	return Config{
		Env:        "dev",
		Port:       "8080",
		CORSOrigin: "*",
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			WriteMax:    60,
			WriteWindow: time.Minute,
			AuthMax:     10,
		},
		Storage: StorageConfig{
			Container: "statements",
			Dir:       "data/reports",
			LinkTTL:   7 * 24 * time.Hour,
		},
		Queue: QueueConfig{
			Name: "invoice-events",
		},
		Jobs: JobsConfig{
			SweepInterval: time.Hour,
		},
	}
}

// Load reads the YAML file at path (or, when path is empty, FINANCAS_CONFIG
// and then the XDG config location), and applies environment overrides on
// top. A missing file is not an error.
func Load(path string) (Config, string, error) {
	conf := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("FINANCAS_CONFIG"))
	}
	if path == "" {
		if p, err := xdg.SearchConfigFile(defaultConfigPath); err == nil {
			path = p
		}
	}

	loaded := ""
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &conf); err != nil {
				return conf, "", fmt.Errorf("failed to unmarshal config %v: %w", path, err)
			}
			loaded = path
		case errors.Is(err, os.ErrNotExist):
		default:
			return conf, "", fmt.Errorf("failed to load config %v: %w", path, err)
		}
	}

	applyEnv(&conf)
	return conf, loaded, nil
}

func applyEnv(c *Config) {
	setString(&c.Env, "ENV")
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CORSOrigin, "CORS_ORIGIN")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.AdminKey, "ADMIN_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Storage.BlobServiceURL, "BLOB_SERVICE_URL")
	setString(&c.Storage.Dir, "STATEMENTS_DIR")
	setString(&c.Queue.ServiceURL, "QUEUE_SERVICE_URL")

	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_TX_MAX")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Limits.WriteMax = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_TX_WINDOW_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Limits.WriteWindow = time.Duration(parsed) * time.Second
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("JOBS_DISABLED")), "true") {
		c.Jobs.Disabled = true
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports the first required setting that is absent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: DATABASE_URL", ErrMissingSetting)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET", ErrMissingSetting)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
