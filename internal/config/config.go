package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when the inference credential is not set.
var ErrMissingAPIKey = errors.New("API_KEY environment variable is not set")

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		MaxUploadMB  int64         `yaml:"maxUploadMB"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // file|memory|redis|mysql|postgres|minio
		Slot   string `yaml:"slot"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint    string `yaml:"endpoint"`
		AccessKey   string `yaml:"accessKey"`
		SecretKey   string `yaml:"secretKey"`
		BucketName  string `yaml:"bucketName"`
		Region      string `yaml:"region"`
		UseSSL      bool   `yaml:"useSSL"`
		StoreImages bool   `yaml:"storeImages"`
	} `yaml:"minio"`

	AI struct {
		Provider string `yaml:"provider"` // gemini|openai
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"baseURL"`
		APIKey   string `yaml:"-"`
	} `yaml:"ai"`

	Auth struct {
		// APIKeys maps a client name to its key. Empty disables auth.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`  // debug|info|warn|error
		Format string `yaml:"format"` // text|json
	} `yaml:"log"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requestsPerMinute"`
		Burst             int `yaml:"burst"`
	} `yaml:"rateLimit"`
}

// Load baca file config.yaml, lalu API_KEY dari environment
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.AI.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if cfg.AI.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the settings used for anything the file leaves out.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 120 * time.Second
	c.Server.MaxUploadMB = 10
	c.Server.CORSOrigins = []string{"*"}
	c.Storage.Driver = "file"
	c.Storage.Slot = "plant-disease-app-profiles"
	c.Storage.Path = "data/plant-disease-app-profiles.json"
	c.Database.Port = 3306
	c.Postgres.Port = 5432
	c.Postgres.SSLMode = "disable"
	c.Redis.Addr = "localhost:6379"
	c.AI.Provider = "gemini"
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.RateLimit.RequestsPerMinute = 30
	c.RateLimit.Burst = 5
	return &c
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "memory", "redis", "mysql", "postgres", "minio":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Name,
		c.Postgres.SSLMode,
	)
}

// UploadLimit is the multipart body limit in bytes.
func (c *Config) UploadLimit() int64 {
	return c.Server.MaxUploadMB << 20
}
