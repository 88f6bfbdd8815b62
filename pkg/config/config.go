package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"PersonalQT/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development production test"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		BasePath        string        `yaml:"base_path" default:"/personal-qt/" validate:"startswith=/,endswith=/"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	API struct {
		BaseURL string        `yaml:"base_url" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	} `yaml:"api"`
	Proxy struct {
		Enabled bool   `yaml:"enabled"`
		Prefix  string `yaml:"prefix" default:"/api" validate:"startswith=/"`
		Target  string `yaml:"target" validate:"required_if=Enabled true"`
	} `yaml:"proxy"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
		Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`
	LogCollector struct {
		Enabled        bool          `yaml:"enabled"`
		Interval       time.Duration `yaml:"interval" default:"30s"`
		CountThreshold int           `yaml:"count_threshold" default:"100" validate:"gte=1"`
		Topic          string        `yaml:"topic" default:"personal-qt.logs"`
	} `yaml:"log_collector"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers" validate:"omitempty,dive,hostname_port"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		GroupID      string        `yaml:"group_id" default:"personal-qt"`
		ChangesTopic string        `yaml:"changes_topic"`
		Workers      int           `yaml:"workers" default:"1" validate:"gte=1"`
	} `yaml:"kafka"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		TTL     time.Duration `yaml:"ttl" default:"1m"`
		MaxSize int           `yaml:"max_size" default:"256" validate:"gte=1"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"personal-qt"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sync struct {
		OnStart  bool   `yaml:"on_start" default:"true"`
		Schedule string `yaml:"schedule"`
		Limit    int    `yaml:"limit" default:"100" validate:"gte=1,lte=1000"`
		// refresh actions per collection per second; 0 disables throttling
		RefreshRate  float64 `yaml:"refresh_rate" default:"1" validate:"gte=0"`
		RefreshBurst int     `yaml:"refresh_burst" default:"3" validate:"gte=1"`
	} `yaml:"sync"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// decode applies defaults before unmarshalling so explicit zero values
// in the file (on_start: false) survive.
func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file next to the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("PROXY_TARGET"); v != "" {
		c.Proxy.Enabled = true
		c.Proxy.Target = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := os.Getenv("KAFKA_CHANGES_TOPIC"); v != "" {
		c.Kafka.ChangesTopic = v
	}
	if v := os.Getenv("SYNC_SCHEDULE"); v != "" {
		c.Sync.Schedule = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Proxy.Enabled {
		if err := validate.Var(c.Proxy.Target, "url"); err != nil {
			return fmt.Errorf("proxy.target: %w", err)
		}
	}
	if c.LogCollector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("log_collector requires kafka.brokers")
	}
	if c.Kafka.ChangesTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.changes_topic requires kafka.brokers")
	}
	return nil
}
