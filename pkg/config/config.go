// Package config loads the notifier configuration from code defaults, an
// optional YAML file, and environment-variable overrides, in that order.
// A .env file is honored in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// TestModeEnvVar is the environment toggle that forces the capture path
// instead of the real broker. It is re-read on every publish call so tests
// can flip it per-test.
const TestModeEnvVar = "NOTIFIER_TEST_MODE"

var loadDotEnv sync.Once

// Broker configures the Kafka client shared by producer and worker.
type Broker struct {
	Addresses    []string      `yaml:"addresses" env:"NOTIFIER_KAFKA_BROKERS" envSeparator:","`
	GroupID      string        `yaml:"groupID" env:"NOTIFIER_KAFKA_GROUP_ID"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"NOTIFIER_KAFKA_WRITE_TIMEOUT"`
}

// Mail configures the SMTP transport.
type Mail struct {
	Host               string `yaml:"host" env:"NOTIFIER_SMTP_HOST"`
	Port               int    `yaml:"port" env:"NOTIFIER_SMTP_PORT"`
	Username           string `yaml:"username" env:"NOTIFIER_SMTP_USERNAME"`
	Password           string `yaml:"password" env:"NOTIFIER_SMTP_PASSWORD"`
	SenderAddress      string `yaml:"senderAddress" env:"NOTIFIER_SMTP_SENDER"`
	SenderName         string `yaml:"senderName" env:"NOTIFIER_SMTP_SENDER_NAME"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" env:"NOTIFIER_SMTP_INSECURE_SKIP_VERIFY"`
	RetryCount         int    `yaml:"retryCount" env:"NOTIFIER_SMTP_RETRY_COUNT"`
	RetryBackoffMs     int    `yaml:"retryBackoffMs" env:"NOTIFIER_SMTP_RETRY_BACKOFF_MS"`
}

// Worker configures the consumer-side task queue.
type Worker struct {
	RetryDelay  time.Duration `yaml:"retryDelay" env:"NOTIFIER_TASK_RETRY_DELAY"`
	MaxAttempts int           `yaml:"maxAttempts" env:"NOTIFIER_TASK_MAX_ATTEMPTS"`
	QueueSize   int           `yaml:"queueSize" env:"NOTIFIER_TASK_QUEUE_SIZE"`
}

// Results configures the task status store.
type Results struct {
	URL string        `yaml:"url" env:"NOTIFIER_RESULT_STORE_URL"`
	TTL time.Duration `yaml:"ttl" env:"NOTIFIER_RESULT_TTL"`
}

// Server holds addresses the notifier exposes or links to.
type Server struct {
	// BaseURL is the public web application URL used to build verification
	// links, e.g. "https://app.userhub.example.com".
	BaseURL       string `yaml:"baseURL" env:"NOTIFIER_SERVER_BASE_URL"`
	ListenAddress string `yaml:"listenAddress" env:"NOTIFIER_OPS_LISTEN_ADDRESS"`
}

// Config is the complete notifier configuration.
type Config struct {
	Broker  Broker  `yaml:"broker"`
	Mail    Mail    `yaml:"mail"`
	Worker  Worker  `yaml:"worker"`
	Results Results `yaml:"results"`
	Server  Server  `yaml:"server"`
	// TestMode forces the capture path permanently. The environment toggle
	// is deliberately not bound here: it is re-read inside TestModeProbe so
	// flipping it mid-run takes effect.
	TestMode bool `yaml:"testMode"`
}

// Defaults fills unset fields with their default values.
func (c *Config) Defaults() {
	if len(c.Broker.Addresses) == 0 {
		c.Broker.Addresses = []string{"localhost:9092"}
	}
	if c.Broker.GroupID == "" {
		c.Broker.GroupID = "notifier-workers"
	}
	if c.Broker.WriteTimeout <= 0 {
		c.Broker.WriteTimeout = 10 * time.Second
	}
	if c.Mail.Host == "" {
		c.Mail.Host = "localhost"
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = 587
	}
	if c.Mail.SenderAddress == "" {
		c.Mail.SenderAddress = "noreply@userhub.example.com"
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = "UserHub"
	}
	if c.Mail.RetryCount <= 0 {
		c.Mail.RetryCount = 3
	}
	if c.Mail.RetryBackoffMs <= 0 {
		c.Mail.RetryBackoffMs = 100
	}
	if c.Worker.RetryDelay <= 0 {
		c.Worker.RetryDelay = 60 * time.Second
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = 1000
	}
	if c.Results.URL == "" {
		c.Results.URL = "redis://localhost:6379/0"
	}
	if c.Results.TTL <= 0 {
		c.Results.TTL = 24 * time.Hour
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8000"
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8090"
	}
}

// Load reads the configuration. An optional YAML file (the argument, or
// NOTIFIER_CONFIG_PATH, or ./config.yaml if present) provides the base;
// environment variables override the file, and Defaults fills the rest.
func Load(configPath ...string) (Config, error) {
	loadDotEnv.Do(func() {
		// The .env file is optional; absence is not an error.
		_ = godotenv.Load()
	})

	var cfg Config

	path := ""
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else if p := os.Getenv("NOTIFIER_CONFIG_PATH"); p != "" {
		path = p
	} else if _, err := os.Stat("./config.yaml"); err == nil {
		path = "./config.yaml"
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("trying to open notifier config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing environment overrides: %w", err)
	}

	cfg.Defaults()
	return cfg, nil
}

// TestModeProbe returns a function that reports whether capture mode is
// requested. The environment variable is re-evaluated on every call so a
// per-test toggle takes effect immediately.
func (c Config) TestModeProbe() func() bool {
	static := c.TestMode
	return func() bool {
		if static {
			return true
		}
		v, err := strconv.ParseBool(os.Getenv(TestModeEnvVar))
		return err == nil && v
	}
}
