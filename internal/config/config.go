package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// Config holds all configuration from environment variables.
type Config struct {
	BotID    string `envconfig:"BOT_ID" default:"echobot"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":3978"`

	// Telegram channel is disabled when no token is set.
	TelegramToken string `envconfig:"TELEGRAM_API_TOKEN"`

	// Completion service settings
	Completion Completion

	// Conversation memory backend settings
	Memory Memory

	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"echobot"`

	// Path to config.toml file
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.toml"`

	// Messages loaded from config.toml
	Messages Messages
}

// Completion holds the settings of the long-lived completion client.
type Completion struct {
	Provider    string        `envconfig:"COMPLETION_PROVIDER" default:"langchain"`
	APIType     string        `envconfig:"COMPLETION_API_TYPE" default:"openai"`
	APIKey      string        `envconfig:"COMPLETION_API_KEY" required:"true"`
	BaseURL     string        `envconfig:"COMPLETION_BASE_URL" default:"https://api.openai.com/v1"`
	APIVersion  string        `envconfig:"COMPLETION_API_VERSION" default:"2024-02-01"`
	Model       string        `envconfig:"COMPLETION_MODEL" default:"gpt-35-turbo"`
	Timeout     time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"60s"`
	MaxAttempts int           `envconfig:"COMPLETION_MAX_ATTEMPTS" default:"1"`
}

// Memory selects and configures the conversation memory backend.
type Memory struct {
	Type     string        `envconfig:"MEMORY_STORE" default:"inmemory"`
	URL      string        `envconfig:"MEMORY_STORE_URL"`
	Username string        `envconfig:"MEMORY_STORE_USERNAME"`
	Password string        `envconfig:"MEMORY_STORE_PASSWORD"`
	DBName   string        `envconfig:"MEMORY_STORE_DB"`
	TTL      time.Duration `envconfig:"MEMORY_TTL" default:"0s"`
}

// Messages holds the static texts the bot sends, loaded from config.toml.
type Messages struct {
	Welcome string `toml:"welcome"`
	Error   string `toml:"error"`
}

// FileConfig represents the structure of config.toml.
type FileConfig struct {
	Messages Messages `toml:"messages"`
}

// DefaultMessages provides fallback texts if config.toml is not found.
var DefaultMessages = Messages{
	Welcome: "Hello and welcome!",
	Error:   "The bot encountered an error or bug.",
}

// LoadEnv loads the configuration from environment variables.
func (c Config) LoadEnv() (Config, error) {
	cfg := c

	if err := envconfig.Process("", &cfg); err != nil {
		return c, err
	}

	return cfg, nil
}

// LoadFile loads message texts from config.toml file.
func (c *Config) LoadFile() error {
	// Try to find config file
	configPath := c.ConfigFile
	if !filepath.IsAbs(configPath) {
		// Try current directory first
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			// Try executable directory
			execPath, err := os.Executable()
			if err == nil {
				configPath = filepath.Join(filepath.Dir(execPath), c.ConfigFile)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.Messages = DefaultMessages
		return nil
	}

	var fileConfig FileConfig
	if _, err := toml.DecodeFile(configPath, &fileConfig); err != nil {
		return err
	}

	c.Messages = fileConfig.Messages

	// Use defaults for empty messages
	if c.Messages.Welcome == "" {
		c.Messages.Welcome = DefaultMessages.Welcome
	}
	if c.Messages.Error == "" {
		c.Messages.Error = DefaultMessages.Error
	}

	return nil
}

// NewConfig reads the configuration once at startup: .env (if any), the
// environment, then config.toml.
func NewConfig() (*Config, error) {
	// A missing .env file is fine, real environment variables still apply.
	_ = godotenv.Load()

	var cfg Config
	loadedCfg, err := cfg.LoadEnv()
	if err != nil {
		return nil, err
	}

	if err := loadedCfg.LoadFile(); err != nil {
		return nil, err
	}

	return &loadedCfg, nil
}

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(
			NewConfig,
		),
	)
}
