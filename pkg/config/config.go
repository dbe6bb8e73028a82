package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// StorageConfig selects the record store backend: "file" (default),
// "postgres", or "memory".
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	DataDir  string         `mapstructure:"data_dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ClassifierConfig struct {
	UseGPT  bool `mapstructure:"use_gpt"`
	MaxTags int  `mapstructure:"max_tags"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// RemindersConfig drives the scheduler cadences. Times are HH:MM in
// the process's local timezone.
type RemindersConfig struct {
	ImmediateInterval time.Duration `mapstructure:"immediate_interval"`
	ImmediateDelay    time.Duration `mapstructure:"immediate_delay"`
	OverdueInterval   time.Duration `mapstructure:"overdue_interval"`
	MiddayAt          string        `mapstructure:"midday_at"`
	EveningAt         string        `mapstructure:"evening_at"`
	SummaryAt         string        `mapstructure:"summary_at"`
}

func parsePostgresURL(dbURL string) (PostgresConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return PostgresConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return PostgresConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("classifier.use_gpt", true)
	v.SetDefault("classifier.max_tags", 5)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("reminders.immediate_interval", "1m")
	v.SetDefault("reminders.immediate_delay", "5m")
	v.SetDefault("reminders.overdue_interval", "4h")
	v.SetDefault("reminders.midday_at", "12:00")
	v.SetDefault("reminders.evening_at", "18:00")
	v.SetDefault("reminders.summary_at", "09:00")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		pgConfig, err := parsePostgresURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Storage.Backend = "postgres"
		config.Storage.Postgres = pgConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
