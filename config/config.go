package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger         `mapstructure:"logger"`
	DB           Database       `mapstructure:"database"`
	API          API            `mapstructure:"api"`
	SchedulerAPI SchedulerAPI   `mapstructure:"scheduler_api"`
	Monitor      Monitor        `mapstructure:"monitor"`
	Cache        Cache          `mapstructure:"cache"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
	Gemini       GeminiConfig   `mapstructure:"gemini"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

// SchedulerAPI points at the remote scheduler backend that owns the job.
type SchedulerAPI struct {
	BaseURL             string        `mapstructure:"base_url"`
	BearerToken         string        `mapstructure:"bearer_token"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_min"`
}

// Monitor configures the sync controller for the single watched schedule.
type Monitor struct {
	ScheduleID           uint          `mapstructure:"schedule_id"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	HistoryLimit         int           `mapstructure:"history_limit"`
	TriggerResyncDelay   time.Duration `mapstructure:"trigger_resync_delay"`
	SurfaceHistoryErrors bool          `mapstructure:"surface_history_errors"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	PreferenceExp     time.Duration `mapstructure:"preference_exp_duration"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    string        `mapstructure:"chat_id"`
	Timeout                   time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

type GeminiConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_min"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_min"`
}

func Load() (*Config, error) {
	// .env is optional, env vars win either way
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("scheduler_api.timeout", "10s")
	viper.SetDefault("scheduler_api.max_request_per_min", 60)
	viper.SetDefault("monitor.poll_interval", "30s")
	viper.SetDefault("monitor.history_limit", 50)
	viper.SetDefault("monitor.trigger_resync_delay", "2s")
	viper.SetDefault("monitor.surface_history_errors", false)
	viper.SetDefault("cache.default_expiration", "5m")
	viper.SetDefault("cache.cleanup_interval", "10m")
	viper.SetDefault("cache.preference_exp_duration", "5m")
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/models")
	viper.SetDefault("gemini.base_model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", "30s")
	viper.SetDefault("gemini.max_request_per_min", 10)
	viper.SetDefault("gemini.max_token_per_min", 1000000)
}
