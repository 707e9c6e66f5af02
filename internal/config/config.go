package config

import (
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	History HistoryConfig
	Bot     BotConfig
	Log     LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// GeminiConfig holds the generative backend configuration. The API key may
// also be provided via the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	ProModel string `mapstructure:"pro_model"`
	BaseURL  string `mapstructure:"base_url"`
}

// HistoryConfig holds the conversation history configuration
type HistoryConfig struct {
	DBPath   string `mapstructure:"db_path"`
	MaxTurns int    `mapstructure:"max_turns"`
}

// BotConfig holds the bot's own chat identity and metadata. User is the
// platform resource name (users/...) used to match mention annotations.
type BotConfig struct {
	User      string `mapstructure:"user"`
	SourceURL string `mapstructure:"source_url"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from the config.yaml file, or from the file
// named by CONFIG_PATH when set.
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.pro_model", "gemini-2.5-pro")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("history.db_path", "history.db")
	v.SetDefault("history.max_turns", 20)
	v.SetDefault("log.level", "info")

	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
