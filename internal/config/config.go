package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Search    Search    `mapstructure:"search"`
	Feeds     Feeds     `mapstructure:"feeds"`
	Videos    Videos    `mapstructure:"videos"`
	Topics    Topics    `mapstructure:"topics"`
	Admin     Admin     `mapstructure:"admin"`
	Email     Email     `mapstructure:"email"`
	Analytics Analytics `mapstructure:"analytics"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	FallbackModel string `mapstructure:"fallback_model"`
	Timeout       string `mapstructure:"timeout"`
}

// Search holds search provider configuration
type Search struct {
	DefaultRegion string          `mapstructure:"default_region"`
	MaxResults    int             `mapstructure:"max_results"`
	Timeout       string          `mapstructure:"timeout"`
	Providers     SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	SerpAPI    SerpAPIConfig    `mapstructure:"serpapi"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
}

// SerpAPIConfig holds the paid provider configuration
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DuckDuckGoConfig holds the free provider configuration
type DuckDuckGoConfig struct {
	RateLimit string `mapstructure:"rate_limit"`
}

// Feeds holds news feed worker configuration
type Feeds struct {
	RefreshInterval string `mapstructure:"refresh_interval"`
	RetentionDays   int    `mapstructure:"retention_days"`
	PinnedDays      int    `mapstructure:"pinned_days"`
	DatabaseFile    string `mapstructure:"database_file"`
}

// Videos holds video feed worker configuration
type Videos struct {
	RefreshInterval string `mapstructure:"refresh_interval"`
	MaxRows         int    `mapstructure:"max_rows"`
	DatabaseFile    string `mapstructure:"database_file"`
}

// Topics holds topic manager configuration
type Topics struct {
	File string `mapstructure:"file"`
}

// Admin holds admin credential configuration
type Admin struct {
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SuperUsername string `mapstructure:"super_username"`
	SuperPassword string `mapstructure:"super_password"`
	TokenSecret   string `mapstructure:"token_secret"`
}

// Email holds SMTP configuration
type Email struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Analytics holds the trend miner configuration
type Analytics struct {
	SnapshotFile string `mapstructure:"snapshot_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, env vars and defaults.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".tidings")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Test helper.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".tidings-data")

	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.fallback_model", "gemini-2.0-flash-lite")
	viper.SetDefault("ai.gemini.timeout", "60s")

	viper.SetDefault("search.default_region", "wt-wt")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.providers.duckduckgo.rate_limit", "1s")

	viper.SetDefault("feeds.refresh_interval", "60s")
	viper.SetDefault("feeds.retention_days", 3)
	viper.SetDefault("feeds.pinned_days", 7)
	viper.SetDefault("feeds.database_file", "news.db")

	viper.SetDefault("videos.refresh_interval", "60s")
	viper.SetDefault("videos.max_rows", 200)
	viper.SetDefault("videos.database_file", "videos.db")

	viper.SetDefault("topics.file", "topics.json")
	viper.SetDefault("analytics.snapshot_file", "analytics.json")

	viper.SetDefault("email.smtp_host", "smtp.gmail.com")
	viper.SetDefault("email.smtp_port", 587)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables binds the flat env var names the deployment uses
func bindEnvironmentVariables() {
	_ = viper.BindEnv("ai.gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("search.providers.serpapi.api_key", "SERPAPI_KEY")
	_ = viper.BindEnv("admin.username", "ADMIN_USERNAME")
	_ = viper.BindEnv("admin.password", "ADMIN_PASSWORD")
	_ = viper.BindEnv("admin.super_username", "SUPER_ADMIN_USERNAME")
	_ = viper.BindEnv("admin.super_password", "SUPER_ADMIN_PASSWORD")
	_ = viper.BindEnv("admin.token_secret", "TOKEN_SECRET")
	_ = viper.BindEnv("email.username", "SMTP_USERNAME")
	_ = viper.BindEnv("email.password", "SMTP_PASSWORD")
	_ = viper.BindEnv("email.smtp_host", "SMTP_HOST")
	_ = viper.BindEnv("email.smtp_port", "SMTP_PORT")
	_ = viper.BindEnv("app.data_dir", "TIDINGS_DATA_DIR")
}
