package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HubSpot     HubSpotConfig     `yaml:"hubspot" mapstructure:"hubspot"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	TripAdvisor TripAdvisorConfig `yaml:"tripadvisor" mapstructure:"tripadvisor"`
	Tavily      TavilyConfig      `yaml:"tavily" mapstructure:"tavily"`
	Perplexity  PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	ElevenLabs  ElevenLabsConfig  `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Jobs        JobsConfig        `yaml:"jobs" mapstructure:"jobs"`
	Call        CallConfig        `yaml:"call" mapstructure:"call"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// HubSpotConfig holds the HubSpot private-app token and rate limit.
type HubSpotConfig struct {
	Token          string  `yaml:"token" mapstructure:"token"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TripAdvisorConfig holds TripAdvisor Content API settings.
type TripAdvisorConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TavilyConfig holds Tavily search/extract API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings (fallback provider).
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for lead qualification.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ElevenLabsConfig holds the conversational-AI telephony settings.
type ElevenLabsConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	AgentID       string `yaml:"agent_id" mapstructure:"agent_id"`
	PhoneNumberID string `yaml:"phone_number_id" mapstructure:"phone_number_id"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
}

// JobsConfig configures the in-memory job registry.
type JobsConfig struct {
	MaxJobs         int `yaml:"max_jobs" mapstructure:"max_jobs"`
	CooldownMinutes int `yaml:"cooldown_minutes" mapstructure:"cooldown_minutes"`
	TimeoutMinutes  int `yaml:"timeout_minutes" mapstructure:"timeout_minutes"`
}

// CallConfig configures outbound call retry and polling behavior.
type CallConfig struct {
	PollIntervalSecs   int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollTimeoutSecs    int `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	BusyRetryDelaySecs int `yaml:"busy_retry_delay_secs" mapstructure:"busy_retry_delay_secs"`
	AttemptsPerNumber  int `yaml:"attempts_per_number" mapstructure:"attempts_per_number"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGENTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.requests_per_sec", 4)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("tripadvisor.base_url", "https://api.content.tripadvisor.com/api/v1")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("jobs.max_jobs", 1000)
	v.SetDefault("jobs.cooldown_minutes", 30)
	v.SetDefault("jobs.timeout_minutes", 15)
	v.SetDefault("call.poll_interval_secs", 5)
	v.SetDefault("call.poll_timeout_secs", 300)
	v.SetDefault("call.busy_retry_delay_secs", 10)
	v.SetDefault("call.attempts_per_number", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the mandatory credentials are present. Optional
// providers (TripAdvisor, Tavily, Perplexity, ElevenLabs, Anthropic) are
// toggled by credential presence and not validated here.
func (c *Config) Validate() error {
	if c.HubSpot.Token == "" {
		return eris.New("config: hubspot.token is required (AGENTE_HUBSPOT_TOKEN)")
	}
	if c.Places.Key == "" {
		return eris.New("config: places.key is required (AGENTE_PLACES_KEY)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
