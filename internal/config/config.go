// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	Reporting ReportingConfig `mapstructure:"reporting" yaml:"reporting"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AgentConfig holds the navigation policy and the LLM routing settings.
type AgentConfig struct {
	// MaxSteps caps the number of decide calls per navigate invocation.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// FailureThreshold is the consecutive verification failures that trigger
	// a stuck intervention.
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	// NavigateBudget is the wall-clock budget per navigate call. Zero means
	// no budget.
	NavigateBudget time.Duration `mapstructure:"navigate_budget" yaml:"navigate_budget"`
	// HistoryWindow is how many recent action records are shown to the oracle.
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`

	LLM LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	// RequestsPerSecond bounds the outbound call rate to the provider.
	RequestsPerSecond float64                   `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Models            map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// BrowserConfig holds settings for the headless browser sessions.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	// ScrollUnit is the fixed viewport advance, in pixels, for a scroll step.
	ScrollUnit float64 `mapstructure:"scroll_unit" yaml:"scroll_unit"`
}

// KnowledgeConfig selects the site-knowledge backend.
type KnowledgeConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"` // "memory" or "postgres"
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds the connection details for a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"-"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// DSN renders the connection string pgx expects.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// ReportingConfig configures where intervention records land.
type ReportingConfig struct {
	InterventionDir string `mapstructure:"intervention_dir" yaml:"intervention_dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scout-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Agent policy --
	// The defaults (5 steps, 3 consecutive failures) are deliberate behavioral
	// constants; override only with calibration data to back it up.
	v.SetDefault("agent.max_steps", 5)
	v.SetDefault("agent.failure_threshold", 3)
	v.SetDefault("agent.navigate_budget", "4m")
	v.SetDefault("agent.history_window", 10)

	// -- Agent LLM --
	v.SetDefault("agent.llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("agent.llm.default_powerful_model", "gemini-2.5-pro")
	v.SetDefault("agent.llm.requests_per_second", 1.0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1440)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.settle_timeout", "15s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.scroll_unit", 720)

	// -- Knowledge --
	v.SetDefault("knowledge.type", "memory")
	v.SetDefault("knowledge.postgres.host", "localhost")
	v.SetDefault("knowledge.postgres.port", 5432)
	v.SetDefault("knowledge.postgres.user", "postgres")
	v.SetDefault("knowledge.postgres.password", "") // Set via SCOUT_KNOWLEDGE_POSTGRES_PASSWORD.
	v.SetDefault("knowledge.postgres.dbname", "scout_knowledge")
	v.SetDefault("knowledge.postgres.sslmode", "disable")

	// -- Reporting --
	v.SetDefault("reporting.intervention_dir", "interventions")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; a failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("knowledge.postgres.password", "SCOUT_KNOWLEDGE_POSTGRES_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	dir, err := homedir.Expand(cfg.Reporting.InterventionDir)
	if err != nil {
		return nil, fmt.Errorf("invalid intervention_dir: %w", err)
	}
	cfg.Reporting.InterventionDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.FailureThreshold <= 0 {
		return fmt.Errorf("agent.failure_threshold must be a positive integer")
	}
	if c.Agent.HistoryWindow < 0 {
		return fmt.Errorf("agent.history_window must not be negative")
	}
	if c.Browser.ScrollUnit <= 0 {
		return fmt.Errorf("browser.scroll_unit must be positive")
	}
	switch c.Knowledge.Type {
	case "memory", "postgres":
	default:
		return fmt.Errorf("knowledge.type must be \"memory\" or \"postgres\", got %q", c.Knowledge.Type)
	}
	return nil
}
