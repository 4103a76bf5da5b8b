// Package config loads regwatch settings from an optional YAML file, .env files
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jjenkins/regwatch/internal/logger"
	"github.com/jjenkins/regwatch/internal/model"
)

// Config is the full regwatch configuration
type Config struct {
	FederalRegister FederalRegisterConfig `mapstructure:"federal_register"`
	Agencies        map[string][]string   `mapstructure:"agencies"`
	TypeMarkers     map[string]string     `mapstructure:"type_markers"`
	Report          ReportConfig          `mapstructure:"report"`
	Database        DatabaseConfig        `mapstructure:"database"`
	SMTP            SMTPConfig            `mapstructure:"smtp"`
	Summarizer      SummarizerConfig      `mapstructure:"summarizer"`
	Server          ServerConfig          `mapstructure:"server"`
	Schedule        ScheduleConfig        `mapstructure:"schedule"`
	Logger          logger.Config         `mapstructure:"logger"`
}

// FederalRegisterConfig configures the upstream API client
type FederalRegisterConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PerPage    int           `mapstructure:"per_page"`
	MaxPages   int           `mapstructure:"max_pages"`
	MaxRetries int           `mapstructure:"max_retries"`

	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// ReportConfig holds report defaults
type ReportConfig struct {
	Agency    string `mapstructure:"agency"`
	Days      int    `mapstructure:"days"`
	MaxListed int    `mapstructure:"max_listed"`
}

// DatabaseConfig configures optional report persistence
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// SMTPConfig configures email delivery
type SMTPConfig struct {
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Subject  string `mapstructure:"subject"`
}

// SummarizerConfig configures the Claude summarizer
type SummarizerConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the web server
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// ScheduleConfig configures the cron scheduler
type ScheduleConfig struct {
	Cron     string   `mapstructure:"cron"`
	Agencies []string `mapstructure:"agencies"`
}

// Load reads configuration. path may be empty, in which case ./regwatch.yaml is used if present.
func Load(path string) (*Config, error) {
	// .env is optional; existing environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("regwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("federal_register.base_url", "https://www.federalregister.gov/api/v1")
	v.SetDefault("federal_register.timeout", 30*time.Second)
	v.SetDefault("federal_register.per_page", 1000)
	v.SetDefault("federal_register.max_pages", 10)
	v.SetDefault("federal_register.max_retries", 3)
	v.SetDefault("federal_register.requests_per_second", 5.0)

	v.SetDefault("agencies", map[string][]string{
		"HHS":  {"health-and-human-services-department"},
		"CMS":  {"centers-for-medicare-medicaid-services"},
		"BOTH": {"health-and-human-services-department", "centers-for-medicare-medicaid-services"},
	})
	v.SetDefault("type_markers", map[string]string{
		"rule":          string(model.DocTypeFinal),
		"final rule":    string(model.DocTypeFinal),
		"prorule":       string(model.DocTypeProposed),
		"proposed rule": string(model.DocTypeProposed),
	})

	v.SetDefault("report.agency", "BOTH")
	v.SetDefault("report.days", 30)
	v.SetDefault("report.max_listed", 10)

	v.SetDefault("smtp.server", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.subject", "HHS/CMS Regulatory Change Summary")

	v.SetDefault("summarizer.max_tokens", 2048)
	v.SetDefault("summarizer.timeout", 60*time.Second)

	v.SetDefault("server.port", "8080")

	v.SetDefault("schedule.cron", "0 7 * * 1")
	v.SetDefault("schedule.agencies", []string{"BOTH"})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// bindEnv maps the environment variable names operators already use onto config keys
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"database.url":       {"DATABASE_URL"},
		"server.port":        {"PORT"},
		"smtp.server":        {"SMTP_SERVER"},
		"smtp.port":          {"SMTP_PORT"},
		"smtp.user":          {"SMTP_USER"},
		"smtp.password":      {"SMTP_PASSWORD"},
		"smtp.from":          {"SMTP_FROM"},
		"smtp.to":            {"COMPLIANCE_EMAIL_TO"},
		"summarizer.api_key": {"ANTHROPIC_API_KEY"},
		"summarizer.model":   {"ANTHROPIC_MODEL"},
		"schedule.cron":      {"REGWATCH_SCHEDULE"},
		"logger.level":       {"LOG_LEVEL"},
		"logger.format":      {"LOG_FORMAT"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if len(c.Agencies) == 0 {
		return errors.New("config: at least one agency alias is required")
	}
	for alias, slugs := range c.Agencies {
		if len(slugs) == 0 {
			return fmt.Errorf("config: agency %q has no slugs", alias)
		}
	}
	for marker, name := range c.TypeMarkers {
		switch model.DocType(name) {
		case model.DocTypeFinal, model.DocTypeProposed, model.DocTypeOther:
		default:
			return fmt.Errorf("config: type marker %q maps to unknown type %q", marker, name)
		}
	}
	if c.Report.Days <= 0 {
		return fmt.Errorf("config: report.days must be positive, got %d", c.Report.Days)
	}
	return nil
}

// AgencyMap returns aliases upper-cased; viper lower-cases map keys when reading files
func (c *Config) AgencyMap() map[string][]string {
	out := make(map[string][]string, len(c.Agencies))
	for alias, slugs := range c.Agencies {
		out[strings.ToUpper(alias)] = slugs
	}
	return out
}

// AgencyAliases returns the configured aliases in sorted order
func (c *Config) AgencyAliases() []string {
	aliases := make([]string, 0, len(c.Agencies))
	for alias := range c.AgencyMap() {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// NormalizerConfig builds the explicit normalizer configuration from loaded settings
func (c *Config) NormalizerConfig() model.NormalizerConfig {
	aliases := make(map[string]struct{}, len(c.Agencies))
	for alias := range c.AgencyMap() {
		aliases[alias] = struct{}{}
	}

	markers := make(map[string]model.DocType, len(c.TypeMarkers))
	for marker, name := range c.TypeMarkers {
		markers[strings.ToLower(marker)] = model.DocType(name)
	}
	if len(markers) == 0 {
		markers = model.DefaultTypeMarkers()
	}

	return model.NormalizerConfig{
		AgencyAliases: aliases,
		TypeMarkers:   markers,
	}
}

// Recipients splits the comma separated recipient list
func (s SMTPConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(s.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
