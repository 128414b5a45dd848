package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Lookup resolves a configuration key. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Jira      JiraConfig      `yaml:"jira"`
	GitHub    GitHubConfig    `yaml:"github"`
	LLM       LLMConfig       `yaml:"llm"`
	Timesheet TimesheetConfig `yaml:"timesheet"`
}

type ServerConfig struct {
	Env                string        `yaml:"env"`
	Port               string        `yaml:"port"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`
}

type JiraConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`
}

type GitHubConfig struct {
	Token     string  `yaml:"token"`
	APIURL    string  `yaml:"api_url"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	MaxPages  int     `yaml:"max_pages"`
}

// LLMConfig carries the credentials of every supported provider. Provider
// names the one used when a request does not pick its own.
type LLMConfig struct {
	Provider string       `yaml:"provider"`
	Azure    AzureConfig  `yaml:"azure"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Grok     OpenAIConfig `yaml:"grok"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// TimesheetConfig holds the defaults used when a timesheet request leaves a
// field blank.
type TimesheetConfig struct {
	ProjectKey      string `yaml:"project_key"`
	Billable        string `yaml:"billable"`
	Role            string `yaml:"role"`
	Site            string `yaml:"site"`
	AuthorizedHours string `yaml:"authorized_hours"`
	Days            int    `yaml:"days"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Env:                "dev",
			Port:               "8000",
			CORSAllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			HTTPTimeout:        30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		GitHub: GitHubConfig{
			APIURL:    "https://api.github.com",
			RateLimit: 10,
			MaxPages:  3,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Azure: AzureConfig{
				APIVersion: "2024-02-15-preview",
			},
			OpenAI: OpenAIConfig{
				Model: "gpt-3.5-turbo",
			},
			Grok: OpenAIConfig{
				Model:   "grok-4-latest",
				BaseURL: "https://api.x.ai/v1",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Timesheet: TimesheetConfig{
			ProjectKey:      "PROJ",
			Billable:        "Yes",
			Role:            "Developer",
			Site:            "Offshore",
			AuthorizedHours: "8",
			Days:            5,
		},
	}
}

// FileEnvKey names the optional YAML configuration file.
const FileEnvKey = "AUTUM_CONFIG"

// LoadFromEnv loads configuration from the process environment.
func LoadFromEnv() (*Config, error) {
	return Load(os.LookupEnv)
}

// Load builds the configuration from defaults, then the YAML file named by
// AUTUM_CONFIG (if any), then the enumerated keys resolved through lookup.
func Load(lookup Lookup) (*Config, error) {
	cfg := Default()

	if path, ok := lookup(FileEnvKey); ok && path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyLookup(lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile overlays the YAML document at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

func (c *Config) applyLookup(lookup Lookup) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("ENV", &c.Server.Env)
	str("PORT", &c.Server.Port)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.CORSAllowedOrigins = ParseList(v)
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	str("JIRA_URL", &c.Jira.URL)
	str("JIRA_USERNAME", &c.Jira.Username)
	str("JIRA_API_TOKEN", &c.Jira.APIToken)

	str("GITHUB_TOKEN", &c.GitHub.Token)
	str("GITHUB_API_URL", &c.GitHub.APIURL)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("AZURE_OPENAI_API_KEY", &c.LLM.Azure.APIKey)
	str("AZURE_OPENAI_ENDPOINT", &c.LLM.Azure.Endpoint)
	str("AZURE_OPENAI_DEPLOYMENT_NAME", &c.LLM.Azure.Deployment)
	str("AZURE_OPENAI_API_VERSION", &c.LLM.Azure.APIVersion)
	str("OPENAI_API_KEY", &c.LLM.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.LLM.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.LLM.OpenAI.BaseURL)
	str("GROK_API_KEY", &c.LLM.Grok.APIKey)
	str("GROK_MODEL", &c.LLM.Grok.Model)
	str("GEMINI_API_KEY", &c.LLM.Gemini.APIKey)
	str("GEMINI_MODEL", &c.LLM.Gemini.Model)

	str("TIMESHEET_PROJECT_KEY", &c.Timesheet.ProjectKey)
	str("TIMESHEET_BILLABLE", &c.Timesheet.Billable)
	str("TIMESHEET_ROLE", &c.Timesheet.Role)
	str("TIMESHEET_SITE", &c.Timesheet.Site)
	str("TIMESHEET_AUTHORIZED_HOURS", &c.Timesheet.AuthorizedHours)

	if v, ok := lookup("GITHUB_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_RATE_LIMIT %q: %w", v, err)
		}
		c.GitHub.RateLimit = n
	}

	if v, ok := lookup("GITHUB_MAX_PAGES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GITHUB_MAX_PAGES %q: %w", v, err)
		}
		c.GitHub.MaxPages = n
	}

	if v, ok := lookup("TIMESHEET_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TIMESHEET_DAYS %q: %w", v, err)
		}
		c.Timesheet.Days = n
	}

	if v, ok := lookup("HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		c.Server.HTTPTimeout = d
	}

	return nil
}

// Validate reports every problem found instead of stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		problems = append(problems, fmt.Sprintf("PORT must be numeric, got %q", c.Server.Port))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}

	if c.Jira.URL != "" && (c.Jira.Username == "" || c.Jira.APIToken == "") {
		problems = append(problems, "JIRA_URL provided but JIRA_USERNAME or JIRA_API_TOKEN missing")
	}

	if c.GitHub.RateLimit <= 0 {
		problems = append(problems, "GITHUB_RATE_LIMIT must be positive")
	}
	if c.GitHub.MaxPages <= 0 {
		problems = append(problems, "GITHUB_MAX_PAGES must be positive")
	}

	if _, err := strconv.ParseFloat(c.Timesheet.AuthorizedHours, 64); err != nil {
		problems = append(problems, fmt.Sprintf("TIMESHEET_AUTHORIZED_HOURS must be a number, got %q", c.Timesheet.AuthorizedHours))
	}

	if c.Server.HTTPTimeout <= 0 {
		problems = append(problems, "HTTP_TIMEOUT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// ParseList splits a comma-separated value and drops empty items.
func ParseList(input string) []string {
	if input == "" {
		return []string{}
	}

	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
