package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultIngestTimeout = 2 * time.Minute

	configPathEnv       = "TECHSLOP_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	chatGPTAPIKeyEnv    = "CHATGPT_API_KEY"
	chatGPTModelEnv     = "CHATGPT_MODEL"
	voiceAPIKeyEnv      = "VOICE_API_KEY"
	redditSubredditsEnv = "REDDIT_SUBREDDITS"
	fourchanKeywordsEnv = "FOURCHAN_KEYWORDS"
	xKeywordsEnv        = "X_KEYWORDS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	ChatGPT   ChatGPTConfig   `yaml:"chatgpt"`
	Voice     VoiceConfig     `yaml:"voice"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Output    OutputConfig    `yaml:"output"`
}

// LoggingConfig controls the console logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// IngestConfig selects sources and bounds the whole fan-out.
type IngestConfig struct {
	// Sources lists enabled fetcher names; unknown names are rejected
	// during application wiring, before any fetch runs.
	Sources []string `yaml:"sources"`
	// Timeout is the wall-clock budget for one complete ingestion run,
	// e.g. "2m". Per-request timeouts live inside each fetcher.
	Timeout string `yaml:"timeout"`

	// RedditSubreddits, FourchanKeywords, and XKeywords are
	// comma-separated lists. An empty keyword list disables the
	// keyword-gated source.
	RedditSubreddits string `yaml:"redditSubreddits"`
	FourchanKeywords string `yaml:"fourchanKeywords"`
	XKeywords        string `yaml:"xKeywords"`
}

// TimeoutDuration resolves the ingest timeout string, defaulting to 2m.
func (i IngestConfig) TimeoutDuration() time.Duration {
	if i.Timeout == "" {
		return defaultIngestTimeout
	}
	d, err := time.ParseDuration(i.Timeout)
	if err != nil || d <= 0 {
		log.Printf("config: invalid ingest timeout %q, using %s", i.Timeout, defaultIngestTimeout)
		return defaultIngestTimeout
	}
	return d
}

// ScoringConfig optionally overrides the default ranking parameters.
type ScoringConfig struct {
	Weights      map[string]float64 `yaml:"weights"`
	RecencyHours float64            `yaml:"recencyHours"`
	RecencyBoost float64            `yaml:"recencyBoost"`
}

// ChatGPTConfig defines how to contact the script-generation API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// VoiceConfig defines the external text-to-speech service.
type VoiceConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	VoiceID  string `yaml:"voiceId"`
}

// SchedulerConfig defines when recurring ingestion should run.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	MonitorPort    string `yaml:"monitorPort"`
}

// OutputConfig locates generated artifacts on disk.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Ingest.Sources) == 0 {
		cfg.Ingest.Sources = defaultConfig().Ingest.Sources
	}

	return cfg
}

// SplitList breaks a comma-separated config value into trimmed non-empty parts.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(voiceAPIKeyEnv); v != "" {
		c.Voice.APIKey = v
	}

	if v := os.Getenv(redditSubredditsEnv); v != "" {
		c.Ingest.RedditSubreddits = v
	}

	if v := os.Getenv(fourchanKeywordsEnv); v != "" {
		c.Ingest.FourchanKeywords = v
	}

	if v := os.Getenv(xKeywordsEnv); v != "" {
		c.Ingest.XKeywords = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if len(override.Ingest.Sources) > 0 {
		base.Ingest.Sources = override.Ingest.Sources
	}
	if override.Ingest.Timeout != "" {
		base.Ingest.Timeout = override.Ingest.Timeout
	}
	if override.Ingest.RedditSubreddits != "" {
		base.Ingest.RedditSubreddits = override.Ingest.RedditSubreddits
	}
	if override.Ingest.FourchanKeywords != "" {
		base.Ingest.FourchanKeywords = override.Ingest.FourchanKeywords
	}
	if override.Ingest.XKeywords != "" {
		base.Ingest.XKeywords = override.Ingest.XKeywords
	}

	if len(override.Scoring.Weights) > 0 {
		base.Scoring.Weights = override.Scoring.Weights
	}
	if override.Scoring.RecencyHours > 0 {
		base.Scoring.RecencyHours = override.Scoring.RecencyHours
	}
	if override.Scoring.RecencyBoost > 0 {
		base.Scoring.RecencyBoost = override.Scoring.RecencyBoost
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Voice.Endpoint != "" {
		base.Voice.Endpoint = override.Voice.Endpoint
	}
	if override.Voice.APIKey != "" {
		base.Voice.APIKey = override.Voice.APIKey
	}
	if override.Voice.VoiceID != "" {
		base.Voice.VoiceID = override.Voice.VoiceID
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.MonitorPort != "" {
		base.Scheduler.MonitorPort = override.Scheduler.MonitorPort
	}

	if override.Output.Dir != "" {
		base.Output = override.Output
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: ""},
		Ingest: IngestConfig{
			Sources:          []string{"hackernews", "reddit", "techcrunch", "fourchan", "x"},
			Timeout:          "2m",
			RedditSubreddits: "technology,programming,machinelearning,artificial,LocalLLaMA",
			FourchanKeywords: "AI,LLM,GPU,linux,rust,python,open source,self-hosted,homelab,programming",
			XKeywords:        "AI breakthrough,new programming language,open source release,tech layoffs,GPU,LLM",
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You write punchy 45-second tech news scripts for short-form video.",
		},
		Voice: VoiceConfig{
			Endpoint: "",
			APIKey:   "",
			VoiceID:  "",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", MonitorPort: "8080"},
		Output:    OutputConfig{Dir: "output"},
	}
}
