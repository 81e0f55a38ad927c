// Load envs from .env
// Load YAML config
// Validate config
// Provide default values

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Selectors are the CSS selectors used to drive the GeM search page.
// They live in config because the portal markup changes more often
// than the scraping logic does.
type Selectors struct {
	SearchInput  string `yaml:"search_input"`
	SearchButton string `yaml:"search_button"`
	Card         string `yaml:"card"`
	NextButton   string `yaml:"next_button"`
}

// Thresholds holds the minimum relevance scores a bid must reach.
// PerKeyword overrides win over the defaults; which default applies
// depends on whether the keyword has one or several core tokens.
type Thresholds struct {
	DefaultSingle float64            `yaml:"default_single"`
	DefaultMulti  float64            `yaml:"default_multi"`
	PerKeyword    map[string]float64 `yaml:"per_keyword"`
}

type EmailConfig struct {
	SMTPServer string   `yaml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port"`
	Sender     string   `yaml:"sender" env:"SMTP_SENDER"`
	Password   string   `yaml:"password" env:"SMTP_PASSWORD"`
	Receivers  []string `yaml:"receivers"`
}

type TelegramConfig struct {
	Token  string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type NotifyConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type Config struct {
	BaseURL   string `yaml:"base_url"`
	SearchURL string `yaml:"search_url"`
	//Paths
	KeywordsFile   string `yaml:"keywords_file"`
	LedgerFile     string `yaml:"ledger_file"`
	ReportsDir     string `yaml:"reports_dir"`
	ScreenshotsDir string `yaml:"screenshots_dir"`
	//Crawl behaviour
	Headless            bool `yaml:"headless"`
	MaxWorkers          int  `yaml:"max_workers"`
	RetryAttempts       int  `yaml:"retry_attempts"`
	RetryBackoffSeconds int  `yaml:"retry_backoff_seconds"`
	PageTimeoutMS       int  `yaml:"page_timeout_ms"`
	CardTimeoutMS       int  `yaml:"card_timeout_ms"`
	//Relevance tuning
	FuzzyWeight       float64             `yaml:"fuzzy_weight"`
	Synonyms          map[string][]string `yaml:"synonyms"`
	DepartmentWeights map[string]float64  `yaml:"department_weights"`
	Thresholds        Thresholds          `yaml:"thresholds"`

	Selectors Selectors    `yaml:"selectors"`
	Notify    NotifyConfig `yaml:"notify"`
	WatchSpec string       `yaml:"watch_spec"`
	LogLevel  string       `yaml:"log_level"`
}

// Load reads the YAML config at path, applies .env and environment
// overrides for the secret-ish fields, fills defaults and validates
// everything the run cannot proceed without.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Headless: true}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	//Override with env vars
	if sender := os.Getenv("SMTP_SENDER"); sender != "" {
		cfg.Notify.Email.Sender = sender
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.Notify.Email.Password = password
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Notify.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.Telegram.ChatID = id
	}

	cfg.applyDefaults()

	//Synonym lookups are case-insensitive, normalize the keys once here.
	if len(cfg.Synonyms) > 0 {
		lowered := make(map[string][]string, len(cfg.Synonyms))
		for k, v := range cfg.Synonyms {
			lowered[strings.ToLower(k)] = v
		}
		cfg.Synonyms = lowered
	}
	if len(cfg.Thresholds.PerKeyword) > 0 {
		lowered := make(map[string]float64, len(cfg.Thresholds.PerKeyword))
		for k, v := range cfg.Thresholds.PerKeyword {
			lowered[strings.ToLower(k)] = v
		}
		cfg.Thresholds.PerKeyword = lowered
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LedgerFile == "" {
		c.LedgerFile = "sent_bids.csv"
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = "screenshots"
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoffSeconds <= 0 {
		c.RetryBackoffSeconds = 2
	}
	if c.PageTimeoutMS <= 0 {
		c.PageTimeoutMS = 30000
	}
	if c.CardTimeoutMS <= 0 {
		c.CardTimeoutMS = 15000
	}
	if c.FuzzyWeight <= 0 {
		c.FuzzyWeight = 1.0
	}
	if c.Notify.Email.SMTPPort <= 0 {
		c.Notify.Email.SMTPPort = 587
	}
	if c.WatchSpec == "" {
		c.WatchSpec = "0 8 * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.SearchURL == "" {
		missing = append(missing, "search_url")
	}
	if c.KeywordsFile == "" {
		missing = append(missing, "keywords_file")
	}
	if c.Selectors.SearchInput == "" {
		missing = append(missing, "selectors.search_input")
	}
	if c.Selectors.SearchButton == "" {
		missing = append(missing, "selectors.search_button")
	}
	if c.Selectors.Card == "" {
		missing = append(missing, "selectors.card")
	}
	if c.Selectors.NextButton == "" {
		missing = append(missing, "selectors.next_button")
	}
	if c.Thresholds.DefaultSingle <= 0 {
		missing = append(missing, "thresholds.default_single")
	}
	if c.Thresholds.DefaultMulti <= 0 {
		missing = append(missing, "thresholds.default_multi")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config is missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
