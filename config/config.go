package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Source variants.
const (
	SourceQuantsapp = "quantsapp"
	SourceNSE       = "nse"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Source   SourceConfig   `yaml:"source"`
	Telegram TelegramConfig `yaml:"telegram"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Report   ReportConfig   `yaml:"report"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	Variant   string          `yaml:"variant"`
	Quantsapp QuantsappConfig `yaml:"quantsapp"`
	NSE       NSEConfig       `yaml:"nse"`
}

// CellIndexes are zero-based td positions within a scraped table row.
type CellIndexes struct {
	Strike  int `yaml:"strike"`
	CallOI  int `yaml:"ce_oi"`
	CallLTP int `yaml:"ce_ltp"`
	PutLTP  int `yaml:"pe_ltp"`
	PutOI   int `yaml:"pe_oi"`
}

// Max returns the largest configured index.
func (c CellIndexes) Max() int {
	m := c.Strike
	for _, v := range []int{c.CallOI, c.CallLTP, c.PutLTP, c.PutOI} {
		if v > m {
			m = v
		}
	}
	return m
}

type QuantsappConfig struct {
	URL         string        `yaml:"url"`
	RowSelector string        `yaml:"row_selector"`
	PageTimeout time.Duration `yaml:"page_timeout"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	ExecPath    string        `yaml:"exec_path"`
	Headless    bool          `yaml:"headless"`
	Cells       CellIndexes   `yaml:"cells"`
	SourceLabel string        `yaml:"source_label"`
}

type NSEConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Symbol    string        `yaml:"symbol"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type TelegramConfig struct {
	Token           string        `yaml:"token"`
	ChatID          string        `yaml:"chat_id"`
	APIEndpoint     string        `yaml:"api_endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	MessageInterval time.Duration `yaml:"message_interval"`
}

type ScheduleConfig struct {
	FetchInterval time.Duration     `yaml:"fetch_interval"`
	MarketHours   MarketHoursConfig `yaml:"market_hours"`
}

type MarketHoursConfig struct {
	Enforce  bool   `yaml:"enforce"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

type ReportConfig struct {
	TopN int `yaml:"top_n"`
}

type CacheConfig struct {
	File string   `yaml:"file"`
	S3   S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	RunKey  string `yaml:"run_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// envOverrides holds process environment values that take precedence over
// the YAML file. Nil pointers mean the variable is unset.
type envOverrides struct {
	TelegramToken        *string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID       *string `envconfig:"TELEGRAM_CHAT_ID"`
	QuantsappURL         *string `envconfig:"QUANTSAPP_URL"`
	FetchIntervalSeconds *int    `envconfig:"FETCH_INTERVAL_SECONDS"`
	RunDuringMarketHours *bool   `envconfig:"RUN_DURING_MARKET_HOURS"`
	RunKey               *string `envconfig:"RUN_KEY"`
	CacheFile            *string `envconfig:"CACHE_FILE"`
	Source               *string `envconfig:"NIFTY_SOURCE"`
	ServerAddress        *string `envconfig:"SERVER_ADDRESS"`
	AWSAccessKeyID       *string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey   *string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion            *string `envconfig:"AWS_REGION"`
	S3Bucket             *string `envconfig:"S3_BUCKET"`
}

// Default returns the configuration used when a field is absent from the file.
func Default() Config {
	return Config{
		App: AppConfig{Name: "niftyflow", Version: "dev"},
		Source: SourceConfig{
			Variant: SourceQuantsapp,
			Quantsapp: QuantsappConfig{
				URL:         "https://web.quantsapp.com/option-chain",
				RowSelector: "table tbody tr",
				PageTimeout: 60 * time.Second,
				SettleDelay: 1200 * time.Millisecond,
				Headless:    true,
				Cells:       CellIndexes{Strike: 6, CallOI: 3, CallLTP: 5, PutLTP: 7, PutOI: 9},
				SourceLabel: "web.quantsapp.com",
			},
			NSE: NSEConfig{
				BaseURL:   "https://www.nseindia.com",
				Symbol:    "NIFTY",
				Timeout:   30 * time.Second,
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			},
		},
		Telegram: TelegramConfig{
			ChatID:          "@nseopn",
			Timeout:         15 * time.Second,
			MessageInterval: 500 * time.Millisecond,
		},
		Schedule: ScheduleConfig{
			FetchInterval: 900 * time.Second,
			MarketHours: MarketHoursConfig{
				Enforce:  true,
				Start:    "09:15",
				End:      "15:30",
				Timezone: "Asia/Kolkata",
			},
		},
		Report: ReportConfig{TopN: 15},
		Cache: CacheConfig{
			File: "last_oi.json",
			S3:   S3Config{Key: "last_oi.json"},
		},
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads the YAML file at path (an APP_ENV specific variant is
// preferred when present), applies environment overrides and validates.
func LoadConfig(path string) (*Config, error) {
	path = resolveConfigPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	config.Source.Variant = strings.ToLower(strings.TrimSpace(config.Source.Variant))
	config.Cache.S3.Bucket = strings.TrimSpace(config.Cache.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	setString := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}

	setString(&cfg.Telegram.Token, env.TelegramToken)
	setString(&cfg.Telegram.ChatID, env.TelegramChatID)
	setString(&cfg.Source.Quantsapp.URL, env.QuantsappURL)
	setString(&cfg.Server.RunKey, env.RunKey)
	setString(&cfg.Cache.File, env.CacheFile)
	setString(&cfg.Source.Variant, env.Source)
	setString(&cfg.Server.Address, env.ServerAddress)
	if env.FetchIntervalSeconds != nil {
		cfg.Schedule.FetchInterval = time.Duration(*env.FetchIntervalSeconds) * time.Second
	}
	if env.RunDuringMarketHours != nil {
		cfg.Schedule.MarketHours.Enforce = *env.RunDuringMarketHours
	}

	if cfg.Cache.S3.Enabled {
		setString(&cfg.Cache.S3.AccessKeyID, env.AWSAccessKeyID)
		setString(&cfg.Cache.S3.SecretAccessKey, env.AWSSecretAccessKey)
		setString(&cfg.Cache.S3.Region, env.AWSRegion)
		setString(&cfg.Cache.S3.Bucket, env.S3Bucket)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	switch cfg.Source.Variant {
	case SourceQuantsapp:
		if cfg.Source.Quantsapp.URL == "" {
			return fmt.Errorf("source.quantsapp.url is required")
		}
		c := cfg.Source.Quantsapp.Cells
		for _, v := range []int{c.Strike, c.CallOI, c.CallLTP, c.PutLTP, c.PutOI} {
			if v < 0 {
				return fmt.Errorf("source.quantsapp.cells indexes must not be negative")
			}
		}
		if cfg.Source.Quantsapp.PageTimeout <= 0 {
			return fmt.Errorf("source.quantsapp.page_timeout must be greater than 0")
		}
	case SourceNSE:
		if cfg.Source.NSE.BaseURL == "" {
			return fmt.Errorf("source.nse.base_url is required")
		}
		if cfg.Source.NSE.Timeout <= 0 {
			return fmt.Errorf("source.nse.timeout must be greater than 0")
		}
	default:
		return fmt.Errorf("source.variant '%s' is invalid", cfg.Source.Variant)
	}

	if cfg.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if cfg.Telegram.MessageInterval < 0 {
		return fmt.Errorf("telegram.message_interval must not be negative")
	}

	if cfg.Schedule.FetchInterval <= 0 {
		return fmt.Errorf("schedule.fetch_interval must be greater than 0")
	}
	if _, err := ParseClock(cfg.Schedule.MarketHours.Start); err != nil {
		return fmt.Errorf("schedule.market_hours.start: %w", err)
	}
	if _, err := ParseClock(cfg.Schedule.MarketHours.End); err != nil {
		return fmt.Errorf("schedule.market_hours.end: %w", err)
	}

	if cfg.Report.TopN <= 0 {
		return fmt.Errorf("report.top_n must be greater than 0")
	}

	if cfg.Cache.S3.Enabled {
		if cfg.Cache.S3.Bucket == "" {
			return fmt.Errorf("cache.s3.bucket is required when S3 is enabled")
		}
		if cfg.Cache.S3.Region == "" {
			return fmt.Errorf("cache.s3.region is required when S3 is enabled")
		}
		if cfg.Cache.S3.Key == "" {
			return fmt.Errorf("cache.s3.key is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Cache.S3.Bucket) {
			return fmt.Errorf("cache.s3.bucket '%s' is invalid", cfg.Cache.S3.Bucket)
		}
	} else if cfg.Cache.File == "" {
		return fmt.Errorf("cache.file is required")
	}

	return nil
}

// ParseClock parses an "HH:MM" wall clock value into minutes after midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value '%s'", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
