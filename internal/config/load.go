package config

import (
	"fmt"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"
	yaml "go.yaml.in/yaml/v3"
)

// Options is the flag/environment layer applied on top of the YAML file.
// The env names match the original deployment's .env surface, so an
// existing environment keeps working without a config file.
type Options struct {
	ConfigPath string `long:"config" env:"FEEDRELAY_CONFIG" default:"./config.yaml" description:"path to config yaml"`

	FeedURL       string `long:"feed-url" env:"FEED_URL" description:"upstream RSS feed URL"`
	CheckInterval string `long:"check-interval" env:"CHECK_INTERVAL" description:"poll interval (duration or seconds)"`
	BotToken      string `long:"bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token"`
	ChannelID     string `long:"channel-id" env:"TELEGRAM_CHANNEL_ID" description:"default content destination"`
	DownloadPath  string `long:"download-path" env:"DOWNLOAD_PATH" description:"artifact storage root"`
	OperatorChat  string `long:"operator-chat" env:"ERROR_REPORT_USER_ID" description:"operator alert destination"`
	LedgerPath    string `long:"ledger-path" env:"LEDGER_PATH" description:"dedup ledger path"`
	LogLevel      string `long:"log-level" env:"LOG_LEVEL" description:"log level"`
}

// ErrHelp is returned when the user asked for --help; the caller should
// exit zero without logging an error.
var ErrHelp = fmt.Errorf("help requested")

func ParseOptions(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var fe *flags.Error
		if ok := flagsErrorAs(err, &fe); ok && fe.Type == flags.ErrHelp {
			return opts, ErrHelp
		}
		return opts, fmt.Errorf("parse flags: %w", err)
	}
	return opts, nil
}

func flagsErrorAs(err error, target **flags.Error) bool {
	fe, ok := err.(*flags.Error)
	if ok {
		*target = fe
	}
	return ok
}

// Load reads the YAML file (which may be absent when the environment
// provides everything), overlays the option layer, fills defaults and
// validates.
func Load(opts Options) (*Config, error) {
	cfg := &Config{}

	raw, err := os.ReadFile(opts.ConfigPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", opts.ConfigPath, err)
		}
	case os.IsNotExist(err):
		// env-only setup
	default:
		return nil, err
	}

	opts.overlay(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o Options) overlay(cfg *Config) {
	setIf(&cfg.Feed.URL, o.FeedURL)
	setIf(&cfg.Feed.Interval, o.CheckInterval)
	setIf(&cfg.Telegram.Token, o.BotToken)
	setIf(&cfg.Telegram.Channel, o.ChannelID)
	setIf(&cfg.Telegram.OperatorChat, o.OperatorChat)
	setIf(&cfg.Download.Dir, o.DownloadPath)
	setIf(&cfg.Ledger.Path, o.LedgerPath)
	setIf(&cfg.Logging.Level, o.LogLevel)
}

func setIf(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.Interval == "" {
		cfg.Feed.Interval = "5m"
	}
	if cfg.Feed.Timeout == "" {
		cfg.Feed.Timeout = "30s"
	}
	if cfg.Download.Dir == "" {
		cfg.Download.Dir = "./downloads"
	}
	if cfg.Download.Timeout == "" {
		cfg.Download.Timeout = "60s"
	}
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = "file"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "./processed_ids.txt"
	}
	if cfg.Delivery.MaxAttempts <= 0 {
		cfg.Delivery.MaxAttempts = 3
	}
	if cfg.Delivery.Delay == "" {
		cfg.Delivery.Delay = "2s"
	}
	if cfg.Status.Addr == "" {
		cfg.Status.Addr = "127.0.0.1:8700"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Feed.URL) == "" {
		return fmt.Errorf("feed.url is required (FEED_URL)")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (TELEGRAM_BOT_TOKEN)")
	}
	if strings.TrimSpace(cfg.Telegram.Channel) == "" {
		return fmt.Errorf("telegram.channel is required (TELEGRAM_CHANNEL_ID)")
	}
	for _, field := range []struct{ path, raw string }{
		{"feed.interval", cfg.Feed.Interval},
		{"feed.timeout", cfg.Feed.Timeout},
		{"download.timeout", cfg.Download.Timeout},
		{"delivery.delay", cfg.Delivery.Delay},
	} {
		if _, err := ParseDurationField(field.path, field.raw); err != nil {
			return err
		}
	}
	for i, r := range cfg.Rules {
		if strings.TrimSpace(r.CategoryID) == "" || strings.TrimSpace(r.ChatID) == "" {
			return fmt.Errorf("rules[%d]: category_id and chat_id are required", i)
		}
	}
	return nil
}
