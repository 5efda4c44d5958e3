// Package config loads feedrelay's configuration from a YAML file with
// environment-variable and CLI-flag overrides, and watches the file for
// runtime changes.
//
// All durations are Go duration strings (e.g. "30s", "5m"). A bare number
// is accepted as seconds for compatibility with the CHECK_INTERVAL-style
// environment variables.
package config

type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Telegram TelegramConfig `yaml:"telegram"`
	Download DownloadConfig `yaml:"download"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Status   StatusConfig   `yaml:"status"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Rules is the category routing table. It is snapshotted once at
	// startup; disabled rules stay in the table so they can be toggled
	// without rewriting the set.
	Rules []Rule `yaml:"rules"`
}

type FeedConfig struct {
	URL      string `yaml:"url"`
	Interval string `yaml:"interval"` // default 5m
	Timeout  string `yaml:"timeout"`  // default 30s
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// Channel is the default content destination (numeric chat id or
	// @channel name).
	Channel string `yaml:"channel"`
	// OperatorChat receives startup/shutdown notices and error/stall
	// alerts. Distinct from content destinations.
	OperatorChat string `yaml:"operator_chat"`
}

type DownloadConfig struct {
	Dir     string `yaml:"dir"`     // default ./downloads
	Timeout string `yaml:"timeout"` // default 60s
}

type LedgerConfig struct {
	Driver string `yaml:"driver"` // "file" (default) or "sqlite"
	Path   string `yaml:"path"`   // default ./processed_ids.txt
}

type DeliveryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // default 3
	Delay       string `yaml:"delay"`        // default 2s
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // default 127.0.0.1:8700
}

type LoggingConfig struct {
	Level string            `yaml:"level"`
	File  LoggingFileConfig `yaml:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Rule routes entries of one category to one extra destination.
type Rule struct {
	CategoryID string `yaml:"category_id"`
	ChatID     string `yaml:"chat_id"`
	Enabled    bool   `yaml:"enabled"`
}
