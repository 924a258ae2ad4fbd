package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

//go:embed programs.yaml
var defaultPrograms []byte

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Config holds all service settings, populated from environment variables
// and the program table.
type Config struct {
	DBPath          string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Programs     []*domain.Program
	PollInterval time.Duration
	FeedTimeout  time.Duration
	SummaryAt    string
	Timezone     string

	// Command defaults. RegionMarkers maps a region token to the location
	// prefix mined from activation comments, e.g. JA -> JP.
	DefaultRegion string
	RegionMarkers map[string]string

	// Pub/sub publishing is enabled when brokers are set.
	KafkaBrokers []string

	TelegramToken  string
	TelegramChatID int64

	RefCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "70s")
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	programs, err := loadPrograms(os.Getenv("PROGRAMS_FILE"))
	if err != nil {
		return nil, err
	}

	markers, err := parseRegionMarkers(sharedcfg.EnvOrDefault("REGION_MARKERS", "JA:JP"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:          sharedcfg.EnvOrDefault("DB_PATH", "spots.db"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Programs:     programs,
		PollInterval: pollInterval,
		FeedTimeout:  feedTimeout,
		SummaryAt:    sharedcfg.EnvOrDefault("SUMMARY_AT", "21:00"),
		Timezone:     sharedcfg.EnvOrDefault("TIMEZONE", "Asia/Tokyo"),

		DefaultRegion: strings.ToUpper(sharedcfg.EnvOrDefault("DEFAULT_REGION", "JA")),
		RegionMarkers: markers,

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		RefCacheSize:  parseRefCacheSize(),
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("invalid TELEGRAM_CHAT_ID")
		}
		cfg.TelegramChatID = id
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if !hhmmRe.MatchString(cfg.SummaryAt) {
		return nil, fmt.Errorf("invalid SUMMARY_AT %q (expected HH:MM)", cfg.SummaryAt)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return nil, errors.New("TELEGRAM_TOKEN is set but TELEGRAM_CHAT_ID is not")
	}

	return cfg, nil
}

// Program returns the named program, or nil.
func (c *Config) Program(name string) *domain.Program {
	name = strings.ToLower(name)
	for _, p := range c.Programs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

type programTable struct {
	Programs []*domain.Program `yaml:"programs"`
}

// loadPrograms parses the program table from path, or the embedded default
// when path is empty.
func loadPrograms(path string) ([]*domain.Program, error) {
	data := defaultPrograms
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read programs file: %w", err)
		}
	}
	return ParsePrograms(data)
}

// ParsePrograms decodes and validates a YAML program table.
func ParsePrograms(data []byte) ([]*domain.Program, error) {
	var table programTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse programs yaml: %w", err)
	}
	if len(table.Programs) == 0 {
		return nil, errors.New("no programs configured")
	}

	seen := make(map[string]bool, len(table.Programs))
	for _, p := range table.Programs {
		if err := p.Compile(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate program %q", p.Name)
		}
		seen[p.Name] = true
	}
	return table.Programs, nil
}

// parseRegionMarkers reads "JA:JP,VK:AU" into {JA: JP, VK: AU}. A marker
// without a location prefix maps to "".
func parseRegionMarkers(s string) (map[string]string, error) {
	markers := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		region, loc, _ := strings.Cut(item, ":")
		region = strings.ToUpper(strings.TrimSpace(region))
		if region == "" {
			return nil, fmt.Errorf("invalid REGION_MARKERS entry %q", item)
		}
		markers[region] = strings.ToUpper(strings.TrimSpace(loc))
	}
	return markers, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRefCacheSize() int {
	if s := os.Getenv("REF_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
