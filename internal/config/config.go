package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "REVIEW_SCANNER_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	httpAddrEnv         = "HTTP_ADDR"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	browserBinEnv       = "BROWSER_BIN"
	browserHeadlessEnv  = "BROWSER_HEADLESS"
	classifierKindEnv   = "CLASSIFIER_BACKEND"
	classifierURLEnv    = "CLASSIFIER_ENDPOINT"
	classifierAPIKeyEnv = "CLASSIFIER_API_KEY"
	natsURLEnv          = "NATS_URL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	tracingEndpointEnv  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
	Browser       BrowserConfig       `yaml:"browser"`
	Session       SessionConfig       `yaml:"session"`
	Harvest       HarvestConfig       `yaml:"harvest"`
	Marketplaces  []MarketplaceConfig `yaml:"marketplaces"`
	Marketplace   string              `yaml:"defaultMarketplace"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Database      DatabaseConfig      `yaml:"database"`
	Reports       ReportsConfig       `yaml:"reports"`
	NATS          NATSConfig          `yaml:"nats"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
}

// LoggingConfig selects slog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	RateLimit       float64  `yaml:"rateLimit"`
	RateBurst       int      `yaml:"rateBurst"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// BrowserConfig controls how the automated browser is launched.
type BrowserConfig struct {
	Bin         string `yaml:"bin"`
	Headless    bool   `yaml:"headless"`
	NoSandbox   bool   `yaml:"noSandbox"`
	UserDataDir string `yaml:"userDataDir"`
}

// SessionConfig sets the session release policy.
type SessionConfig struct {
	KeepWarm bool `yaml:"keepWarm"`
}

// HarvestConfig holds paging bounds and the blind settle delays.
type HarvestConfig struct {
	MaxPages            int      `yaml:"maxPages"`
	NavigateSettle      Duration `yaml:"navigateSettle"`
	ScrollSettle        Duration `yaml:"scrollSettle"`
	PagePause           Duration `yaml:"pagePause"`
	StopAfterEmptyPages int      `yaml:"stopAfterEmptyPages"`
}

// MarketplaceConfig describes a storefront and the markup contract of its pages.
type MarketplaceConfig struct {
	Name           string   `yaml:"name"`
	BaseURL        string   `yaml:"baseUrl"`
	Hosts          []string `yaml:"hosts"`
	ProductPath    string   `yaml:"productPath"`
	ReviewsPath    string   `yaml:"reviewsPath"`
	ReviewSelector string   `yaml:"reviewSelector"`
	TitleSelector  string   `yaml:"titleSelector"`
	FallbackName   string   `yaml:"fallbackName"`
}

// ClassifierConfig picks the inference backend.
type ClassifierConfig struct {
	Backend      string   `yaml:"backend"`
	ArtifactsDir string   `yaml:"artifactsDir"`
	Endpoint     string   `yaml:"endpoint"`
	APIKey       string   `yaml:"apiKey"`
	Timeout      Duration `yaml:"timeout"`
	BatchSize    int      `yaml:"batchSize"`
	Threshold    float64  `yaml:"threshold"`
}

// DatabaseConfig describes the report history store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ReportsConfig controls file artifacts produced per analysis.
type ReportsConfig struct {
	OutputDir string `yaml:"outputDir"`
	Workbook  bool   `yaml:"workbook"`
	CSV       bool   `yaml:"csv"`
}

// NATSConfig enables report events.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// TracingConfig enables OTLP span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
}

// SchedulerConfig defines when the watch list should be analysed.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	Products       []string       `yaml:"products"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Enabled reports whether a watch list is configured.
func (s SchedulerConfig) Enabled() bool {
	return s.CronExpression != "" && len(s.Products) > 0
}

// Duration accepts Go duration strings in YAML.
type Duration time.Duration

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML parses values such as "7s" or "1m30s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := ReadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Marketplaces) == 0 {
		cfg.Marketplaces = defaultConfig().Marketplaces
	}

	return cfg
}

// ReadFile decodes a YAML file without applying defaults.
func ReadFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Server.Addr, httpAddrEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Browser.Bin, browserBinEnv)
	setString(&c.Classifier.Backend, classifierKindEnv)
	setString(&c.Classifier.Endpoint, classifierURLEnv)
	setString(&c.Classifier.APIKey, classifierAPIKeyEnv)
	setString(&c.NATS.URL, natsURLEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.Tracing.Endpoint, tracingEndpointEnv)

	if v := os.Getenv(browserHeadlessEnv); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = headless
		} else {
			log.Printf("config: ignoring %s=%q: %v", browserHeadlessEnv, v, err)
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// mergeConfig overlays non-zero file values on top of base.
func mergeConfig(base, override Config) Config {
	if err := mergo.Merge(&base, override, mergo.WithOverride); err != nil {
		log.Printf("config: merge failed: %v (keeping defaults)", err)
	}
	return base
}

// AmazonIndia is the storefront used when no marketplace is configured.
func AmazonIndia() MarketplaceConfig {
	return MarketplaceConfig{
		Name:           "amazon.in",
		BaseURL:        "https://www.amazon.in",
		Hosts:          []string{"amazon.in", "www.amazon.in"},
		ProductPath:    "/dp/%s",
		ReviewsPath:    "/product-reviews/%s?pageNumber=%d",
		ReviewSelector: "span[data-hook='review-body']",
		TitleSelector:  "#productTitle",
		FallbackName:   "Amazon_Product",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       1,
			RateBurst:       2,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Browser: BrowserConfig{},
		Harvest: HarvestConfig{
			MaxPages:       15,
			NavigateSettle: Duration(7 * time.Second),
			ScrollSettle:   Duration(3 * time.Second),
			PagePause:      Duration(2 * time.Second),
		},
		Marketplaces: []MarketplaceConfig{AmazonIndia()},
		Marketplace:  "amazon.in",
		Classifier: ClassifierConfig{
			Backend:      "local",
			ArtifactsDir: "model",
			Timeout:      Duration(15 * time.Second),
			BatchSize:    64,
			Threshold:    0.5,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:reviewscanner.db?_pragma=busy_timeout(5000)"},
		Reports:  ReportsConfig{OutputDir: "reports"},
		NATS:     NATSConfig{Subject: "reviewscanner.analysis.completed"},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Tracing:   TracingConfig{ServiceName: "reviewscanner"},
		Scheduler: SchedulerConfig{CronExpression: "", Timezone: defaultTimezone, location: tz},
	}
}
