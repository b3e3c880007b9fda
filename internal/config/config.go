// Package config loads the gotlex configuration: cache backend and
// per-namespace TTLs, the sites each lookup tool scrapes, OpenAI settings
// and logging. Values come from built-in defaults, then the YAML file, then
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/gotlex"
)

const (
	configDirName  = "gotlex"
	configFileName = "config.yaml"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Translation providers.
const (
	ProviderPage   = "page"
	ProviderOpenAI = "openai"
)

// Environment variables that override the file.
const (
	EnvCacheFile = "GOTLEX_CACHE_FILE"
	EnvBackend   = "GOTLEX_BACKEND"
	EnvRedisURL  = "GOTLEX_REDIS_URL"
	EnvLogLevel  = "GOTLEX_LOG_LEVEL"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Sources   SourcesConfig   `yaml:"sources"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type CacheConfig struct {
	Backend string              `yaml:"backend" validate:"oneof=file memory redis"`
	File    string              `yaml:"file"`
	Redis   RedisConfig         `yaml:"redis"`
	TTL     map[string]Duration `yaml:"ttl" validate:"required,min=1,dive,keys,required,endkeys,gt=0"`
}

type RedisConfig struct {
	URL       string `yaml:"url" validate:"required_if=Enabled true"`
	KeyPrefix string `yaml:"key_prefix"`
	Enabled   bool   `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

type SourcesConfig struct {
	Translation TranslationConfig `yaml:"translation"`
	Dictionary  PageConfig        `yaml:"dictionary"`
	Conjugation PageConfig        `yaml:"conjugation"`
}

type TranslationConfig struct {
	Provider string                `yaml:"provider" validate:"oneof=page openai"`
	Pages    map[string]PageConfig `yaml:"pages" validate:"dive,keys,oneof=fr-en en-fr,endkeys"`
}

// PageConfig describes a scraped site; see source.HTMLConfig.
type PageConfig struct {
	Name            string   `yaml:"name" validate:"required"`
	URLTemplate     string   `yaml:"url_template" validate:"required,contains=%s"`
	SectionSelector string   `yaml:"section_selector"`
	HeadingSelector string   `yaml:"heading_selector"`
	EntrySelector   string   `yaml:"entry_selector" validate:"required"`
	SplitLines      bool     `yaml:"split_lines"`
	Timeout         Duration `yaml:"timeout" validate:"gte=0"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"gte=0"`
	Burst             int `yaml:"burst" validate:"gte=0"`
}

// Duration is a time.Duration that also accepts a number of days ("7d")
// in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return FormatDuration(time.Duration(d)), nil
}

// ParseDuration parses "30d", "12h" or "90m". A bare number is a number of
// days.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// FormatDuration renders whole days as "7d" and anything else as
// time.Duration does.
func FormatDuration(d time.Duration) string {
	day := 24 * time.Hour
	if d > 0 && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return d.String()
}

func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "gotlex:",
			},
			TTL: map[string]Duration{
				gotlex.NamespaceTranslation: Duration(7 * 24 * time.Hour),
				gotlex.NamespaceDictionary:  Duration(14 * 24 * time.Hour),
				gotlex.NamespaceConjugation: Duration(30 * 24 * time.Hour),
			},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Sources: SourcesConfig{
			Translation: TranslationConfig{
				Provider: ProviderPage,
				Pages: map[string]PageConfig{
					string(gotlex.DirectionFrenchToEnglish): {
						Name:          "wordreference",
						URLTemplate:   "https://www.wordreference.com/fren/%s",
						EntrySelector: "table.WRD tr.even td.ToWrd, table.WRD tr.odd td.ToWrd",
					},
					string(gotlex.DirectionEnglishToFrench): {
						Name:          "wordreference",
						URLTemplate:   "https://www.wordreference.com/enfr/%s",
						EntrySelector: "table.WRD tr.even td.ToWrd, table.WRD tr.odd td.ToWrd",
					},
				},
			},
			Dictionary: PageConfig{
				Name:          "larousse",
				URLTemplate:   "https://www.larousse.fr/dictionnaires/francais/%s",
				EntrySelector: "ul.Definitions li.DivisionDefinition",
			},
			Conjugation: PageConfig{
				Name:            "la-conjugaison",
				URLTemplate:     "https://la-conjugaison.nouvelobs.com/du/verbe/%s.php",
				SectionSelector: "div.tempstab",
				HeadingSelector: "h3.tempsheader",
				EntrySelector:   "div.tempscorps",
				SplitLines:      true,
			},
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			Burst:             5,
		},
	}
}

// FilePath returns $XDG_CONFIG_HOME/gotlex/config.yaml, or the platform
// equivalent.
func FilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// Load reads the configuration. An empty path means FilePath; a missing
// default file yields the defaults, a missing explicit file is an error.
// A .env file in the working directory is loaded first without overriding
// variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := FilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	b, err := os.ReadFile(path) // #nosec G304 - user-specified config file
	switch {
	case err == nil:
		if len(strings.TrimSpace(string(b))) > 0 {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
			}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheFile); v != "" {
		c.Cache.File = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.Redis.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" && c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = v
	}
}

func (c *Config) normalize() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Cache.Redis.Enabled = c.Cache.Backend == BackendRedis
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Sources.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Sources.Translation.Provider))
}

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Sources.Translation.Provider == ProviderOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("config validation failed: translation provider openai requires an API key (%s)", EnvOpenAIKey)
	}
	return nil
}

// Namespaces returns the configured cache namespaces, sorted by name.
func (c *Config) Namespaces() []gotlex.Namespace {
	names := make([]string, 0, len(c.Cache.TTL))
	for name := range c.Cache.TTL {
		names = append(names, name)
	}
	sort.Strings(names)

	namespaces := make([]gotlex.Namespace, 0, len(names))
	for _, name := range names {
		namespaces = append(namespaces, gotlex.Namespace{Name: name, TTL: time.Duration(c.Cache.TTL[name])})
	}
	return namespaces
}

// TranslationPage returns the page source configured for direction.
func (c *Config) TranslationPage(direction gotlex.Direction) (PageConfig, error) {
	page, ok := c.Sources.Translation.Pages[string(direction)]
	if !ok {
		return PageConfig{}, fmt.Errorf("no translation page configured for %s", direction)
	}
	return page, nil
}

// Save writes cfg as YAML to path, creating its directory.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
