package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration shared by the CLI and the lambda.
type Config struct {
	Debug   bool   `mapstructure:"debug"`
	Season  string `mapstructure:"season"`
	OutDir  string `mapstructure:"out_dir"`
	Fetcher string `mapstructure:"fetcher"` // http | browser

	HTTP      HTTPConfig      `mapstructure:"http"`
	FBref     FBrefConfig     `mapstructure:"fbref"`
	Transfers TransfersConfig `mapstructure:"transfers"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

type HTTPConfig struct {
	MaxAttempts   int    `mapstructure:"max_attempts"`
	RetryBaseMS   int    `mapstructure:"retry_base_ms"`
	RetryMaxMS    int    `mapstructure:"retry_max_ms"`
	CooldownMS    int    `mapstructure:"cooldown_ms"`
	TimeoutMS     int    `mapstructure:"timeout_ms"`
	UserAgent     string `mapstructure:"user_agent"`
	BrowserWaitMS int    `mapstructure:"browser_wait_ms"`
}

func (h HTTPConfig) RetryBase() time.Duration { return time.Duration(h.RetryBaseMS) * time.Millisecond }
func (h HTTPConfig) RetryMax() time.Duration  { return time.Duration(h.RetryMaxMS) * time.Millisecond }
func (h HTTPConfig) Cooldown() time.Duration  { return time.Duration(h.CooldownMS) * time.Millisecond }
func (h HTTPConfig) Timeout() time.Duration   { return time.Duration(h.TimeoutMS) * time.Millisecond }
func (h HTTPConfig) BrowserWait() time.Duration {
	return time.Duration(h.BrowserWaitMS) * time.Millisecond
}

type FBrefConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	CompID       string `mapstructure:"comp_id"`
	CompSlug     string `mapstructure:"comp_slug"`
	Workers      int    `mapstructure:"workers"`
	TableRetries int    `mapstructure:"table_retries"`
	RetryDelayMS int    `mapstructure:"retry_delay_ms"`
	MinMinutes   int    `mapstructure:"min_minutes"`
	CacheFile    string `mapstructure:"cache_file"`
	ResultsFile  string `mapstructure:"results_file"`
}

func (f FBrefConfig) RetryDelay() time.Duration {
	return time.Duration(f.RetryDelayMS) * time.Millisecond
}

type TransfersConfig struct {
	URL          string  `mapstructure:"url"`
	MinMinutes   int     `mapstructure:"min_minutes"`
	CacheFile    string  `mapstructure:"cache_file"`
	FuzzyMatch   bool    `mapstructure:"fuzzy_match"`
	FuzzyMinimum float64 `mapstructure:"fuzzy_minimum"`
}

type ClusterConfig struct {
	MinK int    `mapstructure:"min_k"`
	MaxK int    `mapstructure:"max_k"`
	Seed uint64 `mapstructure:"seed"`
}

type AWSConfig struct {
	TableName       string `mapstructure:"table_name"`
	CuratedBucket   string `mapstructure:"curated_bucket"`
	CuratedPrefix   string `mapstructure:"curated_prefix"`
	AthenaDB        string `mapstructure:"athena_db"`
	AthenaWorkgroup string `mapstructure:"athena_workgroup"`
	AthenaOutput    string `mapstructure:"athena_output"`
	AthenaPollMS    int    `mapstructure:"athena_poll_ms"`
}

var defaults = map[string]any{
	"debug":                   false,
	"season":                  "2024-2025",
	"out_dir":                 ".",
	"fetcher":                 "http",
	"http.max_attempts":       6,
	"http.retry_base_ms":      400,
	"http.retry_max_ms":       6000,
	"http.cooldown_ms":        7000,
	"http.timeout_ms":         30000,
	"http.user_agent":         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36 (+stats-research)",
	"http.browser_wait_ms":    10000,
	"fbref.base_url":          "https://fbref.com",
	"fbref.comp_id":           "9",
	"fbref.comp_slug":         "Premier-League",
	"fbref.workers":           8,
	"fbref.table_retries":     2,
	"fbref.retry_delay_ms":    2000,
	"fbref.min_minutes":       90,
	"fbref.cache_file":        "fbref_cache.json",
	"fbref.results_file":      "results.csv",
	"transfers.url":           "https://www.transfermarkt.com/premier-league/marktwerte/wettbewerb/GB1",
	"transfers.min_minutes":   900,
	"transfers.cache_file":    "transfer_cache.json",
	"transfers.fuzzy_match":   true,
	"transfers.fuzzy_minimum": 0.92,
	"cluster.min_k":           2,
	"cluster.max_k":           20,
	"cluster.seed":            42,
	"aws.table_name":          "",
	"aws.curated_bucket":      "",
	"aws.curated_prefix":      "epl_curated",
	"aws.athena_db":           "epl_curated",
	"aws.athena_workgroup":    "primary",
	"aws.athena_output":       "",
	"aws.athena_poll_ms":      1000,
}

// envBindings keeps the env names the lambdas were deployed with.
var envBindings = map[string][]string{
	"debug":                 {"DEBUG"},
	"season":                {"SEASON"},
	"out_dir":               {"OUT_DIR"},
	"fetcher":               {"FETCHER"},
	"http.max_attempts":     {"HTTP_MAX_ATTEMPTS"},
	"http.retry_base_ms":    {"HTTP_RETRY_BASE_MS"},
	"http.retry_max_ms":     {"HTTP_RETRY_MAX_MS"},
	"http.cooldown_ms":      {"HTTP_COOLDOWN_MS"},
	"http.timeout_ms":       {"HTTP_TIMEOUT_MS"},
	"http.browser_wait_ms":  {"BROWSER_WAIT_MS"},
	"fbref.comp_id":         {"FBREF_COMP_ID"},
	"fbref.comp_slug":       {"FBREF_COMP_SLUG"},
	"fbref.workers":         {"FBREF_WORKERS"},
	"fbref.min_minutes":     {"FBREF_MIN_MINUTES"},
	"transfers.url":         {"TRANSFERS_URL"},
	"transfers.fuzzy_match": {"TRANSFERS_FUZZY_MATCH"},
	"cluster.seed":          {"CLUSTER_SEED"},
	"aws.table_name":        {"TABLE_NAME"},
	"aws.curated_bucket":    {"CURATED_BUCKET"},
	"aws.curated_prefix":    {"CURATED_PREFIX"},
	"aws.athena_db":         {"ATHENA_DB"},
	"aws.athena_workgroup":  {"ATHENA_WORKGROUP"},
	"aws.athena_output":     {"ATHENA_OUTPUT"},
}

// Load reads defaults, then the optional config file, then the environment.
// A missing file is not an error.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)
		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}
	return nil
}
