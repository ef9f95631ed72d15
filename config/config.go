package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ZipCode         string
	DealersPath     string
	ModelKeywords   []string
	NewOnly         bool
	TopN            int
	MaxWorkers      int
	RequestTimeout  time.Duration
	RequestInterval time.Duration
	MinDelay        time.Duration
	MaxDelay        time.Duration
	MaxRetries      int
	UseBrowser      bool
	Headless        bool
	BrowserSettle   time.Duration
	CSVPath         string
	Verbose         bool
	DBEnabled       bool
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
}

func DefaultConfig() *Config {
	return &Config{
		ZipCode:         "23112",
		DealersPath:     "dealers.csv",
		ModelKeywords:   []string{"escalade", "esv"},
		NewOnly:         true,
		TopN:            5,
		MaxWorkers:      1,
		RequestTimeout:  25 * time.Second,
		RequestInterval: 1 * time.Second,
		MinDelay:        0,
		MaxDelay:        0,
		MaxRetries:      1,
		UseBrowser:      false,
		Headless:        true,
		BrowserSettle:   3 * time.Second,
		CSVPath:         "results.csv",
		DBEnabled:       false,
		DBHost:          "localhost",
		DBPort:          5432,
		DBUser:          "postgres",
		DBPassword:      "postgres",
		DBName:          "escalade_finder",
		DBSSLMode:       "disable",
	}
}

// Load returns the defaults overlaid with anything set in the environment.
// A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("SCANNER_ZIP_CODE", &c.ZipCode)
	str("SCANNER_DEALERS", &c.DealersPath)
	str("SCANNER_OUTPUT_CSV", &c.CSVPath)
	if v, ok := os.LookupEnv("SCANNER_KEYWORDS"); ok {
		if kws := SplitKeywords(v); len(kws) > 0 {
			c.ModelKeywords = kws
		}
	}
	boolean("SCANNER_NEW_ONLY", &c.NewOnly)
	integer("SCANNER_TOP", &c.TopN)
	integer("SCANNER_WORKERS", &c.MaxWorkers)
	duration("SCANNER_TIMEOUT", &c.RequestTimeout)
	duration("SCANNER_INTERVAL", &c.RequestInterval)
	duration("SCANNER_MIN_DELAY", &c.MinDelay)
	duration("SCANNER_MAX_DELAY", &c.MaxDelay)
	integer("SCANNER_RETRIES", &c.MaxRetries)
	boolean("SCANNER_BROWSER", &c.UseBrowser)
	boolean("SCANNER_HEADLESS", &c.Headless)
	duration("SCANNER_BROWSER_SETTLE", &c.BrowserSettle)
	boolean("SCANNER_VERBOSE", &c.Verbose)

	boolean("SCANNER_DB_ENABLED", &c.DBEnabled)
	str("DB_HOST", &c.DBHost)
	integer("DB_PORT", &c.DBPort)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("DB_SSLMODE", &c.DBSSLMode)

	return errors.Join(errs...)
}

// Validate reports every setting that would make a scan meaningless.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DealersPath) == "" {
		errs = append(errs, errors.New("dealers path is empty"))
	}
	if len(c.ModelKeywords) == 0 {
		errs = append(errs, errors.New("at least one model keyword is required"))
	}
	if c.TopN < 1 {
		errs = append(errs, fmt.Errorf("top must be >= 1, got %d", c.TopN))
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.MaxWorkers))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("retries must be >= 1, got %d", c.MaxRetries))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.RequestInterval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %v", c.RequestInterval))
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		errs = append(errs, fmt.Errorf("delay range %v-%v is invalid", c.MinDelay, c.MaxDelay))
	}
	if c.DBEnabled && (c.DBHost == "" || c.DBName == "" || c.DBUser == "") {
		errs = append(errs, errors.New("DB_HOST, DB_NAME and DB_USER are required when the database is enabled"))
	}
	return errors.Join(errs...)
}

// SplitKeywords parses a comma separated keyword list, lower-cased and trimmed.
func SplitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
