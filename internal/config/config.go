package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the configuration for the recommender service
type Config struct {
	Corpus  CorpusConfig
	Crawler CrawlerConfig
	Server  ServerConfig
	Log     LogConfig
}

// CorpusConfig controls how the dataset is loaded and vectorized
type CorpusConfig struct {
	DataPath       string `validate:"required"`
	MaxFeatures    int    `validate:"min=1"`
	DefaultTopK    int    `validate:"min=1,ltefield=MaxTopK"`
	MaxTopK        int    `validate:"min=1"`
	UserWords      []string
	BootstrapCrawl bool
}

// CrawlerConfig holds ingestion settings for the travelbook listing
type CrawlerConfig struct {
	ListURL           string        `validate:"required,contains=%d"`
	MaxPages          int           `validate:"min=1"`
	MinDelay          time.Duration `validate:"min=0"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	UserAgent         string        `validate:"required"`
	EnableRobotsCheck bool
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `validate:"required"`
}

type LogConfig struct {
	Level string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Corpus: CorpusConfig{
			DataPath:       GetStringEnv("CORPUS_DATA_PATH", "data/featured_travel.csv"),
			MaxFeatures:    GetIntEnv("CORPUS_MAX_FEATURES", 500),
			DefaultTopK:    GetIntEnv("CORPUS_DEFAULT_TOP_K", 5),
			MaxTopK:        GetIntEnv("CORPUS_MAX_TOP_K", 50),
			UserWords:      GetListEnv("CORPUS_USER_WORDS", nil),
			BootstrapCrawl: GetBoolEnv("CORPUS_BOOTSTRAP_CRAWL", false),
		},
		Crawler: CrawlerConfig{
			ListURL:           GetStringEnv("CRAWLER_LIST_URL", "https://travel.qunar.com/travelbook/list.htm?page=%d&order=hot_heat"),
			MaxPages:          GetIntEnv("CRAWLER_MAX_PAGES", 200),
			MinDelay:          GetDurationEnv("CRAWLER_MIN_DELAY", 1*time.Second),
			RequestTimeout:    GetDurationEnv("CRAWLER_REQUEST_TIMEOUT", 10*time.Second),
			UserAgent:         GetStringEnv("CRAWLER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"),
			EnableRobotsCheck: GetBoolEnv("CRAWLER_ENABLE_ROBOTS_CHECK", true),
		},
		Server: ServerConfig{
			Addr: GetStringEnv("SERVER_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level: strings.ToLower(GetStringEnv("LOG_LEVEL", "info")),
		},
	}
}

// Validate checks the struct tags of cfg and reports the first offending fields.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetListEnv splits a comma separated value, dropping blank items.
func GetListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
