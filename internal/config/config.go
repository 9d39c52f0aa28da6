package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Listing strategies. Exactly one is active per deployment.
const (
	StrategyFTP       = "ftp"
	StrategyHTTPIndex = "http"
)

type FTP struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Config struct {
	Port            string `yaml:"port"`
	PublicURL       string `yaml:"public_url"`
	ListingStrategy string `yaml:"listing_strategy"`
	FTP             FTP    `yaml:"ftp"`
	ImageBaseURL    string `yaml:"image_base_url"`
	HTTPIndexURL    string `yaml:"http_index_url"`
	FontsDir        string `yaml:"fonts_dir"`
	ShareDir        string `yaml:"share_dir"`
	DraftDB         string `yaml:"draft_db"`
	Watermark       string `yaml:"watermark"`
	LogLevel        string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Port:            "8080",
		ListingStrategy: StrategyHTTPIndex,
		Watermark:       "BRAVETUX",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order. Secrets (FTP credentials) are
// expected from the environment; their absence is not an error here. The
// listing handler fails closed when they are actually needed.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.ListingStrategy != StrategyFTP && cfg.ListingStrategy != StrategyHTTPIndex {
		return Config{}, fmt.Errorf("unknown listing strategy %q", cfg.ListingStrategy)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envString(&cfg.Port, "PORT")
	envString(&cfg.PublicURL, "PUBLIC_URL")
	envString(&cfg.ListingStrategy, "LISTING_STRATEGY")
	envString(&cfg.FTP.Host, "FTP_HOST")
	envString(&cfg.FTP.User, "FTP_USER")
	envString(&cfg.FTP.Password, "FTP_PASSWORD")
	envString(&cfg.ImageBaseURL, "IMAGE_BASE_URL")
	envString(&cfg.HTTPIndexURL, "HTTP_INDEX_URL")
	envString(&cfg.FontsDir, "FONTS_DIR")
	envString(&cfg.ShareDir, "SHARE_DIR")
	envString(&cfg.DraftDB, "DRAFT_DB")
	envString(&cfg.Watermark, "WATERMARK_TEXT")
	envString(&cfg.LogLevel, "LOG_LEVEL")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
