package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds paths, extension filters and the detection tunables. The
// numeric thresholds are empirically tuned; there are no universally
// correct values, so everything is configurable.
type Config struct {
	Library  string   `mapstructure:"library"`
	Inbox    string   `mapstructure:"inbox"`
	Database string   `mapstructure:"database"`
	ImageExt []string `mapstructure:"image_extensions"`
	VideoExt []string `mapstructure:"video_extensions"`

	MinYear            int           `mapstructure:"min_year"`
	AgreementTolerance time.Duration `mapstructure:"agreement_tolerance"`
	ReliableWeight     int           `mapstructure:"reliable_weight"`
	ClusterWindow      time.Duration `mapstructure:"cluster_window"`
	ExactDistanceMax   int           `mapstructure:"exact_distance_max"`
	SimilarDistanceMax int           `mapstructure:"similar_distance_max"`
	BurstGap           time.Duration `mapstructure:"burst_gap"`
	PanoramaGap        time.Duration `mapstructure:"panorama_gap"`
}

// LoadConfig reads shoebox.toml from the user config dir, falling back to
// defaults for anything unset.
func LoadConfig() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find user config dir: %w", err)
	}

	viper.SetConfigName("shoebox")
	viper.SetConfigType("toml")
	viper.AddConfigPath(filepath.Join(configDir, "shoebox"))

	home := os.Getenv("HOME")
	viper.SetDefault("library", filepath.Join(home, "shoebox/library"))
	viper.SetDefault("inbox", filepath.Join(home, "shoebox/inbox"))
	viper.SetDefault("database", filepath.Join(configDir, "shoebox", "shoebox.db"))
	viper.SetDefault("image_extensions", []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".tiff", ".webp"})
	viper.SetDefault("video_extensions", []string{".mp4", ".mov", ".avi", ".mkv", ".m4v"})

	defaults := DefaultDetectParams()
	viper.SetDefault("min_year", defaults.MinYear)
	viper.SetDefault("agreement_tolerance", defaults.AgreementTolerance.String())
	viper.SetDefault("reliable_weight", defaults.ReliableWeight)
	viper.SetDefault("cluster_window", defaults.ClusterWindow.String())
	viper.SetDefault("exact_distance_max", defaults.ExactDistanceMax)
	viper.SetDefault("similar_distance_max", defaults.SimilarDistanceMax)
	viper.SetDefault("burst_gap", defaults.BurstGap.String())
	viper.SetDefault("panorama_gap", defaults.PanoramaGap.String())

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; that's OK, just use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// DetectParams converts the configured tunables into detection parameters.
func (c *Config) DetectParams() DetectParams {
	return DetectParams{
		MinYear:            c.MinYear,
		AgreementTolerance: c.AgreementTolerance,
		ReliableWeight:     c.ReliableWeight,
		ClusterWindow:      c.ClusterWindow,
		ExactDistanceMax:   c.ExactDistanceMax,
		SimilarDistanceMax: c.SimilarDistanceMax,
		BurstGap:           c.BurstGap,
		PanoramaGap:        c.PanoramaGap,
	}
}
