package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
)

// ErrInvalidConfig is returned for settings that cannot drive a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultEnvFile is read when present, next to the working directory.
const DefaultEnvFile = ".env"

// ClickConfig tunes click consensus.
type ClickConfig struct {
	Sigma     float64 `yaml:"sigma"`
	Threshold float64 `yaml:"threshold"`
}

// RegionConfig tunes region consensus.
type RegionConfig struct {
	Threshold float64 `yaml:"threshold"`
	MinArea   float64 `yaml:"min_area"`
	Window    int     `yaml:"window"`
	Tolerance float64 `yaml:"tolerance"`
}

// DatabaseConfig locates the annotation database. DSN wins over the
// individual connection fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Config holds every setting of a run.
type Config struct {
	Width    int          `yaml:"width"`
	Height   int          `yaml:"height"`
	Clicks   ClickConfig  `yaml:"clicks"`
	Regions  RegionConfig `yaml:"regions"`
	Workers  int          `yaml:"workers"`
	Campaign string       `yaml:"campaign"`

	// ImageCacheDir holds downloaded source imagery.
	ImageCacheDir string `yaml:"image_cache_dir"`

	// ImageURL is the source imagery URL pattern, see imaging.Fetcher.
	ImageURL string `yaml:"image_url"`

	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Width:  raster.DefaultWidth,
		Height: raster.DefaultHeight,
		Clicks: ClickConfig{
			Sigma:     consensus.DefaultSigma,
			Threshold: consensus.DefaultClickThreshold,
		},
		Regions: RegionConfig{
			Threshold: consensus.DefaultRegionThreshold,
			MinArea:   consensus.DefaultMinArea,
			Window:    consensus.DefaultWindow,
			Tolerance: consensus.DefaultTolerance,
		},
		Workers:       4,
		Campaign:      string(model.CampaignGoogle),
		ImageCacheDir: "img",
		ImageURL:      "https://www.bdpv.fr/_BDapPV/img{Campaign}{Surf}/img{Surf}_{id}.png",
		LogLevel:      "info",
		Database: DatabaseConfig{
			Driver: "mysql",
		},
	}
}

// Load builds the configuration from, lowest precedence first: defaults,
// the YAML file at path (skipped when empty), the dotenv file envFile
// (skipped when missing) and the process environment. Command-line flags
// are applied on top by the caller, which then calls Validate.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	env := &envReader{}

	c.Width = env.getInt("CONSENSUS_WIDTH", c.Width)
	c.Height = env.getInt("CONSENSUS_HEIGHT", c.Height)
	c.Clicks.Sigma = env.getFloat("CONSENSUS_SIGMA", c.Clicks.Sigma)
	c.Clicks.Threshold = env.getFloat("CONSENSUS_CLICK_THRESHOLD", c.Clicks.Threshold)
	c.Regions.Threshold = env.getFloat("CONSENSUS_REGION_THRESHOLD", c.Regions.Threshold)
	c.Regions.MinArea = env.getFloat("CONSENSUS_MIN_AREA", c.Regions.MinArea)
	c.Regions.Window = env.getInt("CONSENSUS_WINDOW", c.Regions.Window)
	c.Regions.Tolerance = env.getFloat("CONSENSUS_TOLERANCE", c.Regions.Tolerance)
	c.Workers = env.getInt("CONSENSUS_WORKERS", c.Workers)
	c.Campaign = getEnv("CONSENSUS_CAMPAIGN", c.Campaign)
	c.ImageCacheDir = getEnv("CONSENSUS_IMAGE_CACHE", c.ImageCacheDir)
	c.ImageURL = getEnv("CONSENSUS_IMAGE_URL", c.ImageURL)
	c.LogLevel = getEnv("CONSENSUS_LOG_LEVEL", c.LogLevel)

	c.Database.Driver = getEnv("CONSENSUS_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("CONSENSUS_DB_DSN", c.Database.DSN)
	// Connection variables shared with the annotation platform's tooling.
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASS", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)

	return env.err()
}

// Validate rejects settings no engine can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("grid size %dx%d must be positive", c.Width, c.Height))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := model.ParseCampaign(c.Campaign); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.ClickOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.RegionOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ClickOptions returns the click engine settings.
func (c Config) ClickOptions() consensus.ClickOptions {
	return consensus.ClickOptions{Sigma: c.Clicks.Sigma, Threshold: c.Clicks.Threshold}
}

// RegionOptions returns the region engine settings.
func (c Config) RegionOptions() consensus.RegionOptions {
	return consensus.RegionOptions{
		Threshold: c.Regions.Threshold,
		MinArea:   c.Regions.MinArea,
		Window:    c.Regions.Window,
		Tolerance: c.Regions.Tolerance,
	}
}

// ConnString returns the DSN, or builds one for mysql or postgres from the
// connection fields when no DSN is set. The port defaults to the driver's
// standard port.
func (d DatabaseConfig) ConnString() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	if d.Driver != "mysql" && d.Driver != "postgres" {
		return "", fmt.Errorf("%w: database dsn required for driver %q", ErrInvalidConfig, d.Driver)
	}
	if d.Host == "" || d.Name == "" {
		return "", fmt.Errorf("%w: database dsn or DB_HOST and DB_NAME required", ErrInvalidConfig)
	}

	if d.Driver == "mysql" {
		port := d.Port
		if port == "" {
			port = "3306"
		}
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, port)
		mc.DBName = d.Name
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}

	port := d.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Host, port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String(), nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
