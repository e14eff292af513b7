package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the ClickUp v2 REST root
const DefaultAPIURL = "https://api.clickup.com/api/v2"

// Config holds all configuration options for cufetch
type Config struct {
	// ClickUp credentials and endpoint
	ClickUp ClickUpConfig `yaml:"clickup" toml:"clickup" json:"clickup"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// Output tree and ledger files
	Output OutputConfig `yaml:"output" toml:"output" json:"output"`

	// Attachment download settings
	Download DownloadConfig `yaml:"download" toml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// ClickUpConfig holds the API token and workspace to walk
type ClickUpConfig struct {
	Token          string        `yaml:"token" toml:"token" json:"token"`
	TeamID         string        `yaml:"team_id" toml:"team_id" json:"team_id"`
	APIURL         string        `yaml:"api_url" toml:"api_url" json:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// Delay is slept after every page fetch, download attempt and task
	Delay time.Duration `yaml:"delay" toml:"delay" json:"delay"`
	// RequestsPerMinute is a hard ceiling enforced by the API client
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory       string `yaml:"base_directory" toml:"base_directory" json:"base_directory"`
	MetadataFile        string `yaml:"metadata_file" toml:"metadata_file" json:"metadata_file"`
	ProcessedTasksFile  string `yaml:"processed_tasks_file" toml:"processed_tasks_file" json:"processed_tasks_file"`
	FailedDownloadsFile string `yaml:"failed_downloads_file" toml:"failed_downloads_file" json:"failed_downloads_file"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	ChunkSize int           `yaml:"chunk_size" toml:"chunk_size" json:"chunk_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ClickUp: ClickUpConfig{
			APIURL:         DefaultAPIURL,
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Delay:             600 * time.Millisecond,
			RequestsPerMinute: 85,
		},
		Output: OutputConfig{
			BaseDirectory:       "images_download",
			MetadataFile:        ".download_metadata.json",
			ProcessedTasksFile:  ".processed_tasks.json",
			FailedDownloadsFile: ".failed_downloads.json",
		},
		Download: DownloadConfig{
			Timeout:   30 * time.Second,
			ChunkSize: 8192,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Unprefixed names match the ones existing ClickUp scripts export
	if token := os.Getenv("CLICKUP_TOKEN"); token != "" {
		c.ClickUp.Token = token
	}
	if teamID := os.Getenv("TEAM_ID"); teamID != "" {
		c.ClickUp.TeamID = teamID
	}
	if teamID := os.Getenv("CUFETCH_TEAM_ID"); teamID != "" {
		c.ClickUp.TeamID = teamID
	}
	if apiURL := os.Getenv("CUFETCH_API_URL"); apiURL != "" {
		c.ClickUp.APIURL = apiURL
	}

	if delay := os.Getenv("CUFETCH_RATE_DELAY"); delay != "" {
		d, err := parseDelay(delay)
		if err != nil {
			errs = append(errs, fmt.Errorf("CUFETCH_RATE_DELAY: %w", err))
		} else {
			c.RateLimit.Delay = d
		}
	}
	if rpm := os.Getenv("CUFETCH_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("CUFETCH_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if outputDir := os.Getenv("CUFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if logLevel := os.Getenv("CUFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("CUFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// parseDelay accepts a Go duration ("600ms") or plain seconds ("0.6")
func parseDelay(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")

	// Check in order of precedence
	locations := []string{
		".cufetch.yaml",
		".cufetch.yml",
		".cufetch.toml",
		filepath.Join(home, ".config", "cufetch", "config.yaml"),
		filepath.Join(home, ".config", "cufetch", "config.yml"),
		filepath.Join(home, ".config", "cufetch", "config.toml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are checked
// separately by ValidateCredentials because they may come from a keyring.
func (c *Config) Validate() error {
	var errs []error

	if c.ClickUp.APIURL == "" {
		errs = append(errs, errors.New("API URL is required"))
	}
	if c.ClickUp.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.Delay < 0 {
		errs = append(errs, errors.New("rate delay cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	for name, file := range map[string]string{
		"metadata":         c.Output.MetadataFile,
		"processed tasks":  c.Output.ProcessedTasksFile,
		"failed downloads": c.Output.FailedDownloadsFile,
	} {
		if file == "" {
			errs = append(errs, fmt.Errorf("%s file name is required", name))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ValidateCredentials checks the token and, when needTeam is set, the
// workspace id
func (c *Config) ValidateCredentials(needTeam bool) error {
	var errs []error
	if c.ClickUp.Token == "" {
		errs = append(errs, errors.New("ClickUp API token is required (CLICKUP_TOKEN or 'cufetch auth login')"))
	}
	if needTeam && c.ClickUp.TeamID == "" {
		errs = append(errs, errors.New("workspace id is required (TEAM_ID or --team)"))
	}
	return errors.Join(errs...)
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.ClickUp.Token = token
	}
	if teamID, ok := flags["team"].(string); ok && teamID != "" {
		c.ClickUp.TeamID = teamID
	}
	if apiURL, ok := flags["api-url"].(string); ok && apiURL != "" {
		c.ClickUp.APIURL = apiURL
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if delay, ok := flags["rate-delay"].(time.Duration); ok && delay >= 0 {
		c.RateLimit.Delay = delay
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".cufetch.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// MetadataPath returns the download metadata ledger path
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.MetadataFile)
}

// ProcessedTasksPath returns the processed-task ledger path
func (c *Config) ProcessedTasksPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.ProcessedTasksFile)
}

// FailedDownloadsPath returns the failed-download log path
func (c *Config) FailedDownloadsPath() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.FailedDownloadsFile)
}
