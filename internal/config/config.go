// Package config loads application configuration from environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key when read from the
// environment.
const EnvPrefix = "GITNOTIFY"

// Config holds the application configuration.
type Config struct {
	GitHubToken string
	Owner       string
	Repo        string
	ProjectDir  string
	RCFile      string
	APIURL      string

	BaseDelay             time.Duration
	ReferencePollInterval time.Duration
	CleanupInterval       time.Duration
	MaxRetries            int

	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
	UseKeyring bool

	// ConfigFile is the YAML file that was read, or empty.
	ConfigFile string
}

// HasRepositoryOverride returns true when both owner and repo are configured
// explicitly, which skips discovery from the origin remote.
func (c *Config) HasRepositoryOverride() bool {
	return c.Owner != "" && c.Repo != ""
}

// Load reads configuration from GITNOTIFY_* environment variables, falling
// back to the YAML file named by GITNOTIFY_CONFIG and then to defaults.
// Optional variables with defaults: GITNOTIFY_PROJECT_DIR (.),
// GITNOTIFY_RC_FILE (~/.gitnotifyrc), GITNOTIFY_API_URL (https://api.github.com/),
// GITNOTIFY_BASE_DELAY (3s), GITNOTIFY_REFERENCE_POLL_INTERVAL (60s),
// GITNOTIFY_CLEANUP_INTERVAL (1h), GITNOTIFY_MAX_RETRIES (5),
// GITNOTIFY_LISTEN_ADDR (127.0.0.1:8095), GITNOTIFY_DB_PATH (gitnotify.db),
// GITNOTIFY_LOG_LEVEL (info), GITNOTIFY_KEYRING (true).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	v.SetDefault("project_dir", ".")
	v.SetDefault("rc_file", defaultRCFile())
	v.SetDefault("api_url", "https://api.github.com/")
	v.SetDefault("base_delay", "3s")
	v.SetDefault("reference_poll_interval", "60s")
	v.SetDefault("cleanup_interval", "1h")
	v.SetDefault("max_retries", "5")
	v.SetDefault("listen_addr", "127.0.0.1:8095")
	v.SetDefault("db_path", "gitnotify.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("keyring", "true")

	configFile, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GitHubToken: strings.TrimSpace(v.GetString("github_token")),
		Owner:       strings.TrimSpace(v.GetString("owner")),
		Repo:        strings.TrimSpace(v.GetString("repo")),
		ProjectDir:  v.GetString("project_dir"),
		RCFile:      v.GetString("rc_file"),
		APIURL:      v.GetString("api_url"),
		ListenAddr:  v.GetString("listen_addr"),
		DBPath:      v.GetString("db_path"),
		ConfigFile:  configFile,
	}

	if cfg.BaseDelay, err = positiveDuration(v, "base_delay"); err != nil {
		return nil, err
	}
	if cfg.ReferencePollInterval, err = positiveDuration(v, "reference_poll_interval"); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = positiveDuration(v, "cleanup_interval"); err != nil {
		return nil, err
	}

	raw := v.GetString("max_retries")
	retries, err := strconv.Atoi(raw)
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("%s has invalid retry count %q", envName("max_retries"), raw)
	}
	cfg.MaxRetries = retries

	raw = v.GetString("log_level")
	if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("%s has invalid level %q: %w", envName("log_level"), raw, err)
	}

	raw = v.GetString("keyring")
	if cfg.UseKeyring, err = strconv.ParseBool(raw); err != nil {
		return nil, fmt.Errorf("%s has invalid boolean %q: %w", envName("keyring"), raw, err)
	}

	if (cfg.Owner == "") != (cfg.Repo == "") {
		return nil, fmt.Errorf("%s and %s must be set together", envName("owner"), envName("repo"))
	}

	return cfg, nil
}

// readConfigFile merges the YAML file named by GITNOTIFY_CONFIG. A missing
// file is not an error.
func readConfigFile(v *viper.Viper) (string, error) {
	path := v.GetString("config")
	if path == "" {
		return "", nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return "", nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config %s: %w", path, err)
	}
	return path, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", envName(key), raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", envName(key), raw)
	}
	return d, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func defaultRCFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gitnotifyrc"
	}
	return filepath.Join(home, ".gitnotifyrc")
}
