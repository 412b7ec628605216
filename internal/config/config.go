package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	LedgerPath  string `toml:"ledger_path"`
	LogDir      string `toml:"log_dir"`
}

// Downloader contains settings for the external video fetcher and the
// pacing applied around it.
type Downloader struct {
	Binary                string `toml:"binary"`
	UserAgent             string `toml:"user_agent"`
	MaxAttempts           int    `toml:"max_attempts"`
	BackoffStepSeconds    int    `toml:"backoff_step_seconds"`
	MinDelaySeconds       int    `toml:"min_delay_seconds"`
	MaxDelaySeconds       int    `toml:"max_delay_seconds"`
	MaxPlaylistVideos     int    `toml:"max_playlist_videos"`
	AttemptTimeoutSeconds int    `toml:"attempt_timeout_seconds"`
}

// Inbox contains IMAP mailbox settings.
type Inbox struct {
	Server           string   `toml:"server"`
	Mailbox          string   `toml:"mailbox"`
	Address          string   `toml:"address"`
	AppPassword      string   `toml:"app_password"`
	AllowedSenders   []string `toml:"allowed_senders"`
	FactCheckKeyword string   `toml:"factcheck_keyword"`
}

// Transcription contains WhisperX settings for fact-check transcripts.
type Transcription struct {
	Enabled      bool   `toml:"enabled"`
	Model        string `toml:"model"`
	CUDAEnabled  bool   `toml:"cuda_enabled"`
	Language     string `toml:"language"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Watch contains settings for the long-running mailbox watcher.
type Watch struct {
	Schedule    string `toml:"schedule"`
	MetricsBind string `toml:"metrics_bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for factfetch.
//
// Configuration sections by subsystem:
//   - Paths: download directory, ledger database, logs
//   - Downloader: yt-dlp invocation, retries, pacing, playlist bound
//   - Inbox: IMAP credentials and trusted senders
//   - Transcription: WhisperX settings for fact-check videos
//   - Notifications: ntfy push notification settings
//   - Watch: poll schedule and metrics endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Downloader    Downloader    `toml:"downloader"`
	Inbox         Inbox         `toml:"inbox"`
	Transcription Transcription `toml:"transcription"`
	Notifications Notifications `toml:"notifications"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first; it never overrides variables already present in the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("factfetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the download, log and ledger directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DownloadDir, c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the persistent log file location.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "factfetch.log")
}

// LockPath returns the single-instance lock used by run and watch.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "factfetch.lock")
}

// BackoffStep returns the base unit of the linear retry backoff.
func (c *Config) BackoffStep() time.Duration {
	return time.Duration(c.Downloader.BackoffStepSeconds) * time.Second
}

// DelayRange returns the bounds of the randomized pre-fetch delay.
func (c *Config) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.Downloader.MinDelaySeconds) * time.Second,
		time.Duration(c.Downloader.MaxDelaySeconds) * time.Second
}

// AttemptTimeout returns the per-attempt subprocess timeout; zero means none.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Downloader.AttemptTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
