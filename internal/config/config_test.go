package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"factfetch/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"GMAIL_ADDRESS", "GMAIL_APP_PASSWORD", "ALLOWED_SENDERS",
		"MAX_PLAYLIST_VIDEOS", "WHISPER_MODEL", "LOG_LEVEL", "NTFY_TOPIC",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(home)
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "factfetch", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}

	wantDownloads := filepath.Join(home, ".local", "share", "factfetch", "videos")
	if cfg.Paths.DownloadDir != wantDownloads {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownloads)
	}
	if cfg.Paths.LedgerPath != filepath.Join(home, ".local", "share", "factfetch", "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Downloader.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Downloader.MaxAttempts)
	}
	if cfg.BackoffStep() != 15*time.Second {
		t.Fatalf("unexpected backoff step %s", cfg.BackoffStep())
	}
	minDelay, maxDelay := cfg.DelayRange()
	if minDelay != 10*time.Second || maxDelay != 30*time.Second {
		t.Fatalf("unexpected delay range %s-%s", minDelay, maxDelay)
	}
	if cfg.Downloader.MaxPlaylistVideos != 20 {
		t.Fatalf("expected playlist cap 20, got %d", cfg.Downloader.MaxPlaylistVideos)
	}
	if cfg.Transcription.Model != "base" {
		t.Fatalf("expected whisper model base, got %q", cfg.Transcription.Model)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.LedgerPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadEnvironmentFallbacks(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GMAIL_ADDRESS", " watcher@example.com ")
	t.Setenv("GMAIL_APP_PASSWORD", "secret")
	t.Setenv("ALLOWED_SENDERS", "Alice@Example.com, bob@example.com,,alice@example.com")
	t.Setenv("MAX_PLAYLIST_VIDEOS", "7")
	t.Setenv("WHISPER_MODEL", "small")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Inbox.Address != "watcher@example.com" {
		t.Fatalf("unexpected address %q", cfg.Inbox.Address)
	}
	want := []string{"alice@example.com", "bob@example.com"}
	if strings.Join(cfg.Inbox.AllowedSenders, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected senders %v", cfg.Inbox.AllowedSenders)
	}
	if cfg.Downloader.MaxPlaylistVideos != 7 {
		t.Fatalf("expected playlist cap from env, got %d", cfg.Downloader.MaxPlaylistVideos)
	}
	if cfg.Transcription.Model != "small" {
		t.Fatalf("expected whisper model from env, got %q", cfg.Transcription.Model)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level from env, got %q", cfg.Logging.Level)
	}
	if err := cfg.ValidateInbox(); err != nil {
		t.Fatalf("ValidateInbox returned error: %v", err)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("GMAIL_ADDRESS", "real@example.com")
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("GMAIL_ADDRESS=dotenv@example.com\nGMAIL_APP_PASSWORD=fromfile\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GMAIL_APP_PASSWORD") })

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Inbox.Address != "real@example.com" {
		t.Fatalf("expected real environment to win, got %q", cfg.Inbox.Address)
	}
	if cfg.Inbox.AppPassword != "fromfile" {
		t.Fatalf("expected password from .env, got %q", cfg.Inbox.AppPassword)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "factfetch.toml")

	type payload struct {
		Paths struct {
			DownloadDir string `toml:"download_dir"`
		} `toml:"paths"`
		Downloader struct {
			MaxAttempts       int `toml:"max_attempts"`
			MaxPlaylistVideos int `toml:"max_playlist_videos"`
		} `toml:"downloader"`
		Watch struct {
			Schedule string `toml:"schedule"`
		} `toml:"watch"`
	}
	custom := payload{}
	custom.Paths.DownloadDir = filepath.Join(tempDir, "videos")
	custom.Downloader.MaxAttempts = 5
	custom.Downloader.MaxPlaylistVideos = 3
	custom.Watch.Schedule = "@hourly"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MAX_PLAYLIST_VIDEOS", "50")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DownloadDir != custom.Paths.DownloadDir {
		t.Fatalf("unexpected download dir %q", cfg.Paths.DownloadDir)
	}
	if cfg.Downloader.MaxAttempts != 5 {
		t.Fatalf("unexpected attempts %d", cfg.Downloader.MaxAttempts)
	}
	if cfg.Downloader.MaxPlaylistVideos != 3 {
		t.Fatalf("file value should win over environment, got %d", cfg.Downloader.MaxPlaylistVideos)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad schedule", "[watch]\nschedule = \"not a schedule\"\n", "watch.schedule"},
		{"negative attempts", "[downloader]\nmax_attempts = -1\n", "downloader.max_attempts"},
		{"inverted delay", "[downloader]\nmin_delay_seconds = 40\nmax_delay_seconds = 5\n", "max_delay_seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)
			path := filepath.Join(t.TempDir(), "factfetch.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateInboxRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateInbox(); err == nil {
		t.Fatal("expected missing credentials error")
	}
	cfg.Inbox.Address = "a@example.com"
	cfg.Inbox.AppPassword = "pw"
	if err := cfg.ValidateInbox(); err == nil || !strings.Contains(err.Error(), "allowed_senders") {
		t.Fatalf("expected allowed_senders error, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Downloader.Binary != "yt-dlp" {
		t.Fatalf("unexpected binary %q", cfg.Downloader.Binary)
	}
}
