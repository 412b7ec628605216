package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	c.normalizeInbox()
	c.normalizeTranscription()
	c.normalizeNotifications()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownloader() error {
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultDownloaderBinary
	}
	c.Downloader.UserAgent = strings.TrimSpace(c.Downloader.UserAgent)
	if c.Downloader.UserAgent == "" {
		c.Downloader.UserAgent = defaultUserAgent
	}
	if value, ok := os.LookupEnv("MAX_PLAYLIST_VIDEOS"); ok && c.Downloader.MaxPlaylistVideos == 0 && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MAX_PLAYLIST_VIDEOS: %w", err)
		}
		c.Downloader.MaxPlaylistVideos = parsed
	}
	if c.Downloader.MaxPlaylistVideos == 0 {
		c.Downloader.MaxPlaylistVideos = defaultMaxPlaylistVideos
	}
	if c.Downloader.MaxAttempts == 0 {
		c.Downloader.MaxAttempts = defaultMaxAttempts
	}
	return nil
}

func (c *Config) normalizeInbox() {
	c.Inbox.Server = strings.TrimSpace(c.Inbox.Server)
	if c.Inbox.Server == "" {
		c.Inbox.Server = defaultIMAPServer
	}
	c.Inbox.Mailbox = strings.TrimSpace(c.Inbox.Mailbox)
	if c.Inbox.Mailbox == "" {
		c.Inbox.Mailbox = defaultMailbox
	}
	c.Inbox.Address = strings.TrimSpace(c.Inbox.Address)
	if c.Inbox.Address == "" {
		if value, ok := os.LookupEnv("GMAIL_ADDRESS"); ok {
			c.Inbox.Address = strings.TrimSpace(value)
		}
	}
	c.Inbox.AppPassword = strings.TrimSpace(c.Inbox.AppPassword)
	if c.Inbox.AppPassword == "" {
		if value, ok := os.LookupEnv("GMAIL_APP_PASSWORD"); ok {
			c.Inbox.AppPassword = strings.TrimSpace(value)
		}
	}
	senders := c.Inbox.AllowedSenders
	if len(senders) == 0 {
		if value, ok := os.LookupEnv("ALLOWED_SENDERS"); ok {
			senders = strings.Split(value, ",")
		}
	}
	c.Inbox.AllowedSenders = normalizeSenders(senders)
	c.Inbox.FactCheckKeyword = strings.ToLower(strings.TrimSpace(c.Inbox.FactCheckKeyword))
	if c.Inbox.FactCheckKeyword == "" {
		c.Inbox.FactCheckKeyword = defaultFactCheckKeyword
	}
}

func normalizeSenders(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		if value, ok := os.LookupEnv("WHISPER_MODEL"); ok {
			c.Transcription.Model = strings.TrimSpace(value)
		}
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.FFmpegBinary = strings.TrimSpace(c.Transcription.FFmpegBinary)
	if c.Transcription.FFmpegBinary == "" {
		c.Transcription.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeWatch() {
	c.Watch.Schedule = strings.TrimSpace(c.Watch.Schedule)
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = defaultWatchSchedule
	}
	c.Watch.MetricsBind = strings.TrimSpace(c.Watch.MetricsBind)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		if value, ok := os.LookupEnv("LOG_LEVEL"); ok {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
