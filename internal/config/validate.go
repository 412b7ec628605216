package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

// ValidateInbox ensures mailbox credentials are present. Only commands that
// read the mailbox enforce it.
func (c *Config) ValidateInbox() error {
	if c.Inbox.Address == "" || c.Inbox.AppPassword == "" {
		return errors.New("inbox.address and inbox.app_password are required (or set GMAIL_ADDRESS and GMAIL_APP_PASSWORD)")
	}
	if len(c.Inbox.AllowedSenders) == 0 {
		return errors.New("inbox.allowed_senders must include at least one address (or set ALLOWED_SENDERS)")
	}
	if !strings.Contains(c.Inbox.Server, ":") {
		return fmt.Errorf("inbox.server must be host:port, got %q", c.Inbox.Server)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	if c.Paths.LedgerPath == "" {
		return errors.New("paths.ledger_path must be set")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if err := ensurePositiveMap(map[string]int{
		"downloader.max_attempts":        c.Downloader.MaxAttempts,
		"downloader.max_playlist_videos": c.Downloader.MaxPlaylistVideos,
	}); err != nil {
		return err
	}
	if c.Downloader.BackoffStepSeconds < 0 {
		return errors.New("downloader.backoff_step_seconds must be >= 0")
	}
	if c.Downloader.MinDelaySeconds < 0 {
		return errors.New("downloader.min_delay_seconds must be >= 0")
	}
	if c.Downloader.MaxDelaySeconds < c.Downloader.MinDelaySeconds {
		return errors.New("downloader.max_delay_seconds must be >= downloader.min_delay_seconds")
	}
	if c.Downloader.AttemptTimeoutSeconds < 0 {
		return errors.New("downloader.attempt_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.Enabled && c.Transcription.Model == "" {
		return errors.New("transcription.model must be set when transcription.enabled is true")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
