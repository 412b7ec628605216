package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"factfetch/internal/fileutil"
	"factfetch/internal/services"
)

// Profile names a downloader argument set.
type Profile string

const (
	// ProfilePrimary merges the best video and audio streams into mp4.
	ProfilePrimary Profile = "primary"
	// ProfileFallback accepts the best single stream available.
	ProfileFallback Profile = "fallback"
)

// ErrNoOutput reports a zero exit status that left no file at the destination.
var ErrNoOutput = errors.New("downloader exited cleanly but produced no output file")

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary    string
	userAgent string
	exec      Executor
}

// New constructs a yt-dlp client.
func New(binary, userAgent string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:    binary,
		userAgent: strings.TrimSpace(userAgent),
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable name.
func (c *Client) Binary() string {
	return c.binary
}

// Download fetches url to dest using the given profile. Any file already at
// dest is replaced, never resumed.
func (c *Client) Download(ctx context.Context, url, dest string, profile Profile) error {
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "url required", nil)
	}
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "destination required", nil)
	}

	args := c.downloadArgs(url, dest, profile)
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "ytdlp", string(profile), "download failed", err)
	}
	if !fileutil.IsRegularFile(dest) {
		return fmt.Errorf("%w: %s", ErrNoOutput, dest)
	}
	return nil
}

// ListPlaylist prints up to limit member URLs of a playlist in playlist order.
func (c *Client) ListPlaylist(ctx context.Context, url string, limit int) ([]string, error) {
	if strings.TrimSpace(url) == "" {
		return nil, services.Wrap(services.ErrValidation, "ytdlp", "list", "url required", nil)
	}

	var members []string
	err := c.exec.Run(ctx, c.binary, c.listArgs(url, limit), func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		members = append(members, line)
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "list", "playlist listing failed", err)
	}
	return members, nil
}

func (c *Client) downloadArgs(url, dest string, profile Profile) []string {
	format := "bv*+ba/best[ext=mp4]"
	if profile == ProfileFallback {
		format = "best"
	}
	args := []string{
		"--no-warnings",
		"--quiet",
		"--restrict-filenames",
		"--no-playlist",
		"--no-continue",
		"--force-overwrites",
		"--merge-output-format", "mp4",
		"-f", format,
	}
	if c.userAgent != "" {
		args = append(args, "--user-agent", c.userAgent)
	}
	// yt-dlp treats % in -o as template syntax.
	args = append(args, "-o", strings.ReplaceAll(dest, "%", "%%"), "--", url)
	return args
}

func (c *Client) listArgs(url string, limit int) []string {
	args := []string{
		"--flat-playlist",
		"--quiet",
		"--no-warnings",
		"--print", "url",
	}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	if c.userAgent != "" {
		args = append(args, "--user-agent", c.userAgent)
	}
	return append(args, "--", url)
}
