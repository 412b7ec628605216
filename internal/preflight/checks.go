package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"factfetch/internal/config"
	"factfetch/internal/deps"
	"factfetch/internal/ledger"
	"factfetch/internal/services/whisperx"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedger opens the ledger and reports its size. A schema mismatch is a
// failure with a hint, since run and watch would refuse the same file.
func CheckLedger(ctx context.Context, path string) Result {
	const name = "Ledger"
	store, err := ledger.Open(path)
	if err != nil {
		detail := fmt.Sprintf("%s (error: %v)", path, err)
		if errors.Is(err, ledger.ErrSchemaMismatch) {
			detail += "; set paths.ledger_path to a new file, then run `factfetch ledger stats`"
		}
		return Result{Name: name, Detail: detail}
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true,
		Detail: fmt.Sprintf("%s (%d urls, %d contents)", path, stats.URLCount, stats.ContentCount)}
}

// CheckSystemDeps evaluates the external binaries needed by cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Downloader.Binary,
			Description: "Required for downloading videos",
		},
	}
	transcription := cfg.Transcription.Enabled
	requirements = append(requirements,
		deps.Requirement{
			Name:        "FFmpeg",
			Command:     cfg.Transcription.FFmpegBinary,
			Description: "Merges downloaded streams and extracts audio for transcripts",
			Optional:    !transcription,
		},
		deps.Requirement{
			Name:        "uvx",
			Command:     whisperx.UVXCommand,
			Description: "Runs WhisperX for fact-check transcripts",
			Optional:    !transcription,
		},
	)
	return deps.CheckBinaries(requirements)
}
