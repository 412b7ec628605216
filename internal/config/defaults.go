package config

const (
	defaultConfigPath            = "~/.config/factfetch/config.toml"
	defaultDownloadDir           = "~/.local/share/factfetch/videos"
	defaultLedgerPath            = "~/.local/share/factfetch/ledger.db"
	defaultLogDir                = "~/.local/share/factfetch/logs"
	defaultDownloaderBinary      = "yt-dlp"
	defaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/114.0.0.0 Safari/537.36"
	defaultMaxAttempts           = 3
	defaultBackoffStepSeconds    = 15
	defaultMinDelaySeconds       = 10
	defaultMaxDelaySeconds       = 30
	defaultMaxPlaylistVideos     = 20
	defaultAttemptTimeoutSeconds = 1800
	defaultIMAPServer            = "imap.gmail.com:993"
	defaultMailbox               = "INBOX"
	defaultFactCheckKeyword      = "factcheck"
	defaultWhisperModel          = "base"
	defaultFFmpegBinary          = "ffmpeg"
	defaultNotifyTimeout         = 10
	defaultWatchSchedule         = "*/15 * * * *"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. Fields with an
// environment fallback (playlist bound, whisper model, log level) stay empty
// until normalization so the environment can fill them.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LedgerPath:  defaultLedgerPath,
			LogDir:      defaultLogDir,
		},
		Downloader: Downloader{
			Binary:                defaultDownloaderBinary,
			UserAgent:             defaultUserAgent,
			MaxAttempts:           defaultMaxAttempts,
			BackoffStepSeconds:    defaultBackoffStepSeconds,
			MinDelaySeconds:       defaultMinDelaySeconds,
			MaxDelaySeconds:       defaultMaxDelaySeconds,
			AttemptTimeoutSeconds: defaultAttemptTimeoutSeconds,
		},
		Inbox: Inbox{
			Server:           defaultIMAPServer,
			Mailbox:          defaultMailbox,
			FactCheckKeyword: defaultFactCheckKeyword,
		},
		Transcription: Transcription{
			Enabled:      true,
			FFmpegBinary: defaultFFmpegBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Watch: Watch{
			Schedule: defaultWatchSchedule,
		},
		Logging: Logging{
			Format: defaultLogFormat,
		},
	}
}
