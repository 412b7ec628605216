// Package ytdlp wraps the yt-dlp command line.
//
// Client exposes two operations: Download fetches one URL to an exact
// destination path using a named argument profile, and ListPlaylist prints a
// playlist's member URLs without fetching media. Command execution sits behind
// the Executor interface so callers can be tested against a fake that
// simulates failures, slow success, or a zero exit with no output file.
package ytdlp
