// Package services holds the wrappers around external command line tools
// (yt-dlp, ffmpeg, WhisperX) plus the error markers they share.
//
// Errors returned by the wrappers are tagged with one of the sentinel markers
// via Wrap so callers can classify failures with errors.Is, and Kind turns a
// marker into a short log label.
package services
